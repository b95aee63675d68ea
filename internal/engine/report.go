package engine

import (
	"fmt"
	"strings"
	"time"
)

// Summary is the aggregate verdict of one run. Success is the single boolean
// the orchestrator uses to route the source file.
type Summary struct {
	Kind      string
	Rows      int
	Created   int
	Updated   int
	Unchanged int
	Errored   int
	Duration  time.Duration
	Aborted   bool
	Success   bool
}

// Summarize aggregates a finished run. Pure; it never touches the store.
//
// A run succeeds only when it was not cut short by the error ceiling and
// every batch it opened committed. A rolled-back batch persisted nothing, so
// its file must not be routed as processed.
func Summarize(run *BatchRun) Summary {
	return Summary{
		Kind:      string(run.Kind),
		Rows:      run.Rows,
		Created:   run.Created,
		Updated:   run.Updated,
		Unchanged: run.Unchanged,
		Errored:   len(run.Errors),
		Duration:  run.Finished.Sub(run.Started),
		Aborted:   run.Aborted,
		Success:   !run.Aborted && run.CommittedBatches == run.Batches,
	}
}

// FormatReport renders a human-readable run report: the counts plus every
// recorded error with its line number.
func FormatReport(run *BatchRun) string {
	s := Summarize(run)

	var b strings.Builder
	verdict := "ok"
	if !s.Success {
		verdict = "FAILED"
	}
	fmt.Fprintf(&b, "%s: %d rows, %d created, %d updated, %d unchanged, %d errors [%s] (%s)\n",
		s.Kind, s.Rows, s.Created, s.Updated, s.Unchanged, s.Errored, verdict,
		s.Duration.Round(time.Millisecond))

	if s.Aborted {
		b.WriteString("run aborted: error limit reached, remaining rows not processed\n")
	}

	for _, e := range run.Errors {
		fmt.Fprintf(&b, "  line %d [%s]: %s\n", e.Line, e.Kind, e.Message)
	}
	return b.String()
}
