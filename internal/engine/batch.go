package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/quickledger/importer/internal/schema"
	"github.com/quickledger/importer/internal/store"
)

// DefaultBatchSize is used when Runner.BatchSize is zero.
const DefaultBatchSize = 100

// Runner drives the reconciliation of one row stream into the store.
//
// Rows are processed strictly in order: a later row may reference an entity
// created by an earlier row of the same batch. Batches map one-to-one onto
// store transactions.
type Runner struct {
	Store store.Store

	// IDs generates surrogate keys. Defaults to UUIDGenerator.
	IDs IDGenerator

	// Now supplies timestamps. Defaults to time.Now.
	Now func() time.Time

	// BatchSize is the number of rows per transaction.
	BatchSize int

	// ErrorLimit aborts the run once this many row errors accumulate.
	// Zero means unlimited.
	ErrorLimit int

	Logger   *slog.Logger
	Progress ProgressFunc
}

// Run streams rows from src and reconciles them as entities of def's kind.
//
// Row-level failures (validation, identifier conflicts) are recorded and do
// not disturb the rest of their batch. An infrastructure failure rolls the
// current batch back and converts all of its rows into batch_aborted errors.
// When the error total reaches ErrorLimit the run stops before the next
// batch opens and the result is marked aborted; batches already committed
// stay committed.
//
// The returned error is non-nil only for failures outside row processing:
// a broken row source or a cancelled context.
func (r *Runner) Run(ctx context.Context, src RowSource, def schema.Definition) (*BatchRun, error) {
	run := &BatchRun{
		Kind:    def.Kind,
		Started: r.now(),
	}
	defer func() { run.Finished = r.now() }()

	for {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		rows, err := readBatch(src, r.batchSize())
		if err != nil {
			return run, fmt.Errorf("read rows: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		run.Batches++
		run.Rows += len(rows)
		r.runBatch(ctx, run, def, rows)

		r.reportProgress(run)

		if r.ErrorLimit > 0 && len(run.Errors) >= r.ErrorLimit {
			run.Aborted = true
			r.log().Error("error limit reached, aborting run",
				"kind", def.Kind, "errors", len(run.Errors), "limit", r.ErrorLimit)
			break
		}
	}

	return run, nil
}

// runBatch processes one group of rows inside one transaction.
func (r *Runner) runBatch(ctx context.Context, run *BatchRun, def schema.Definition, rows []SourceRow) {
	// Remember where this batch starts so an aborted transaction can
	// retract everything it recorded.
	outMark := len(run.Outcomes)
	errMark := len(run.Errors)
	counts := [3]int{run.Created, run.Updated, run.Unchanged}

	abort := func(cause error) {
		run.Outcomes = run.Outcomes[:outMark]
		run.Errors = run.Errors[:errMark]
		run.Created, run.Updated, run.Unchanged = counts[0], counts[1], counts[2]

		for _, row := range rows {
			run.Errors = append(run.Errors, ErrorRecord{
				Line:    row.Line,
				Kind:    ErrBatchAborted,
				Message: fmt.Sprintf("batch rolled back: %v", cause),
				Row:     row.Cells,
			})
		}
		r.log().Error("batch aborted", "kind", def.Kind, "rows", len(rows), "cause", cause)
	}

	tx, err := r.Store.Begin(ctx)
	if err != nil {
		abort(err)
		return
	}

	for _, row := range rows {
		outcome, entityID, err := r.processRow(ctx, tx, def, row)
		if err != nil {
			if kind, ok := rowErrorKind(err); ok {
				run.Errors = append(run.Errors, ErrorRecord{
					Line:    row.Line,
					Kind:    kind,
					Message: err.Error(),
					Row:     row.Cells,
				})
				continue
			}

			// Not attributable to this row: the store is failing.
			_ = tx.Rollback(ctx)
			abort(err)
			return
		}

		run.Outcomes = append(run.Outcomes, RowOutcome{Line: row.Line, Outcome: outcome, EntityID: entityID})
		switch outcome {
		case OutcomeCreated:
			run.Created++
		case OutcomeUpdated:
			run.Updated++
		case OutcomeUnchanged:
			run.Unchanged++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		abort(err)
		return
	}
	run.CommittedBatches++
}

// processRow runs normalize -> match -> upsert for one row.
func (r *Runner) processRow(ctx context.Context, tx store.Tx, def schema.Definition, row SourceRow) (Outcome, string, error) {
	rec, err := Normalize(row, def)
	if err != nil {
		return 0, "", err
	}

	m, err := Match(ctx, tx, rec, r.log())
	if err != nil {
		return 0, "", err
	}

	outcome, e, err := r.Upsert(ctx, tx, rec, m)
	if err != nil {
		return 0, "", err
	}
	return outcome, e.ID, nil
}

// rowErrorKind classifies errors that are scoped to a single row.
func rowErrorKind(err error) (ErrorKind, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ErrValidation, true
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ErrConflict, true
	}
	return "", false
}

// readBatch pulls up to n rows from the source. A short (or empty) result
// means the source is drained.
func readBatch(src RowSource, n int) ([]SourceRow, error) {
	rows := make([]SourceRow, 0, n)
	for len(rows) < n {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r *Runner) reportProgress(run *BatchRun) {
	p := Progress{Batch: run.Batches, Rows: run.Rows, Errors: len(run.Errors)}
	r.log().Info("batch complete",
		"kind", run.Kind, "batch", p.Batch, "rows", p.Rows, "errors", p.Errors)
	if r.Progress != nil {
		r.Progress(p)
	}
}

func (r *Runner) batchSize() int {
	if r.BatchSize > 0 {
		return r.BatchSize
	}
	return DefaultBatchSize
}

func (r *Runner) ids() IDGenerator {
	if r.IDs != nil {
		return r.IDs
	}
	return UUIDGenerator{}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
