package engine

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quickledger/importer/internal/store"
)

// HeaderIndex maps column names (lowercase) to their position in a CSV row.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from a header row.
// Keys are lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		idx[strings.ToLower(CleanCell(h))] = i
	}
	return idx
}

// SourceRow is one tokenized input row. Line is 1-based within the source
// file and drives error reporting. Index is shared by every row of a file.
type SourceRow struct {
	Line  int
	Index HeaderIndex
	Cells []string
}

// Get returns the cleaned cell under the named column.
// The second result is false when the column is absent from the file.
func (r SourceRow) Get(col string) (string, bool) {
	pos, ok := r.Index[strings.ToLower(col)]
	if !ok || pos >= len(r.Cells) {
		return "", false
	}
	return CleanCell(r.Cells[pos]), true
}

// RowSource streams tokenized rows. Next returns io.EOF after the last row.
type RowSource interface {
	Next() (SourceRow, error)
}

// CleanCell removes common CSV artifacts from a cell value: surrounding
// whitespace, Excel formula prefixes (="value"), stray quotes, and the
// platform's "quickbooks:" id prefix.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = s[2 : len(s)-1]
	} else {
		s = strings.TrimPrefix(s, "=")
	}

	s = strings.Trim(s, `"'`)
	s = strings.TrimPrefix(s, "quickbooks:")

	return strings.TrimSpace(s)
}

// NormalizedRecord is the canonical, typed form of one input row. Created by
// Normalize, consumed by Match and Upsert, then discarded.
type NormalizedRecord struct {
	Kind store.Kind
	Line int

	ExternalID     string // empty when the extract carries no id
	DisplayName    string
	NormalizedName string // FoldName(DisplayName)

	// Customer-identifying columns of invoice and receipt rows.
	CustomerExternalID string
	CustomerName       string

	TxnDate time.Time
	Amount  decimal.Decimal

	Attrs map[string]string
}

// Outcome classifies what Upsert did with one row.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeUpdated
	OutcomeUnchanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	}
	return "unknown"
}

// RowOutcome records the verdict for one successfully processed row.
type RowOutcome struct {
	Line     int
	Outcome  Outcome
	EntityID string
}

// BatchRun is the full account of one execution over one input stream.
type BatchRun struct {
	Kind     store.Kind
	Started  time.Time
	Finished time.Time

	Rows     int // rows consumed from the source
	Outcomes []RowOutcome
	Errors   []ErrorRecord

	Created   int
	Updated   int
	Unchanged int

	Batches          int // batches opened
	CommittedBatches int

	// Aborted is set when the error ceiling was reached and remaining
	// input was left unprocessed.
	Aborted bool
}

// Progress is reported after every batch.
type Progress struct {
	Batch  int // batches completed so far
	Rows   int // rows processed so far
	Errors int // errors recorded so far
}

// ProgressFunc receives per-batch progress updates.
type ProgressFunc func(Progress)
