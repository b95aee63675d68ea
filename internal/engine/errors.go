package engine

import "fmt"

// ErrorKind classifies a row-level error record.
type ErrorKind string

const (
	// ErrValidation marks a row that failed normalization.
	ErrValidation ErrorKind = "validation"

	// ErrConflict marks a row whose update would overwrite a stored
	// external identifier with a disagreeing value.
	ErrConflict ErrorKind = "conflict"

	// ErrBatchAborted marks a row whose batch transaction failed for
	// infrastructure reasons and was rolled back.
	ErrBatchAborted ErrorKind = "batch_aborted"

	// ErrRunAborted marks the point where the error ceiling stopped the
	// run; rows after it were never read.
	ErrRunAborted ErrorKind = "run_aborted"
)

// ValidationError reports a row that cannot be normalized: a required column
// is missing, empty, or fails type coercion.
type ValidationError struct {
	Line  int
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: field %q: %s", e.Line, e.Field, e.Msg)
}

// ConflictError reports an incoming external identifier that disagrees with
// the one already stored on the matched entity. The stored value wins; the
// row is rejected.
type ConflictError struct {
	Line     int
	EntityID string
	Stored   string
	Incoming string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("line %d: entity %s: external id %q conflicts with stored %q",
		e.Line, e.EntityID, e.Incoming, e.Stored)
}

// ErrorRecord is one row failure captured in the run report.
type ErrorRecord struct {
	Line    int
	Kind    ErrorKind
	Message string
	Row     []string // raw cell snapshot, nil when unavailable
}
