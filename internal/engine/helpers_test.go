package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/quickledger/importer/internal/schema"
	"github.com/quickledger/importer/internal/store"
)

// Shared fixtures for the engine tests. Runs use a sequence id generator and
// a stepping clock so every assertion can name exact ids and timestamps.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stepClock returns a Now func that advances one second per call.
func stepClock() func() time.Time {
	t := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestRunner(m *store.Memory) *Runner {
	return &Runner{
		Store:  m,
		IDs:    &SequenceGenerator{Prefix: "gen"},
		Now:    stepClock(),
		Logger: testLogger(),
	}
}

func mustDef(t *testing.T, kind store.Kind) schema.Definition {
	t.Helper()
	def, ok := schema.Get(kind)
	if !ok {
		t.Fatalf("no schema registered for kind %s", kind)
	}
	return def
}

// row builds a SourceRow from a header and cells.
func row(line int, header []string, cells ...string) SourceRow {
	return SourceRow{Line: line, Index: MakeHeaderIndex(header), Cells: cells}
}

// sliceSource feeds a fixed set of rows, then io.EOF.
type sliceSource struct {
	rows []SourceRow
	pos  int
}

func (s *sliceSource) Next() (SourceRow, error) {
	if s.pos >= len(s.rows) {
		return SourceRow{}, io.EOF
	}
	r := s.rows[s.pos]
	s.pos++
	return r, nil
}

// seed commits entities straight into the store, outside any run.
func seed(t *testing.T, m *store.Memory, entities ...store.Entity) {
	t.Helper()

	ctx := context.Background()
	tx, err := m.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, e := range entities {
		if err := tx.Insert(ctx, e); err != nil {
			t.Fatalf("insert %s: %v", e.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

// applyRecord runs match-then-upsert for one record in its own transaction.
// The transaction is committed on success and rolled back on error.
func applyRecord(t *testing.T, r *Runner, rec NormalizedRecord) (Outcome, store.Entity, error) {
	t.Helper()

	ctx := context.Background()
	tx, err := r.Store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	m, err := Match(ctx, tx, rec, r.log())
	if err != nil {
		_ = tx.Rollback(ctx)
		t.Fatalf("match: %v", err)
	}

	outcome, e, err := r.Upsert(ctx, tx, rec, m)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, store.Entity{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return outcome, e, nil
}
