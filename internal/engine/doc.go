// Package engine reconciles rows of accounting CSV extracts into the
// canonical store without ever producing duplicates.
//
// The pipeline for one file is:
//
//	RowSource -> Normalize -> Match -> Upsert
//
// driven by Runner.Run, which groups rows into fixed-size batches, wraps each
// batch in one store transaction, isolates row-level failures, and enforces a
// global error ceiling. Matching tries the external identifier first, then the
// exact display name, then the folded normalized name; only when all three
// miss is a new entity created. Re-running the same file is therefore a no-op:
// every row matches what the first run wrote and reports Unchanged.
//
// The engine processes rows strictly in order. A customer created by an early
// row must be visible to an invoice row later in the same batch, and the store
// contract guarantees read-your-writes inside one transaction.
package engine
