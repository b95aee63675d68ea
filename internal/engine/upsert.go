package engine

import (
	"context"

	"github.com/quickledger/importer/internal/store"
)

// Upsert creates or updates exactly one canonical entity for a normalized row,
// inside the enclosing batch transaction.
//
// Invoice and receipt rows first resolve their owning customer through the
// same match-then-upsert logic; a failure there aborts this row only.
//
// Immutable fields: the primary key and CreatedAt are never rewritten. The
// external identifier may be backfilled once onto an entity created without
// one (identifier promotion); a disagreeing non-empty value is a
// *ConflictError and leaves the entity untouched.
func (r *Runner) Upsert(ctx context.Context, tx store.Tx, rec NormalizedRecord, m MatchResult) (Outcome, store.Entity, error) {
	customerID := ""
	if rec.Kind != store.KindCustomer && (rec.CustomerName != "" || rec.CustomerExternalID != "") {
		id, err := r.resolveCustomer(ctx, tx, rec)
		if err != nil {
			return 0, store.Entity{}, err
		}
		customerID = id
	}

	if !m.Matched() {
		e, err := r.create(ctx, tx, rec, customerID)
		if err != nil {
			return 0, store.Entity{}, err
		}
		return OutcomeCreated, e, nil
	}
	return r.update(ctx, tx, rec, *m.Entity, customerID)
}

// resolveCustomer finds or creates the customer an invoice/receipt row
// references, returning its primary key.
func (r *Runner) resolveCustomer(ctx context.Context, tx store.Tx, rec NormalizedRecord) (string, error) {
	crec := NormalizedRecord{
		Kind:           store.KindCustomer,
		Line:           rec.Line,
		ExternalID:     rec.CustomerExternalID,
		DisplayName:    rec.CustomerName,
		NormalizedName: FoldName(rec.CustomerName),
	}

	m, err := Match(ctx, tx, crec, r.log())
	if err != nil {
		return "", err
	}

	if !m.Matched() && crec.DisplayName == "" {
		// An id-only reference to a customer this store has never seen
		// cannot be created: display names are mandatory.
		return "", &ValidationError{Line: rec.Line, Field: "customer", Msg: "customer not found"}
	}

	outcome, e, err := r.Upsert(ctx, tx, crec, m)
	if err != nil {
		return "", err
	}
	if outcome == OutcomeCreated {
		r.log().Debug("customer created from transaction row",
			"customer", e.DisplayName, "id", e.ID, "line", rec.Line)
	}
	return e.ID, nil
}

func (r *Runner) create(ctx context.Context, tx store.Tx, rec NormalizedRecord, customerID string) (store.Entity, error) {
	id := rec.ExternalID
	if id == "" {
		id = r.ids().NewID()
	}

	now := r.now()
	e := store.Entity{
		ID:             id,
		Kind:           rec.Kind,
		ExternalID:     rec.ExternalID,
		DisplayName:    rec.DisplayName,
		NormalizedName: rec.NormalizedName,
		CustomerID:     customerID,
		TxnDate:        rec.TxnDate,
		Amount:         rec.Amount,
		Attrs:          copyAttrs(rec.Attrs),
		CreatedAt:      now,
		ModifiedAt:     now,
	}

	if err := tx.Insert(ctx, e); err != nil {
		return store.Entity{}, err
	}
	return e, nil
}

func (r *Runner) update(ctx context.Context, tx store.Tx, rec NormalizedRecord, e store.Entity, customerID string) (Outcome, store.Entity, error) {
	if e.Attrs == nil {
		e.Attrs = map[string]string{}
	}
	changed := false

	if rec.ExternalID != "" {
		switch {
		case e.ExternalID == "":
			// Identifier promotion: the only null-to-value transition.
			e.ExternalID = rec.ExternalID
			changed = true
		case e.ExternalID != rec.ExternalID:
			return 0, store.Entity{}, &ConflictError{
				Line:     rec.Line,
				EntityID: e.ID,
				Stored:   e.ExternalID,
				Incoming: rec.ExternalID,
			}
		}
	}

	if rec.DisplayName != "" && rec.DisplayName != e.DisplayName {
		e.DisplayName = rec.DisplayName
		e.NormalizedName = rec.NormalizedName
		changed = true
	}
	if customerID != "" && customerID != e.CustomerID {
		e.CustomerID = customerID
		changed = true
	}
	if !rec.TxnDate.IsZero() && !rec.TxnDate.Equal(e.TxnDate) {
		e.TxnDate = rec.TxnDate
		changed = true
	}
	if rec.Kind != store.KindCustomer && !rec.Amount.Equal(e.Amount) {
		e.Amount = rec.Amount
		changed = true
	}
	for k, v := range rec.Attrs {
		if e.Attrs[k] != v {
			e.Attrs[k] = v
			changed = true
		}
	}

	if !changed {
		return OutcomeUnchanged, e, nil
	}

	e.ModifiedAt = r.now()
	if err := tx.Update(ctx, e); err != nil {
		return 0, store.Entity{}, err
	}
	return OutcomeUpdated, e, nil
}

func copyAttrs(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
