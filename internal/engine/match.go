package engine

import (
	"context"
	"log/slog"

	"github.com/quickledger/importer/internal/store"
)

// MatchStrategy names the lookup tier that produced a match.
type MatchStrategy int

const (
	MatchNone MatchStrategy = iota
	MatchExternalID
	MatchDisplayName
	MatchNormalizedName
)

func (s MatchStrategy) String() string {
	switch s {
	case MatchExternalID:
		return "external_id"
	case MatchDisplayName:
		return "display_name"
	case MatchNormalizedName:
		return "normalized_name"
	}
	return "none"
}

// MatchResult is the outcome of one Match call: either a matched entity plus
// the strategy that found it, or nothing.
type MatchResult struct {
	Entity   *store.Entity
	Strategy MatchStrategy
}

// Matched reports whether an existing entity was found.
func (m MatchResult) Matched() bool {
	return m.Entity != nil
}

// Match searches the store for the entity a normalized row refers to.
//
// Lookups run in strict priority order, stopping at the first hit:
//
//  1. external identifier, when the row carries one (authoritative)
//  2. exact display name
//  3. folded normalized name
//
// The ordering keeps visually distinct names that fold identically from being
// merged unless nothing stronger matches. A stored entity whose display name
// differs from the row's is still a match at tier 1; the disagreement is an
// update, not an error.
//
// More than one hit at a tier should not happen given the store's uniqueness
// invariants, but historical dirty data can produce it: the entity with the
// earliest creation time wins and a warning is logged. The row never fails
// for ambiguity alone.
func Match(ctx context.Context, tx store.Tx, rec NormalizedRecord, log *slog.Logger) (MatchResult, error) {
	type tier struct {
		strategy MatchStrategy
		key      string
		find     func(context.Context, store.Kind, string) ([]store.Entity, error)
	}

	tiers := []tier{
		{MatchExternalID, rec.ExternalID, tx.FindByExternalID},
		{MatchDisplayName, rec.DisplayName, tx.FindByDisplayName},
		{MatchNormalizedName, rec.NormalizedName, tx.FindByNormalizedName},
	}

	for _, t := range tiers {
		if t.key == "" {
			continue
		}

		found, err := t.find(ctx, rec.Kind, t.key)
		if err != nil {
			return MatchResult{}, err
		}
		if len(found) == 0 {
			continue
		}

		// Find results are ordered by creation time, so the first entry
		// is the deterministic pick.
		if len(found) > 1 && log != nil {
			log.Warn("ambiguous lookup",
				"kind", rec.Kind,
				"strategy", t.strategy.String(),
				"key", t.key,
				"candidates", len(found),
				"picked", found[0].ID,
				"line", rec.Line,
			)
		}

		e := found[0]
		return MatchResult{Entity: &e, Strategy: t.strategy}, nil
	}

	return MatchResult{}, nil
}
