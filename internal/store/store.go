// Package store defines the persistence layer for canonical entities.
//
// The engine never talks to a database directly; it receives a Tx and issues
// kind-scoped lookups and writes through it. Two implementations exist:
// Postgres (pgx) for production and Memory for tests and dry runs.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies which canonical table an entity belongs to.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindInvoice  Kind = "invoice"
	KindReceipt  Kind = "receipt"
)

// Valid reports whether k is a known entity kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCustomer, KindInvoice, KindReceipt:
		return true
	}
	return false
}

// Entity is one persisted canonical record.
//
// ID is the primary key: the upstream external identifier when it was known at
// creation time, otherwise a generated surrogate. It never changes once
// assigned. ExternalID is empty when the upstream system has not supplied one
// yet (stored as NULL); it may be backfilled exactly once.
type Entity struct {
	ID             string
	Kind           Kind
	ExternalID     string
	DisplayName    string
	NormalizedName string

	// CustomerID links an invoice or receipt to its owning customer.
	// Empty for customers.
	CustomerID string

	TxnDate time.Time
	Amount  decimal.Decimal

	// Attrs holds kind-specific fields that are not promoted to typed
	// columns (terms, status, payment method, ...).
	Attrs map[string]string

	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Tx is one transaction against the store. All lookups see writes made
// earlier in the same transaction.
//
// Find methods return every entity matching the key, ordered by CreatedAt
// ascending (ties broken by ID) so callers can resolve duplicates
// deterministically. A clean store never returns more than one.
type Tx interface {
	FindByExternalID(ctx context.Context, kind Kind, externalID string) ([]Entity, error)
	FindByDisplayName(ctx context.Context, kind Kind, name string) ([]Entity, error)
	FindByNormalizedName(ctx context.Context, kind Kind, name string) ([]Entity, error)

	Insert(ctx context.Context, e Entity) error
	Update(ctx context.Context, e Entity) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens transactions. One batch of input rows maps to one transaction.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}
