package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// BeginDB is satisfied by *pgxpool.Pool and by anything else that can open
// a pgx transaction.
type BeginDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres is the production Store backed by the entities table.
// Schema lives in sql/schema.sql; the partial unique index on
// (kind, external_id) is the hard backstop for the uniqueness invariant.
type Postgres struct {
	db BeginDB
}

// NewPostgres creates a Postgres store on top of a pool or connection.
func NewPostgres(db BeginDB) *Postgres {
	return &Postgres{db: db}
}

// Begin opens one transaction.
func (p *Postgres) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
	sp int
}

const entityColumns = `id, kind, external_id, display_name, normalized_name,
	customer_id, txn_date, amount::text, attrs, created_at, modified_at`

func (t *pgTx) FindByExternalID(ctx context.Context, kind Kind, externalID string) ([]Entity, error) {
	return t.find(ctx, `external_id = $2`, kind, externalID)
}

func (t *pgTx) FindByDisplayName(ctx context.Context, kind Kind, name string) ([]Entity, error) {
	return t.find(ctx, `display_name = $2`, kind, name)
}

func (t *pgTx) FindByNormalizedName(ctx context.Context, kind Kind, name string) ([]Entity, error) {
	return t.find(ctx, `normalized_name = $2`, kind, name)
}

func (t *pgTx) find(ctx context.Context, cond string, kind Kind, arg string) ([]Entity, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM entities WHERE kind = $1 AND %s ORDER BY created_at, id`,
		entityColumns, cond,
	)

	rows, err := t.tx.Query(ctx, query, string(kind), arg)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var result []Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan entities: %w", err)
	}
	return result, nil
}

func scanEntity(row pgx.Row) (Entity, error) {
	var (
		e          Entity
		kind       string
		externalID pgtype.Text
		customerID pgtype.Text
		txnDate    pgtype.Date
		amount     string
	)

	err := row.Scan(&e.ID, &kind, &externalID, &e.DisplayName, &e.NormalizedName,
		&customerID, &txnDate, &amount, &e.Attrs, &e.CreatedAt, &e.ModifiedAt)
	if err != nil {
		return Entity{}, fmt.Errorf("scan entity: %w", err)
	}

	e.Kind = Kind(kind)
	e.ExternalID = externalID.String
	e.CustomerID = customerID.String
	if txnDate.Valid {
		e.TxnDate = txnDate.Time
	}
	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return Entity{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if e.Attrs == nil {
		e.Attrs = map[string]string{}
	}
	return e, nil
}

// Insert writes a new entity. The statement runs inside a savepoint so a
// constraint violation poisons only this write, not the whole batch
// transaction.
func (t *pgTx) Insert(ctx context.Context, e Entity) error {
	return t.withSavepoint(ctx, func() error {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO entities
				(id, kind, external_id, display_name, normalized_name,
				 customer_id, txn_date, amount, attrs, created_at, modified_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			e.ID, string(e.Kind), nullText(e.ExternalID), e.DisplayName, e.NormalizedName,
			nullText(e.CustomerID), nullDate(e.TxnDate), e.Amount.String(),
			attrsOrEmpty(e.Attrs), e.CreatedAt, e.ModifiedAt,
		)
		return err
	})
}

// Update rewrites the mutable columns of an existing entity.
// id, kind and created_at are never touched.
func (t *pgTx) Update(ctx context.Context, e Entity) error {
	return t.withSavepoint(ctx, func() error {
		tag, err := t.tx.Exec(ctx, `
			UPDATE entities SET
				external_id = $2, display_name = $3, normalized_name = $4,
				customer_id = $5, txn_date = $6, amount = $7, attrs = $8,
				modified_at = $9
			WHERE id = $1`,
			e.ID, nullText(e.ExternalID), e.DisplayName, e.NormalizedName,
			nullText(e.CustomerID), nullDate(e.TxnDate), e.Amount.String(),
			attrsOrEmpty(e.Attrs), e.ModifiedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("entity %s not found", e.ID)
		}
		return nil
	})
}

// withSavepoint isolates one write so a SQL error does not abort the
// enclosing transaction.
func (t *pgTx) withSavepoint(ctx context.Context, fn func() error) error {
	t.sp++
	name := fmt.Sprintf("sp_%d", t.sp)

	if _, err := t.tx.Exec(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}

	if err := fn(); err != nil {
		_, _ = t.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+name)
		return err
	}

	if _, err := t.tx.Exec(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

func nullText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func nullDate(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t, Valid: true}
}

func attrsOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
