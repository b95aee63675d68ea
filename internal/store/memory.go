package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-memory Store used by tests and by dry runs.
//
// A transaction works on a copy of the committed state, so lookups see the
// transaction's own writes and a rollback simply discards the copy. Access is
// serialized with a mutex; concurrent transactions are not merged.
type Memory struct {
	mu       sync.Mutex
	entities []Entity

	// FailWrites, when set, is consulted before every Insert and Update.
	// Returning a non-nil error simulates an infrastructure fault.
	FailWrites func(op string, e Entity) error

	// BeginErr and CommitErr, when set, fail Begin / Commit respectively.
	BeginErr  error
	CommitErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Begin opens a transaction over a copy of the committed state.
func (m *Memory) Begin(ctx context.Context) (Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.BeginErr != nil {
		return nil, m.BeginErr
	}

	working := make([]Entity, len(m.entities))
	for i, e := range m.entities {
		working[i] = cloneEntity(e)
	}
	return &memTx{m: m, working: working}, nil
}

// All returns committed entities of one kind, ordered by CreatedAt then ID.
func (m *Memory) All(kind Kind) []Entity {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Entity
	for _, e := range m.entities {
		if e.Kind == kind {
			result = append(result, cloneEntity(e))
		}
	}
	sortEntities(result)
	return result
}

// Get returns the committed entity with the given primary key.
func (m *Memory) Get(id string) (Entity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entities {
		if e.ID == id {
			return cloneEntity(e), true
		}
	}
	return Entity{}, false
}

// Len returns the number of committed entities across all kinds.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entities)
}

type memTx struct {
	m       *Memory
	working []Entity
	done    bool
}

func (t *memTx) FindByExternalID(ctx context.Context, kind Kind, externalID string) ([]Entity, error) {
	return t.find(kind, func(e Entity) bool { return e.ExternalID == externalID })
}

func (t *memTx) FindByDisplayName(ctx context.Context, kind Kind, name string) ([]Entity, error) {
	return t.find(kind, func(e Entity) bool { return e.DisplayName == name })
}

func (t *memTx) FindByNormalizedName(ctx context.Context, kind Kind, name string) ([]Entity, error) {
	return t.find(kind, func(e Entity) bool { return e.NormalizedName == name })
}

func (t *memTx) find(kind Kind, match func(Entity) bool) ([]Entity, error) {
	if t.done {
		return nil, fmt.Errorf("transaction closed")
	}

	var result []Entity
	for _, e := range t.working {
		if e.Kind == kind && match(e) {
			result = append(result, cloneEntity(e))
		}
	}
	sortEntities(result)
	return result, nil
}

func (t *memTx) Insert(ctx context.Context, e Entity) error {
	if t.done {
		return fmt.Errorf("transaction closed")
	}
	if fail := t.m.FailWrites; fail != nil {
		if err := fail("insert", e); err != nil {
			return err
		}
	}

	for _, existing := range t.working {
		if existing.ID == e.ID {
			return fmt.Errorf("duplicate key: entity %s already exists", e.ID)
		}
		// Mirrors the partial unique index on (kind, external_id).
		if e.ExternalID != "" && existing.Kind == e.Kind && existing.ExternalID == e.ExternalID {
			return fmt.Errorf("unique constraint: %s external id %s already exists", e.Kind, e.ExternalID)
		}
	}

	t.working = append(t.working, cloneEntity(e))
	return nil
}

func (t *memTx) Update(ctx context.Context, e Entity) error {
	if t.done {
		return fmt.Errorf("transaction closed")
	}
	if fail := t.m.FailWrites; fail != nil {
		if err := fail("update", e); err != nil {
			return err
		}
	}

	for i, existing := range t.working {
		if existing.ID == e.ID {
			t.working[i] = cloneEntity(e)
			return nil
		}
	}
	return fmt.Errorf("entity %s not found", e.ID)
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("transaction closed")
	}
	t.done = true

	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if t.m.CommitErr != nil {
		return t.m.CommitErr
	}
	t.m.entities = t.working
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.done = true
	return nil
}

func cloneEntity(e Entity) Entity {
	c := e
	if e.Attrs != nil {
		c.Attrs = make(map[string]string, len(e.Attrs))
		for k, v := range e.Attrs {
			c.Attrs[k] = v
		}
	}
	return c
}

func sortEntities(es []Entity) {
	sort.Slice(es, func(i, j int) bool {
		if !es[i].CreatedAt.Equal(es[j].CreatedAt) {
			return es[i].CreatedAt.Before(es[j].CreatedAt)
		}
		return es[i].ID < es[j].ID
	})
}
