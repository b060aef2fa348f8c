package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk/internal/allocation"
	"github.com/assetdesk/assetdesk/internal/importer"
)

// Memory is an in-memory Store used by tests and dry-run flows. All methods
// are safe for concurrent use; ApplyOperations holds the store lock for the
// whole batch, which gives it the same no-duplicate guarantee the Postgres
// implementation gets from advisory locks.
type Memory struct {
	mu          sync.Mutex
	records     map[string]*memRecord // entity|key -> record
	byID        map[string]*memRecord
	pools       map[string]int
	assignments map[string][]allocation.Assignment
}

type memRecord struct {
	id     string
	entity string
	key    string
	fields map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records:     make(map[string]*memRecord),
		byID:        make(map[string]*memRecord),
		pools:       make(map[string]int),
		assignments: make(map[string][]allocation.Assignment),
	}
}

func recordKey(entity, key string) string {
	return entity + "|" + key
}

func (m *Memory) Lookup(_ context.Context, entity, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[recordKey(entity, key)]
	if !ok {
		return "", false, nil
	}
	return rec.id, true, nil
}

func (m *Memory) ApplyOperations(_ context.Context, entity string, ops []importer.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range ops {
		rk := recordKey(entity, op.Key)
		rec, ok := m.records[rk]
		if !ok {
			rec = &memRecord{
				id:     uuid.New().String(),
				entity: entity,
				key:    op.Key,
				fields: make(map[string]string),
			}
			m.records[rk] = rec
			m.byID[rec.id] = rec
		}
		// Merge only present fields; stored values survive no-value cells.
		for name, value := range op.Fields {
			rec.fields[name] = value
		}
	}
	return nil
}

func (m *Memory) GetAvailableQuantity(_ context.Context, poolID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	available, ok := m.pools[poolID]
	if !ok {
		return 0, ErrPoolNotFound
	}
	return available, nil
}

func (m *Memory) CommitAllocation(_ context.Context, poolID string, assignments []allocation.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	available, ok := m.pools[poolID]
	if !ok {
		return ErrPoolNotFound
	}

	total := 0
	for _, a := range assignments {
		total += a.Quantity
	}
	if total > available {
		return ErrInsufficientStock
	}

	m.pools[poolID] = available - total
	m.assignments[poolID] = append(m.assignments[poolID], assignments...)
	return nil
}

func (m *Memory) ReturnToPool(_ context.Context, poolID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pools[poolID]; !ok {
		return ErrPoolNotFound
	}
	m.pools[poolID] += quantity
	return nil
}

// SetPool seeds a pool with an available quantity.
func (m *Memory) SetPool(poolID string, available int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools[poolID] = available
}

// RecordFields returns a copy of a stored record's fields, for assertions.
func (m *Memory) RecordFields(entity, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[recordKey(entity, key)]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", entity, key, ErrNotFound)
	}
	fields := make(map[string]string, len(rec.fields))
	for k, v := range rec.fields {
		fields[k] = v
	}
	return fields, nil
}

// RecordCount returns the number of stored records for an entity.
func (m *Memory) RecordCount(entity string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, rec := range m.records {
		if rec.entity == entity {
			n++
		}
	}
	return n
}

// Assignments returns the committed assignments for a pool.
func (m *Memory) Assignments(poolID string) []allocation.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]allocation.Assignment(nil), m.assignments[poolID]...)
}
