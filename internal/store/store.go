// Package store defines the narrow storage contract the import and
// allocation engines are written against, with a PostgreSQL implementation
// for production and an in-memory implementation for tests and dry runs.
package store

import (
	"context"
	"errors"

	"github.com/assetdesk/assetdesk/internal/allocation"
	"github.com/assetdesk/assetdesk/internal/importer"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// ErrPoolNotFound is returned when a pool id does not exist.
var ErrPoolNotFound = errors.New("pool not found")

// ErrInsufficientStock is returned by CommitAllocation when the pool shrank
// between validation and commit. The whole batch is rolled back.
var ErrInsufficientStock = errors.New("insufficient stock in pool")

// Store is the storage collaborator for the import and allocation engines.
//
// Implementations must make reconciliation writes safe against concurrent
// imports over the same natural-key space: ApplyOperations is required to
// guarantee that two concurrent batches touching the same key never create
// duplicate records (the engines themselves do not serialize callers).
// CommitAllocation must be atomic: either every assignment persists and the
// pool decrements, or nothing changes.
type Store interface {
	// Lookup resolves an entity's natural key to an existing record id.
	Lookup(ctx context.Context, entity, key string) (id string, found bool, err error)

	// ApplyOperations persists a reconciled batch. Update operations merge
	// only the fields present in the operation; absent fields keep their
	// stored values.
	ApplyOperations(ctx context.Context, entity string, ops []importer.Operation) error

	// GetAvailableQuantity returns the unassigned unit count of a pool.
	GetAvailableQuantity(ctx context.Context, poolID string) (int, error)

	// CommitAllocation persists an allocation batch and decrements the pool.
	CommitAllocation(ctx context.Context, poolID string, assignments []allocation.Assignment) error

	// ReturnToPool adds released units back to a pool.
	ReturnToPool(ctx context.Context, poolID string, quantity int) error
}

// LookupFor adapts a Store to the importer's lookup function for one entity.
func LookupFor(ctx context.Context, s Store, entity string) importer.LookupFn {
	return func(key string) (string, bool, error) {
		return s.Lookup(ctx, entity, key)
	}
}
