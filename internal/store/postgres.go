package store

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetdesk/assetdesk/internal/allocation"
	"github.com/assetdesk/assetdesk/internal/importer"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Postgres implements Store on PostgreSQL.
//
// Expected schema:
//
//	inventory_records(id uuid pk, entity text, natural_key text,
//	                  fields jsonb, created_at, updated_at,
//	                  unique(entity, natural_key))
//	equipment_pools(id text pk, available int)
//	pool_assignments(id uuid pk, pool_id text, assignee text, knox_id text,
//	                 serial_number text, quantity int, notes text,
//	                 assigned_at timestamptz)
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store backed by the given connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Lookup(ctx context.Context, entity, key string) (string, bool, error) {
	var id uuid.UUID
	err := p.pool.QueryRow(ctx,
		`SELECT id FROM inventory_records WHERE entity = $1 AND natural_key = $2`,
		entity, key,
	).Scan(&id)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup record: %w", err)
	}
	return id.String(), true, nil
}

// ApplyOperations persists a reconciled batch in one transaction. Each key
// is guarded by a transaction-scoped advisory lock, so the engine's
// lookup-then-write pair cannot race another import into a duplicate row:
// the second transaction blocks on the lock and its upsert lands on the row
// the first one created. Updates merge with jsonb concatenation, which
// leaves fields absent from the operation untouched.
func (p *Postgres) ApplyOperations(ctx context.Context, entity string, ops []importer.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, op := range ops {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, keyLock(entity, op.Key)); err != nil {
			return fmt.Errorf("advisory lock %q: %w", op.Key, err)
		}

		fields, err := json.Marshal(op.Fields)
		if err != nil {
			return fmt.Errorf("encode fields for %q: %w", op.Key, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO inventory_records (id, entity, natural_key, fields, created_at, updated_at)
			VALUES ($1, $2, $3, $4::jsonb, now(), now())
			ON CONFLICT (entity, natural_key) DO UPDATE
			SET fields = inventory_records.fields || EXCLUDED.fields,
			    updated_at = now()`,
			uuid.New(), entity, op.Key, fields,
		)
		if err != nil {
			return fmt.Errorf("apply %s %q: %w", op.Action, op.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *Postgres) GetAvailableQuantity(ctx context.Context, poolID string) (int, error) {
	var available int
	err := p.pool.QueryRow(ctx,
		`SELECT available FROM equipment_pools WHERE id = $1`, poolID,
	).Scan(&available)
	if err == pgx.ErrNoRows {
		return 0, ErrPoolNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get pool %q: %w", poolID, err)
	}
	return available, nil
}

// CommitAllocation decrements the pool and inserts every assignment in one
// transaction. The decrement is conditional on sufficient stock, so a pool
// that shrank since validation fails the whole batch instead of going
// negative.
func (p *Postgres) CommitAllocation(ctx context.Context, poolID string, assignments []allocation.Assignment) error {
	total := 0
	for _, a := range assignments {
		total += a.Quantity
	}
	if total == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE equipment_pools SET available = available - $1 WHERE id = $2 AND available >= $1`,
		total, poolID,
	)
	if err != nil {
		return fmt.Errorf("decrement pool %q: %w", poolID, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := p.GetAvailableQuantity(ctx, poolID); err != nil {
			return err
		}
		return ErrInsufficientStock
	}

	for _, a := range assignments {
		_, err := tx.Exec(ctx, `
			INSERT INTO pool_assignments (id, pool_id, assignee, knox_id, serial_number, quantity, notes, assigned_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New(), poolID, a.Assignee, a.KnoxID, a.SerialNumber, a.Quantity, a.Notes, a.AssignedAt,
		)
		if err != nil {
			return fmt.Errorf("insert assignment for %q: %w", a.Assignee, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *Postgres) ReturnToPool(ctx context.Context, poolID string, quantity int) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE equipment_pools SET available = available + $1 WHERE id = $2`,
		quantity, poolID,
	)
	if err != nil {
		return fmt.Errorf("return to pool %q: %w", poolID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPoolNotFound
	}
	return nil
}

// keyLock hashes an entity/key pair into the advisory lock space.
func keyLock(entity, key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(entity))
	h.Write([]byte{0})
	h.Write([]byte(key))
	return int64(h.Sum64())
}
