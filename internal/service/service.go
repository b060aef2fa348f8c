// Package service orchestrates the import and allocation engines against
// the storage collaborator and the registered entity schemas. It owns the
// I/O the engines deliberately avoid: parsing uploaded text, looking up and
// persisting records, and committing allocation batches.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk/internal/allocation"
	"github.com/assetdesk/assetdesk/internal/csv"
	"github.com/assetdesk/assetdesk/internal/importer"
	"github.com/assetdesk/assetdesk/internal/logging"
	"github.com/assetdesk/assetdesk/internal/schema"
	"github.com/assetdesk/assetdesk/internal/store"
)

// ErrUnknownEntity is returned for entity keys with no registered mapping.
var ErrUnknownEntity = fmt.Errorf("unknown entity")

// ErrInvalidRelease is returned when a release carries a quantity below 1.
// Letting one through would add a non-positive amount to the pool and could
// drive the available count negative.
var ErrInvalidRelease = fmt.Errorf("release quantity must be at least 1")

// Service wires the engines to storage and serializes imports per entity.
type Service struct {
	store store.Store
	gate  *Gate
}

// New creates a Service using the given store and import gate. A nil gate
// gets the defaults.
func New(st store.Store, gate *Gate) *Service {
	if gate == nil {
		gate = NewGate(DefaultMaxConcurrentImports, DefaultMaxWaitTime)
	}
	return &Service{store: st, gate: gate}
}

// Gate exposes the import gate for shutdown draining.
func (s *Service) Gate() *Gate {
	return s.gate
}

// EntityInfo describes one importable entity for the API.
type EntityInfo struct {
	Key        string   `json:"key"`
	Label      string   `json:"label"`
	Columns    []string `json:"columns"`
	NaturalKey []string `json:"naturalKey"`
}

// ListEntities returns all registered entities sorted by key.
func (s *Service) ListEntities() []EntityInfo {
	defs := schema.All()
	infos := make([]EntityInfo, len(defs))
	for i, def := range defs {
		infos[i] = EntityInfo{
			Key:        def.Mapping.Entity,
			Label:      def.Mapping.Label,
			Columns:    def.Mapping.Header(),
			NaturalKey: def.NaturalKey,
		}
	}
	return infos
}

// Template returns the canonical CSV header row for an entity.
func (s *Service) Template(entityKey string) (string, error) {
	def, ok := schema.Get(entityKey)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEntity, entityKey)
	}
	return csv.Serialize([][]string{def.Mapping.Header()}), nil
}

// ImportReport is the caller-facing summary of one import run.
type ImportReport struct {
	ImportID string           `json:"importId"`
	Entity   string           `json:"entity"`
	FileName string           `json:"fileName,omitempty"`
	DryRun   bool             `json:"dryRun"`
	Outcome  importer.Outcome `json:"outcome"`
	Duration time.Duration    `json:"-"`
}

// Import parses raw CSV text, reconciles it against the entity's existing
// records, and persists the resulting operations. One import per entity
// runs at a time; concurrent requests for the same entity wait or fail with
// ErrImportBusy.
func (s *Service) Import(ctx context.Context, entityKey, fileName, raw string) (*ImportReport, error) {
	def, ok := schema.Get(entityKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entityKey)
	}

	if err := s.gate.Acquire(ctx, entityKey); err != nil {
		return nil, err
	}
	defer s.gate.Release(entityKey)

	start := time.Now()
	report, ops, err := s.reconcile(ctx, def, fileName, raw, false)
	if err != nil {
		return nil, err
	}

	if err := s.store.ApplyOperations(ctx, entityKey, ops); err != nil {
		return nil, fmt.Errorf("persist import: %w", err)
	}

	report.Duration = time.Since(start)
	logging.FromContext(ctx).Info("import complete",
		"import_id", report.ImportID,
		"entity", entityKey,
		"total", report.Outcome.Total,
		"created", report.Outcome.Created,
		"updated", report.Outcome.Updated,
		"failed", report.Outcome.Failed,
		"duration", report.Duration,
	)
	return report, nil
}

// Preview runs the same parse and reconciliation without persisting
// anything, for validation feedback before the user commits.
func (s *Service) Preview(ctx context.Context, entityKey, fileName, raw string) (*ImportReport, error) {
	def, ok := schema.Get(entityKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entityKey)
	}

	report, _, err := s.reconcile(ctx, def, fileName, raw, true)
	return report, err
}

func (s *Service) reconcile(ctx context.Context, def schema.Definition, fileName, raw string, dryRun bool) (*ImportReport, []importer.Operation, error) {
	table, err := csv.Parse(raw)
	if err != nil {
		return nil, nil, err
	}

	ops, outcome, err := importer.Reconcile(table, def.Mapping, store.LookupFor(ctx, s.store, def.Mapping.Entity), def.NaturalKey)
	if err != nil {
		return nil, nil, err
	}

	report := &ImportReport{
		ImportID: uuid.New().String(),
		Entity:   def.Mapping.Entity,
		FileName: fileName,
		DryRun:   dryRun,
		Outcome:  outcome,
	}
	return report, ops, nil
}

// AllocationReport is the caller-facing summary of one allocation batch.
type AllocationReport struct {
	PoolID      string                  `json:"poolId"`
	DryRun      bool                    `json:"dryRun"`
	Assignments []allocation.Assignment `json:"assignments"`
	Remaining   int                     `json:"remaining"`
}

// Allocate validates an allocation batch against the pool's current stock
// and commits it. The commit re-checks stock atomically, so a pool that
// shrank after validation fails the batch rather than over-allocating.
func (s *Service) Allocate(ctx context.Context, poolID string, requests []allocation.Request) (*AllocationReport, error) {
	available, err := s.store.GetAvailableQuantity(ctx, poolID)
	if err != nil {
		return nil, err
	}

	result, err := allocation.Allocate(requests, available)
	if err != nil {
		return nil, err
	}

	if err := s.store.CommitAllocation(ctx, poolID, result.Assignments); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("allocation committed",
		"pool", poolID,
		"assignments", len(result.Assignments),
		"remaining", result.Remaining,
	)
	return &AllocationReport{
		PoolID:      poolID,
		Assignments: result.Assignments,
		Remaining:   result.Remaining,
	}, nil
}

// ValidateAllocation runs the allocation engine without committing,
// backing live form feedback before submit.
func (s *Service) ValidateAllocation(ctx context.Context, poolID string, requests []allocation.Request) (*AllocationReport, error) {
	available, err := s.store.GetAvailableQuantity(ctx, poolID)
	if err != nil {
		return nil, err
	}

	result, err := allocation.Allocate(requests, available)
	if err != nil {
		return nil, err
	}

	return &AllocationReport{
		PoolID:      poolID,
		DryRun:      true,
		Assignments: result.Assignments,
		Remaining:   result.Remaining,
	}, nil
}

// Release returns an assignment's units to its pool and reports the pool's
// new available quantity.
func (s *Service) Release(ctx context.Context, poolID string, a allocation.Assignment) (int, error) {
	qty := allocation.Release(a)
	if qty < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidRelease, qty)
	}
	if err := s.store.ReturnToPool(ctx, poolID, qty); err != nil {
		return 0, err
	}
	return s.store.GetAvailableQuantity(ctx, poolID)
}
