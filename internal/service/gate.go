package service

// gate.go implements concurrency control for import processing.
//
// Two layers: a global semaphore caps parallel imports to protect the
// database, and a per-entity slot serializes imports into the same
// natural-key space. The reconciliation engine's lookup/write pair is only
// race-free if the store serializes it or the caller runs one import at a
// time per entity; the gate enforces the latter.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrImportBusy is returned when no import slot frees up within the wait
// window. Clients should retry after a short delay.
var ErrImportBusy = errors.New("another import is in progress, please try again later")

// DefaultMaxConcurrentImports is the default global limit.
const DefaultMaxConcurrentImports = 5

// DefaultMaxWaitTime is how long Acquire waits for a slot before rejecting.
const DefaultMaxWaitTime = 10 * time.Second

// Gate limits concurrent imports globally and serializes them per entity.
type Gate struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu       sync.Mutex
	entities map[string]chan struct{}
	active   int
}

// NewGate creates a gate allowing at most maxConcurrent simultaneous
// imports across all entities, and one per entity.
func NewGate(maxConcurrent int, maxWait time.Duration) *Gate {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &Gate{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
		entities:  make(map[string]chan struct{}),
	}
}

func (g *Gate) entitySlot(entity string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	slot, ok := g.entities[entity]
	if !ok {
		slot = make(chan struct{}, 1)
		g.entities[entity] = slot
	}
	return slot
}

// Acquire claims both the global and the per-entity slot.
// The caller MUST call Release with the same entity when done (use defer).
func (g *Gate) Acquire(ctx context.Context, entity string) error {
	waitCtx, cancel := context.WithTimeout(ctx, g.maxWait)
	defer cancel()

	select {
	case g.semaphore <- struct{}{}:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrImportBusy
	}

	select {
	case g.entitySlot(entity) <- struct{}{}:
	case <-waitCtx.Done():
		<-g.semaphore
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrImportBusy
	}

	g.mu.Lock()
	g.active++
	g.mu.Unlock()
	return nil
}

// Release frees the slots claimed by a successful Acquire.
func (g *Gate) Release(entity string) {
	<-g.entitySlot(entity)
	<-g.semaphore

	g.mu.Lock()
	g.active--
	g.mu.Unlock()
}

// ActiveCount returns the number of imports currently holding a slot.
func (g *Gate) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// WaitForDrain blocks until all active imports complete or ctx is
// cancelled. Used for graceful shutdown.
func (g *Gate) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if g.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
