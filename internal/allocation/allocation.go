// Package allocation implements bulk quantity allocation: distributing a
// finite pool of equipment units across multiple assignee rows at once.
//
// The engine only certifies that a batch is internally consistent and fits
// the available supply; it performs no I/O, so the same call backs both the
// commit path and live dry-run validation in the UI. Batches are
// all-or-nothing: one invalid request or an over-capacity total rejects the
// whole batch with no operations emitted.
package allocation

import (
	"fmt"
	"strings"
	"time"
)

// Request is one allocation line: who receives units, optional identifiers,
// and how many. A serial number implies an individually accountable unit, so
// it must be paired with a Knox ID.
type Request struct {
	Assignee     string `json:"assignee"`
	KnoxID       string `json:"knoxId,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
	Quantity     int    `json:"quantity"`
	Notes        string `json:"notes,omitempty"`
}

// Assignment is one committed allocation operation, persisted by the caller.
type Assignment struct {
	Assignee     string    `json:"assignee"`
	KnoxID       string    `json:"knoxId,omitempty"`
	SerialNumber string    `json:"serialNumber,omitempty"`
	Quantity     int       `json:"quantity"`
	Notes        string    `json:"notes,omitempty"`
	AssignedAt   time.Time `json:"assignedAt"`
}

// Result is the success outcome: the operations to persist and the pool
// count after they apply.
type Result struct {
	Assignments []Assignment `json:"assignments"`
	Remaining   int          `json:"remaining"`
}

// RequestError rejects a batch because one request is invalid. Index is the
// zero-based position in the submitted batch.
type RequestError struct {
	Index  int
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %d: %s", e.Index+1, e.Reason)
}

// CapacityError rejects a batch whose aggregate demand exceeds supply.
// Partially honoring the batch would silently change the caller's intent,
// so nothing is allocated.
type CapacityError struct {
	Requested int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("requested %d units but only %d available", e.Requested, e.Available)
}

// Allocate validates a batch of requests against the available pool and, on
// success, emits one timestamped assignment per request plus the remaining
// pool count. All validation happens before any operation is proposed.
func Allocate(requests []Request, available int) (*Result, error) {
	total := 0
	for i, req := range requests {
		if strings.TrimSpace(req.Assignee) == "" {
			return nil, &RequestError{Index: i, Reason: "assignee is required"}
		}
		if req.Quantity < 1 {
			return nil, &RequestError{Index: i, Reason: fmt.Sprintf("quantity must be at least 1, got %d", req.Quantity)}
		}
		if req.SerialNumber != "" && req.KnoxID == "" {
			return nil, &RequestError{Index: i, Reason: "serial number requires a paired Knox ID"}
		}
		total += req.Quantity
	}

	if total > available {
		return nil, &CapacityError{Requested: total, Available: available}
	}

	now := time.Now().UTC()
	assignments := make([]Assignment, len(requests))
	for i, req := range requests {
		assignments[i] = Assignment{
			Assignee:     req.Assignee,
			KnoxID:       req.KnoxID,
			SerialNumber: req.SerialNumber,
			Quantity:     req.Quantity,
			Notes:        req.Notes,
			AssignedAt:   now,
		}
	}

	return &Result{Assignments: assignments, Remaining: available - total}, nil
}

// Release returns an assignment's units to the pool. Reversing an
// allocation can never over-allocate, so there is nothing to validate
// beyond the assignment having existed.
func Release(a Assignment) int {
	return a.Quantity
}
