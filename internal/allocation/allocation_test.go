package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateSuccess(t *testing.T) {
	requests := []Request{
		{Assignee: "kim.min", KnoxID: "KNOX1", SerialNumber: "SN-1", Quantity: 1},
		{Assignee: "lee.jae", Quantity: 3, Notes: "project room"},
	}

	result, err := Allocate(requests, 10)
	require.NoError(t, err)

	assert.Equal(t, 6, result.Remaining)
	require.Len(t, result.Assignments, 2)
	assert.Equal(t, "kim.min", result.Assignments[0].Assignee)
	assert.Equal(t, "SN-1", result.Assignments[0].SerialNumber)
	assert.Equal(t, 3, result.Assignments[1].Quantity)
	assert.False(t, result.Assignments[0].AssignedAt.IsZero())
}

func TestAllocateExactCapacity(t *testing.T) {
	result, err := Allocate([]Request{{Assignee: "a", Quantity: 5}}, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Remaining)
}

func TestAllocateCapacityExceeded(t *testing.T) {
	requests := []Request{
		{Assignee: "a", Quantity: 4},
		{Assignee: "b", Quantity: 3},
	}

	result, err := Allocate(requests, 6)
	require.Nil(t, result)

	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 7, capErr.Requested)
	assert.Equal(t, 6, capErr.Available)
}

func TestAllocateBatchIsAllOrNothing(t *testing.T) {
	tests := []struct {
		name     string
		requests []Request
		reason   string
	}{
		{
			name: "empty assignee",
			requests: []Request{
				{Assignee: "ok", Quantity: 1},
				{Assignee: "", Quantity: 1},
			},
			reason: "assignee",
		},
		{
			name: "whitespace assignee",
			requests: []Request{
				{Assignee: "ok", Quantity: 1},
				{Assignee: "   ", Quantity: 1},
			},
			reason: "assignee",
		},
		{
			name: "zero quantity",
			requests: []Request{
				{Assignee: "ok", Quantity: 1},
				{Assignee: "bad", Quantity: 0},
			},
			reason: "quantity",
		},
		{
			name: "negative quantity",
			requests: []Request{
				{Assignee: "bad", Quantity: -2},
			},
			reason: "quantity",
		},
		{
			name: "serial without knox id",
			requests: []Request{
				{Assignee: "ok", Quantity: 1},
				{Assignee: "bad", SerialNumber: "SN-9", Quantity: 1},
			},
			reason: "Knox ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Allocate(tt.requests, 100)

			// No operations emitted for the valid requests either.
			assert.Nil(t, result)

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Contains(t, reqErr.Reason, tt.reason)
		})
	}
}

func TestAllocateEmptyBatch(t *testing.T) {
	result, err := Allocate(nil, 4)
	require.NoError(t, err)
	assert.Empty(t, result.Assignments)
	assert.Equal(t, 4, result.Remaining)
}

func TestRelease(t *testing.T) {
	assert.Equal(t, 3, Release(Assignment{Assignee: "a", Quantity: 3}))
}
