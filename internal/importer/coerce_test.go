package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt(t *testing.T) {
	got, err := Int(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, "42", got)

	_, err = Int("4.5")
	assert.Error(t, err)
	_, err = Int("many")
	assert.Error(t, err)
}

func TestIntOr(t *testing.T) {
	coerce := IntOr(1)

	got, err := coerce("7")
	require.NoError(t, err)
	assert.Equal(t, "7", got)

	got, err = coerce("unknown")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}

func TestMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1299.50", "1299.5"},
		{"$1,299.50", "1299.5"},
		{"€45", "45"},
		{"0", "0"},
	}
	for _, tt := range tests {
		got, err := Money(tt.in)
		require.NoError(t, err, "Money(%q)", tt.in)
		assert.Equal(t, tt.want, got, "Money(%q)", tt.in)
	}

	_, err := Money("free")
	assert.Error(t, err)
}

func TestDate(t *testing.T) {
	for _, in := range []string{"2026-03-15", "2026/03/15", "3/15/2026", "Mar 15, 2026", "20260315"} {
		got, err := Date(in)
		require.NoError(t, err, "Date(%q)", in)
		assert.Equal(t, "2026-03-15", got, "Date(%q)", in)
	}

	_, err := Date("someday")
	assert.Error(t, err)
}
