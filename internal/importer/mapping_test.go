package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Seat Number", "seatnumber"},
		{"seat_number", "seatnumber"},
		{"SEATNUMBER", "seatnumber"},
		{"  Knox-ID ", "knoxid"},
		{"serial\tnumber", "serialnumber"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHeader(tt.in), "NormalizeHeader(%q)", tt.in)
	}
}

func TestResolveBindsAliases(t *testing.T) {
	m := monitorMapping()
	b, err := m.resolve([]string{"Seat No", "Knox", "SN", "Notes"})
	require.NoError(t, err)

	require.Len(t, b.columns, 4)
	assert.Equal(t, "seatNumber", b.columns[0].field.Name)
	assert.Equal(t, "knoxId", b.columns[1].field.Name)
	assert.Equal(t, "serialNumber", b.columns[2].field.Name)
	assert.Equal(t, "remark", b.columns[3].field.Name)
}

func TestResolveUnknownColumnsBecomeExtras(t *testing.T) {
	m := monitorMapping()
	b, err := m.resolve([]string{"seatNumber", "Purchase Order"})
	require.NoError(t, err)

	assert.Nil(t, b.columns[1].field)
	assert.Equal(t, "Purchase Order", b.columns[1].extra)
}

func TestResolveNoRequiredMatchFails(t *testing.T) {
	m := monitorMapping()
	_, err := m.resolve([]string{"knox", "serial"})
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "monitors", schemaErr.Entity)
}

func TestMappingHeader(t *testing.T) {
	m := monitorMapping()
	assert.Equal(t, []string{"seatNumber", "knoxId", "serialNumber", "quantity", "remark"}, m.Header())
}

func TestNewValuePlaceholders(t *testing.T) {
	for _, raw := range []string{"", "  ", "N/A", "n/a", "NULL", "null"} {
		assert.False(t, NewValue(raw).Valid, "NewValue(%q) should be no-value", raw)
	}
	v := NewValue("  A001 ")
	assert.True(t, v.Valid)
	assert.Equal(t, "A001", v.Raw)
}
