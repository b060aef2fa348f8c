// Package importer implements the import reconciliation engine: it maps
// parsed CSV tables onto canonical entity fields, validates and coerces each
// row, and classifies rows as creates or updates against existing inventory
// records by natural key.
//
// The engine performs no I/O. Lookups against existing records go through an
// injected function, and the emitted operations are persisted by the caller,
// so the whole pipeline is testable without a live store.
package importer

import "strings"

// Value is one mapped cell. Valid is false for the "no value" marker: a
// blank or placeholder cell (N/A, NULL). A no-value cell on an update must
// leave the stored field unchanged rather than overwrite it with a blank.
type Value struct {
	Raw   string
	Valid bool
}

// Record is one mapped and coerced row, keyed by canonical field name.
type Record map[string]Value

// placeholders are cell contents treated as "no value", matched
// case-insensitively. These show up in exports from the legacy screens.
var placeholders = []string{"N/A", "NULL"}

// NewValue normalizes a raw cell into a Value, mapping blanks and
// placeholders to the no-value marker.
func NewValue(raw string) Value {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Value{}
	}
	for _, p := range placeholders {
		if strings.EqualFold(raw, p) {
			return Value{}
		}
	}
	return Value{Raw: raw, Valid: true}
}

// Fields returns only the present (Valid) values as a plain map, the shape
// handed to the storage collaborator for a create or merge-update.
func (r Record) Fields() map[string]string {
	out := make(map[string]string, len(r))
	for name, v := range r {
		if v.Valid {
			out[name] = v.Raw
		}
	}
	return out
}
