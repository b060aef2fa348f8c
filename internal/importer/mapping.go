package importer

import (
	"fmt"
	"strings"
)

// Field declares one canonical entity field and the CSV header spellings
// that resolve to it. Matching is case-insensitive and ignores whitespace
// and underscores, so "Seat Number", "seat_number" and "SEATNUMBER" all bind
// the same field.
type Field struct {
	Name     string     // canonical field name, e.g. "seatNumber"
	Aliases  []string   // additional accepted header spellings
	Required bool       // rows with no value here are rejected
	Coerce   CoerceFunc // nil means identity
}

// Mapping is the per-entity field mapping supplied by the calling screen.
type Mapping struct {
	Entity string
	Label  string
	Fields []Field
}

// SchemaError means the header row resolved to none of the mapping's
// required fields, so there is nothing to reconcile against. Fatal: no rows
// are processed.
type SchemaError struct {
	Entity  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: no header column matches required fields: %s",
		e.Entity, strings.Join(e.Missing, ", "))
}

// NormalizeHeader canonicalizes a header cell for alias matching:
// lowercased, trimmed, with internal whitespace and underscores removed.
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '_', '-':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// column is one resolved header position. Exactly one of field/extra is set.
type column struct {
	field *Field
	extra string // literal header name for columns no field claims
}

// binding is the result of resolving a header row against a mapping.
type binding struct {
	columns []column
}

// resolve maps each header cell to a canonical field by normalized alias
// lookup. Unresolved headers are preserved under their literal name as
// extras so forward-compatible columns survive a round trip. Fails with
// SchemaError when the mapping has required fields and the header binds none
// of them.
func (m Mapping) resolve(header []string) (*binding, error) {
	byAlias := make(map[string]*Field)
	for i := range m.Fields {
		f := &m.Fields[i]
		byAlias[NormalizeHeader(f.Name)] = f
		for _, a := range f.Aliases {
			byAlias[NormalizeHeader(a)] = f
		}
	}

	b := &binding{columns: make([]column, len(header))}
	bound := make(map[string]bool)
	for i, h := range header {
		if f, ok := byAlias[NormalizeHeader(h)]; ok {
			b.columns[i] = column{field: f}
			bound[f.Name] = true
			continue
		}
		b.columns[i] = column{extra: strings.TrimSpace(h)}
	}

	var required []string
	anyRequiredBound := false
	for _, f := range m.Fields {
		if !f.Required {
			continue
		}
		required = append(required, f.Name)
		if bound[f.Name] {
			anyRequiredBound = true
		}
	}
	if len(required) > 0 && !anyRequiredBound {
		return nil, &SchemaError{Entity: m.Entity, Missing: required}
	}

	return b, nil
}

// Header returns the canonical header row for this mapping, used for
// template downloads.
func (m Mapping) Header() []string {
	header := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		header[i] = f.Name
	}
	return header
}
