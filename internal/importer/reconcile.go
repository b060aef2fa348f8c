package importer

import (
	"fmt"
	"strings"

	"github.com/assetdesk/assetdesk/internal/csv"
)

// Action classifies an operation against the store.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// LookupFn resolves a natural key to an existing record's id. The storage
// collaborator must make the lookup+write pair it backs atomic (advisory
// lock or conditional write); the engine itself does not serialize
// concurrent imports over the same key space.
type LookupFn func(key string) (id string, found bool, err error)

// Operation is one planned write. Fields holds only values present in the
// row; on an update, absent fields must leave stored values unchanged.
type Operation struct {
	Action Action            `json:"action"`
	Key    string            `json:"key"`
	ID     string            `json:"id,omitempty"` // existing record id for updates
	Fields map[string]string `json:"fields"`
	Extras map[string]string `json:"extras,omitempty"` // unresolved header columns, preserved
}

// RowError is one non-fatal per-row failure. Row is the 1-based data row
// number, header excluded, so messages match what the user sees in their
// spreadsheet minus the header.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Outcome summarizes one reconciliation run. Total excludes fully blank
// rows. Immutable once returned.
type Outcome struct {
	Total   int        `json:"total"`
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Failed  int        `json:"failed"`
	Errors  []RowError `json:"errors,omitempty"`
}

// MakeKey builds a natural key from the named fields of a record.
func MakeKey(fields map[string]string, naturalKey []string) string {
	parts := make([]string, len(naturalKey))
	for i, name := range naturalKey {
		parts[i] = fields[name]
	}
	return strings.Join(parts, "|")
}

// Reconcile walks a parsed table against a field mapping and classifies each
// valid row as a create or an update of an existing record.
//
// Row processing is strictly sequential in input order and one bad row never
// aborts the batch: failures are recorded in the outcome's error list and
// the walk continues. Fatal conditions are a missing/unresolvable header
// (SchemaError) and a lookup infrastructure failure.
//
// The returned operations are not persisted here; the caller hands them to
// the storage collaborator.
func Reconcile(table [][]string, mapping Mapping, lookup LookupFn, naturalKey []string) ([]Operation, Outcome, error) {
	var outcome Outcome

	if len(table) == 0 {
		return nil, outcome, &SchemaError{Entity: mapping.Entity, Missing: mapping.requiredNames()}
	}

	bind, err := mapping.resolve(table[0])
	if err != nil {
		return nil, outcome, err
	}

	width := len(table[0])
	var ops []Operation

	for i, raw := range table[1:] {
		rowNum := i + 1 // 1-based, header excluded

		row := csv.PadRow(raw, width)
		if len(row) > width {
			row = row[:width]
		}
		if blank(row) {
			continue
		}
		outcome.Total++

		record, extras, rowErr := bind.buildRecord(row)
		if rowErr == "" {
			rowErr = validateRequired(record, mapping)
		}
		if rowErr == "" {
			rowErr = validateNaturalKey(record, naturalKey)
		}
		if rowErr != "" {
			outcome.Failed++
			outcome.Errors = append(outcome.Errors, RowError{Row: rowNum, Message: rowErr})
			continue
		}

		fields := record.Fields()
		key := MakeKey(fields, naturalKey)

		id, found, err := lookup(key)
		if err != nil {
			return nil, outcome, fmt.Errorf("lookup %q: %w", key, err)
		}

		op := Operation{Key: key, Fields: fields, Extras: extras}
		if found {
			op.Action = ActionUpdate
			op.ID = id
			outcome.Updated++
		} else {
			op.Action = ActionCreate
			outcome.Created++
		}
		ops = append(ops, op)
	}

	return ops, outcome, nil
}

// buildRecord applies each bound column's coercion in header order. A
// coercion failure fails the row with the offending field named.
func (b *binding) buildRecord(row []string) (Record, map[string]string, string) {
	record := make(Record)
	var extras map[string]string

	for i, col := range b.columns {
		cell := row[i]

		if col.field == nil {
			if v := NewValue(cell); v.Valid && col.extra != "" {
				if extras == nil {
					extras = make(map[string]string)
				}
				extras[col.extra] = v.Raw
			}
			continue
		}

		v := NewValue(cell)
		if v.Valid && col.field.Coerce != nil {
			coerced, err := col.field.Coerce(v.Raw)
			if err != nil {
				return nil, nil, fmt.Sprintf("%s: %v", col.field.Name, err)
			}
			v.Raw = coerced
		}
		record[col.field.Name] = v
	}

	return record, extras, ""
}

func validateRequired(record Record, mapping Mapping) string {
	for _, f := range mapping.Fields {
		if !f.Required {
			continue
		}
		if v, ok := record[f.Name]; !ok || !v.Valid {
			return fmt.Sprintf("missing required field %q", f.Name)
		}
	}
	return ""
}

func validateNaturalKey(record Record, naturalKey []string) string {
	for _, name := range naturalKey {
		if v, ok := record[name]; !ok || !v.Valid {
			return fmt.Sprintf("missing natural key field %q", name)
		}
	}
	return ""
}

func (m Mapping) requiredNames() []string {
	var names []string
	for _, f := range m.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
