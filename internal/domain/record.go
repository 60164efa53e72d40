package domain

import (
	"fmt"
	"time"
)

// Record is an arbitrary mapping of field names to values submitted by a caller
type Record map[string]any

// Value returns the string form of a field and whether the field is present.
// Non-string values are rendered with fmt so numeric identifiers still compare.
func (r Record) Value(field string) (string, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Status is the duplicate label attached to a submitted record
type Status string

const (
	StatusNew       Status = "New"
	StatusDuplicate Status = "Duplicate"
)

// StatusField is the field name the duplicate label is written under
const StatusField = "Duplicate Status"

// LabeledRecord is a submitted record with its computed duplicate status
type LabeledRecord struct {
	Record Record
	Status Status
}

// Row flattens the label into the record, the shape returned to callers
func (l LabeledRecord) Row() Record {
	row := l.Record.Clone()
	row[StatusField] = string(l.Status)
	return row
}

// InsertResult reports the outcome of a bulk insert of new records
type InsertResult struct {
	Inserted  int `json:"inserted_count"`
	Conflicts int `json:"conflict_count,omitempty"`
}

// Document is a stored record together with its store-assigned id
type Document struct {
	ID        string    `json:"_id" yaml:"_id"`
	Fields    Record    `json:"fields" yaml:"fields"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Flatten returns the document fields with the id merged in under "_id"
func (d Document) Flatten() Record {
	row := d.Fields.Clone()
	row["_id"] = d.ID
	return row
}

// IdentifierSet is the set of identifying values currently present in the store
type IdentifierSet map[string]struct{}

// NewIdentifierSet builds a set from a lookup result, collapsing repeats
func NewIdentifierSet(values []string) IdentifierSet {
	set := make(IdentifierSet, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Contains reports exact, case-sensitive membership
func (s IdentifierSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}
