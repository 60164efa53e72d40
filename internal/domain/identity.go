package domain

import (
	"fmt"
	"strings"
)

// IdentitySchema declares which record field is the deduplication key.
// Field is the name stored in documents; WireField is the name callers use
// in HTTP request bodies where the stored name is not a valid identifier.
type IdentitySchema struct {
	Version   int    `json:"version" yaml:"version"`
	Name      string `json:"name" yaml:"name"`
	Field     string `json:"field" yaml:"field"`
	WireField string `json:"wire_field" yaml:"wire_field"`
}

var (
	// FilenameSchema keys records by uploaded file name
	FilenameSchema = IdentitySchema{
		Version:   1,
		Name:      "filename",
		Field:     "filename",
		WireField: "filename",
	}

	// RepoNameSchema keys records by GitHub repository name
	RepoNameSchema = IdentitySchema{
		Version:   2,
		Name:      "repo",
		Field:     "GitHub Repo Name",
		WireField: "GitHub_Repo_Name",
	}
)

// IdentitySchemas lists the known schemas in version order
var IdentitySchemas = []IdentitySchema{FilenameSchema, RepoNameSchema}

// DefaultIdentitySchema is the schema used when none is configured
var DefaultIdentitySchema = RepoNameSchema

// LookupIdentitySchema resolves a schema by name ("filename", "repo") or
// version ("v1", "2"). An empty string selects the default.
func LookupIdentitySchema(s string) (IdentitySchema, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return DefaultIdentitySchema, nil
	}
	key = strings.TrimPrefix(key, "v")
	for _, schema := range IdentitySchemas {
		if key == schema.Name || key == fmt.Sprint(schema.Version) {
			return schema, nil
		}
	}
	return IdentitySchema{}, fmt.Errorf("unknown identity schema %q", s)
}

// Identifier extracts the identifying value from a record
func (s IdentitySchema) Identifier(r Record) (string, bool) {
	return r.Value(s.Field)
}

// Covers reports whether at least one record in the batch carries the field.
// Presence is judged for the batch as a whole, not per record.
func (s IdentitySchema) Covers(batch []Record) bool {
	for _, r := range batch {
		if _, ok := r[s.Field]; ok {
			return true
		}
	}
	return false
}

// CheckValues rejects a batch in which any record carries the field with a
// value that is not a string
func (s IdentitySchema) CheckValues(batch []Record) error {
	for i, r := range batch {
		v, ok := r[s.Field]
		if !ok {
			continue
		}
		if _, isString := v.(string); !isString {
			return InvalidIdentifierError(s.Field, i, v)
		}
	}
	return nil
}

// Project reduces a record to just its identifying field
func (s IdentitySchema) Project(r Record) Record {
	v, ok := r[s.Field]
	if !ok {
		return Record{}
	}
	return Record{s.Field: v}
}

// FromWire renames the wire field of an incoming record to the stored field
func (s IdentitySchema) FromWire(r Record) Record {
	if s.WireField == s.Field {
		return r
	}
	v, ok := r[s.WireField]
	if !ok {
		return r
	}
	out := r.Clone()
	delete(out, s.WireField)
	out[s.Field] = v
	return out
}
