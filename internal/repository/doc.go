// Package repository defines the data access interface for the record ledger.
//
// The Store interface is the only thing the services see. Two
// implementations live in subpackages:
//
// - sqlite: a documents table with the record body as canonical JSON, an
// extracted identifier column and a unique index on (id_field, identifier).
// Identifier lookup uses the JSON1 json_extract function so the key field
// is chosen per call.
//
// - badger: documents as JSON values under a collection prefix, with a
// secondary index key per identifying value.
//
// # Uniqueness
//
// Both stores enforce that an identifying value is stored at most once per
// field. Bulk inserts skip and count conflicting rows; single inserts fail
// with domain.ErrConflict.
//
// # Canonical bodies
//
// Record bodies are written with encoding/json, which sorts map keys. Two
// records with the same fields and values therefore produce identical bytes,
// which is what HasDocument compares.
package repository
