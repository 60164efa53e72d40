// Package domain defines the record ledger's core types.
//
// A Record is whatever mapping a caller submits. Which of its fields makes it
// unique is decided by an IdentitySchema: v1 keys records by "filename", v2
// by "GitHub Repo Name". One schema is active per process.
//
// LabeledRecord, InsertResult and Document are the results handed back by the
// services. IdentifierSet is the per-call snapshot of stored identifying
// values used to label a batch.
//
// This package has no storage or transport dependencies.
package domain
