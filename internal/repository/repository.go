package repository

import (
	"context"

	"dsla/internal/domain"
)

// Store defines the document persistence operations used by the services.
// It is satisfied by the sqlite and badger implementations.
type Store interface {
	// ListIdentifiers returns the value of field for every stored document
	// that carries it. Repeats are not collapsed.
	ListIdentifiers(ctx context.Context, field string) ([]string, error)

	// InsertMany stores records in one write. Records whose identifying value
	// (under field) is already stored are skipped and counted as conflicts.
	InsertMany(ctx context.Context, field string, records []domain.Record) (inserted, conflicts int, err error)

	// InsertOne stores a record verbatim and returns its assigned id.
	// Returns domain.ErrConflict if the identifying value is already stored.
	InsertOne(ctx context.Context, field string, record domain.Record) (string, error)

	// HasDocument reports whether a document with exactly these fields exists
	HasDocument(ctx context.Context, record domain.Record) (bool, error)

	// ListDocuments returns every stored document in insertion order
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error

	// Close releases resources
	Close() error
}
