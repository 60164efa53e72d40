package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	"dsla/internal/domain"
	"dsla/internal/repository"
)

// DocumentService handles single-document operations. Unlike DedupService
// it compares and stores whole records.
type DocumentService struct {
	store    repository.Store
	schema   domain.IdentitySchema
	eventBus *EventBus
	logger   *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(store repository.Store, schema domain.IdentitySchema, eventBus *EventBus, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		store:    store,
		schema:   schema,
		eventBus: eventBus,
		logger:   logger,
	}
}

// CheckDuplicate reports whether a document with exactly the same fields and
// values is stored. Matching only the identifying field is not enough.
func (s *DocumentService) CheckDuplicate(ctx context.Context, record domain.Record) (bool, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "documents.check_duplicate")
	defer span.End()

	found, err := s.store.HasDocument(ctx, record)
	if err != nil {
		return false, spanError(span, fmt.Errorf("check duplicate: %w", err))
	}
	return found, nil
}

// InsertDocument stores the record with all of its fields and returns the
// store-assigned id
func (s *DocumentService) InsertDocument(ctx context.Context, record domain.Record) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "documents.insert_document")
	defer span.End()

	id, err := s.store.InsertOne(ctx, s.schema.Field, record)
	if err != nil {
		return "", spanError(span, fmt.Errorf("insert document: %w", err))
	}

	s.logger.Info("inserted document", "id", id, "fields", len(record))
	s.eventBus.Publish(Event{
		Type:    EventDocumentInserted,
		Payload: map[string]string{"inserted_id": id},
	})

	return id, nil
}

// ProcessData stores a raw input string as {"input_data": input} and returns
// a confirmation message carrying the new id
func (s *DocumentService) ProcessData(ctx context.Context, input string) (string, error) {
	id, err := s.InsertDocument(ctx, domain.Record{"input_data": input})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Data inserted with ID: %s", id), nil
}

// ListDocuments returns the full store contents
func (s *DocumentService) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "documents.list")
	defer span.End()

	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("list documents: %w", err))
	}
	return docs, nil
}

// Ping checks the store is reachable
func (s *DocumentService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	return nil
}
