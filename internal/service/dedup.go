package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dsla/internal/domain"
	"dsla/internal/repository"
)

const tracerName = "dsla/service"

// DedupService filters and inserts batches keyed by the identifying field
type DedupService struct {
	store    repository.Store
	schema   domain.IdentitySchema
	eventBus *EventBus
	logger   *slog.Logger
}

// NewDedupService creates a new dedup service
func NewDedupService(store repository.Store, schema domain.IdentitySchema, eventBus *EventBus, logger *slog.Logger) *DedupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DedupService{
		store:    store,
		schema:   schema,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Schema returns the active identity schema
func (s *DedupService) Schema() domain.IdentitySchema {
	return s.schema
}

// ExistingIdentifiers fetches the identifying value of every stored record.
// Called fresh on every operation; nothing is cached.
func (s *DedupService) ExistingIdentifiers(ctx context.Context) (domain.IdentifierSet, error) {
	values, err := s.store.ListIdentifiers(ctx, s.schema.Field)
	if err != nil {
		return nil, fmt.Errorf("fetch existing identifiers: %w", err)
	}
	return domain.NewIdentifierSet(values), nil
}

// CheckDuplicates labels each record New or Duplicate. Output order and
// length match the input batch.
func (s *DedupService) CheckDuplicates(ctx context.Context, batch []domain.Record) ([]domain.LabeledRecord, error) {
	ctx, span := s.startSpan(ctx, "dedup.check_duplicates", len(batch))
	defer span.End()

	if !s.schema.Covers(batch) {
		return nil, spanError(span, domain.MissingFieldError(s.schema.Field))
	}
	if err := s.schema.CheckValues(batch); err != nil {
		return nil, spanError(span, err)
	}

	existing, err := s.ExistingIdentifiers(ctx)
	if err != nil {
		return nil, spanError(span, err)
	}

	labeled := make([]domain.LabeledRecord, len(batch))
	duplicates := 0
	for i, rec := range batch {
		status := domain.StatusNew
		if v, ok := s.schema.Identifier(rec); ok && existing.Contains(v) {
			status = domain.StatusDuplicate
			duplicates++
		}
		labeled[i] = domain.LabeledRecord{Record: rec, Status: status}
	}

	span.SetAttributes(attribute.Int("dsla.duplicates", duplicates))
	s.logger.Debug("checked batch for duplicates",
		"records", len(batch), "duplicates", duplicates, "existing", len(existing))

	return labeled, nil
}

// InsertNew inserts the records whose identifying value is not yet stored.
// Inserted records are reduced to the identifying field. Rows the store
// rejects as already present are reported as conflicts.
func (s *DedupService) InsertNew(ctx context.Context, batch []domain.Record) (domain.InsertResult, error) {
	ctx, span := s.startSpan(ctx, "dedup.insert_new", len(batch))
	defer span.End()

	if !s.schema.Covers(batch) {
		return domain.InsertResult{}, spanError(span, domain.MissingFieldError(s.schema.Field))
	}
	if err := s.schema.CheckValues(batch); err != nil {
		return domain.InsertResult{}, spanError(span, err)
	}

	existing, err := s.ExistingIdentifiers(ctx)
	if err != nil {
		return domain.InsertResult{}, spanError(span, err)
	}

	fresh := make([]domain.Record, 0, len(batch))
	for _, rec := range batch {
		v, ok := s.schema.Identifier(rec)
		if !ok || existing.Contains(v) {
			continue
		}
		fresh = append(fresh, s.schema.Project(rec))
	}

	if len(fresh) == 0 {
		return domain.InsertResult{}, nil
	}

	inserted, conflicts, err := s.store.InsertMany(ctx, s.schema.Field, fresh)
	if err != nil {
		return domain.InsertResult{}, spanError(span, fmt.Errorf("insert new records: %w", err))
	}

	result := domain.InsertResult{Inserted: inserted, Conflicts: conflicts}
	span.SetAttributes(
		attribute.Int("dsla.inserted", inserted),
		attribute.Int("dsla.conflicts", conflicts),
	)
	if conflicts > 0 {
		s.logger.Warn("store rejected records already present",
			"field", s.schema.Field, "conflicts", conflicts)
	}
	s.logger.Info("inserted new records", "records", len(batch), "inserted", inserted)

	if inserted > 0 {
		s.eventBus.Publish(Event{
			Type:    EventRecordsInserted,
			Payload: result,
		})
	}

	return result, nil
}

func (s *DedupService) startSpan(ctx context.Context, name string, size int) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	span.SetAttributes(
		attribute.String("dsla.identity_field", s.schema.Field),
		attribute.Int("dsla.batch_size", size),
	)
	return ctx, span
}

// spanError records err on the span and returns it unchanged
func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
