// Package service implements the record ledger's business logic.
//
// # Services
//
// DedupService works on batches keyed by the active identity schema.
// CheckDuplicates labels every record New or Duplicate; InsertNew stores only
// the records whose identifying value is absent, reduced to that field.
// Both fetch the full identifier list from the store once per call.
//
// DocumentService works on single records compared and stored whole:
// full-field duplicate check, verbatim insert, the process-data insert and
// the full dump.
//
// # Consistency
//
// The fetch-then-insert sequence is not atomic. The store's uniqueness
// constraint catches a concurrent writer; InsertNew reports those rows as
// conflicts rather than failing.
//
// # Events and tracing
//
// Successful inserts are published on the EventBus for the SSE hub. Each
// operation opens an OpenTelemetry span; the global tracer provider is a
// no-op unless tracing is enabled.
package service
