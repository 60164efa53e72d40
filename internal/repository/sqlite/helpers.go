package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"dsla/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string, ok bool) sql.NullString {
	if !ok {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// parseTime reads an RFC3339 timestamp, returning the zero time on error
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ============================================================================
// JSON Body Helpers
// ============================================================================

// encodeBody marshals a record to canonical JSON (map keys sorted)
func encodeBody(record domain.Record) (string, error) {
	if record == nil {
		record = domain.Record{}
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}
	return string(data), nil
}

// decodeBody unmarshals a stored body back into a record
func decodeBody(body string) (domain.Record, error) {
	var record domain.Record
	if err := json.Unmarshal([]byte(body), &record); err != nil {
		return nil, err
	}
	if record == nil {
		record = domain.Record{}
	}
	return record, nil
}

// insertArgs returns the bind arguments for insertSQL.
// MUST match column order: id, id_field, identifier, body, created_at
func insertArgs(id, field string, record domain.Record, now time.Time) ([]any, error) {
	body, err := encodeBody(record)
	if err != nil {
		return nil, err
	}
	value, ok := record.Value(field)
	return []any{
		id,
		stringToNull(field, ok),
		stringToNull(value, ok),
		body,
		now.Format(time.RFC3339Nano),
	}, nil
}

// ============================================================================
// DSN / Identifier Helpers
// ============================================================================

// buildDSN appends the pragmas used for file databases
func buildDSN(path string) string {
	if path == ":memory:" {
		return ":memory:"
	}
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// ensureDir creates the parent directory of a file database
func ensureDir(dsn string) error {
	dsn = strings.TrimPrefix(dsn, "file:")
	if idx := strings.IndexRune(dsn, '?'); idx >= 0 {
		dsn = dsn[:idx]
	}
	if dsn == "" || dsn == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteIdentifier validates and quotes a collection name for use as a table
func quoteIdentifier(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("collection name is required")
	}
	if !identifierPattern.MatchString(name) {
		return "", fmt.Errorf("collection name %q must match %s", name, identifierPattern.String())
	}
	return `"` + name + `"`, nil
}
