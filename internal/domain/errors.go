package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingIdentifier is returned when no record in a batch carries the
	// identifying field
	ErrMissingIdentifier = errors.New("missing identifying field")

	// ErrInvalidIdentifier is returned when an identifying value is not a string
	ErrInvalidIdentifier = errors.New("identifying field must be a string")

	// ErrConflict is returned when the store rejects a write because the
	// identifying value already exists
	ErrConflict = errors.New("duplicate identifier")
)

// MissingFieldError wraps ErrMissingIdentifier with the field name
func MissingFieldError(field string) error {
	return fmt.Errorf("%w: no record carries %q", ErrMissingIdentifier, field)
}

// ConflictError wraps ErrConflict with the offending value
func ConflictError(field, value string) error {
	return fmt.Errorf("%w: %s=%q already stored", ErrConflict, field, value)
}

// InvalidIdentifierError wraps ErrInvalidIdentifier with the field, the record
// position and the offending type
func InvalidIdentifierError(field string, index int, value any) error {
	if value == nil {
		return fmt.Errorf("%w: record %d has null %q", ErrInvalidIdentifier, index, field)
	}
	return fmt.Errorf("%w: record %d has %q of type %T", ErrInvalidIdentifier, index, field, value)
}
