package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"dsla/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse reads a JSON array of records
func (c *JSONCodec) Parse(r io.Reader) ([]domain.Record, error) {
	var records []domain.Record
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return records, nil
}

// Export writes documents as an indented JSON array
func (c *JSONCodec) Export(docs []domain.Document, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(flatten(docs)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
