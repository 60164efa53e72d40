package codec

import (
	"errors"
	"fmt"
	"io"

	"dsla/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse reads a YAML sequence of mappings. An empty document is an empty batch.
func (c *YAMLCodec) Parse(r io.Reader) ([]domain.Record, error) {
	var records []domain.Record
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&records); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return records, nil
}

// Export writes documents as a YAML sequence
func (c *YAMLCodec) Export(docs []domain.Document, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(flatten(docs)); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
