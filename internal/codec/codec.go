// Package codec reads record batches from files and writes stored documents
// out in JSON or YAML.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"dsla/internal/domain"
)

// Importer parses a batch of records
type Importer interface {
	Parse(r io.Reader) ([]domain.Record, error)
	Format() string
}

// Exporter writes stored documents, each flattened with its "_id"
type Exporter interface {
	Export(docs []domain.Document, w io.Writer) error
	Format() string
}

// Codec is both an Importer and an Exporter
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for "json" or "yaml"
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (expected json or yaml)", format)
	}
}

// ForPath picks a codec from the file extension, defaulting to JSON
func ForPath(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYAMLCodec()
	default:
		return NewJSONCodec()
	}
}

func flatten(docs []domain.Document) []domain.Record {
	rows := make([]domain.Record, len(docs))
	for i, d := range docs {
		rows[i] = d.Flatten()
	}
	return rows
}
