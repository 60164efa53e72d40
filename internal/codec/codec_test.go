package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"dsla/internal/domain"
)

func TestForFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"json", "json", false},
		{"YAML", "yaml", false},
		{"yml", "yaml", false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ForFormat(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Format() != tt.want {
				t.Errorf("Format() = %s, want %s", c.Format(), tt.want)
			}
		})
	}
}

func TestForPath(t *testing.T) {
	if got := ForPath("batch.YML").Format(); got != "yaml" {
		t.Errorf("ForPath(.YML) = %s", got)
	}
	if got := ForPath("batch.json").Format(); got != "json" {
		t.Errorf("ForPath(.json) = %s", got)
	}
	if got := ForPath("batch").Format(); got != "json" {
		t.Errorf("ForPath(no ext) = %s", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		codec Importer
		input string
	}{
		{"json", NewJSONCodec(), `[{"filename":"a.txt"},{"filename":"b.txt","size":3}]`},
		{"yaml", NewYAMLCodec(), "- filename: a.txt\n- filename: b.txt\n  size: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := tt.codec.Parse(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if len(records) != 2 {
				t.Fatalf("got %d records, want 2", len(records))
			}
			if v, _ := records[1].Value("filename"); v != "b.txt" {
				t.Errorf("filename = %q", v)
			}
			if v, _ := records[1].Value("size"); v != "3" {
				t.Errorf("size = %q", v)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := NewJSONCodec().Parse(strings.NewReader(`{"filename":"a"}`)); err == nil {
		t.Error("JSON object accepted as batch")
	}
	if _, err := NewYAMLCodec().Parse(strings.NewReader("filename: a\n")); err == nil {
		t.Error("YAML mapping accepted as batch")
	}

	records, err := NewYAMLCodec().Parse(strings.NewReader(""))
	if err != nil || len(records) != 0 {
		t.Errorf("empty YAML = %v, %v", records, err)
	}
}

func TestExport(t *testing.T) {
	docs := []domain.Document{
		{ID: "id-1", Fields: domain.Record{"filename": "a.txt"}, CreatedAt: time.Now()},
	}

	var buf bytes.Buffer
	if err := NewJSONCodec().Export(docs, &buf); err != nil {
		t.Fatalf("JSON Export() error: %v", err)
	}
	if !strings.Contains(buf.String(), `"_id": "id-1"`) {
		t.Errorf("JSON export missing _id: %s", buf.String())
	}

	buf.Reset()
	if err := NewYAMLCodec().Export(docs, &buf); err != nil {
		t.Fatalf("YAML Export() error: %v", err)
	}
	if !strings.Contains(buf.String(), "_id: id-1") || !strings.Contains(buf.String(), "filename: a.txt") {
		t.Errorf("YAML export = %s", buf.String())
	}

	// Round trip through the importer
	records, err := NewYAMLCodec().Parse(&buf)
	if err != nil || len(records) != 1 {
		t.Fatalf("re-parse = %v, %v", records, err)
	}
}
