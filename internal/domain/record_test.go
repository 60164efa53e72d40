package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestRecordValue(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		field  string
		want   string
		wantOK bool
	}{
		{"string value", Record{"filename": "a.txt"}, "filename", "a.txt", true},
		{"numeric value", Record{"filename": float64(42)}, "filename", "42", true},
		{"missing field", Record{"other": "x"}, "filename", "", false},
		{"nil value", Record{"filename": nil}, "filename", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.record.Value(tt.field)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Value(%q) = (%q, %v), want (%q, %v)", tt.field, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLabeledRecordRow(t *testing.T) {
	in := Record{"filename": "a.txt"}
	row := LabeledRecord{Record: in, Status: StatusDuplicate}.Row()

	if row[StatusField] != "Duplicate" {
		t.Errorf("expected status Duplicate, got %v", row[StatusField])
	}
	if row["filename"] != "a.txt" {
		t.Errorf("expected filename preserved, got %v", row["filename"])
	}
	if _, ok := in[StatusField]; ok {
		t.Error("Row must not mutate the input record")
	}
}

func TestIdentifierSetContains(t *testing.T) {
	set := NewIdentifierSet([]string{"a.txt", "a.txt", "B.txt"})

	if len(set) != 2 {
		t.Errorf("expected repeats collapsed to 2 entries, got %d", len(set))
	}
	if !set.Contains("a.txt") {
		t.Error("expected a.txt to be present")
	}
	if set.Contains("b.txt") {
		t.Error("membership must be case-sensitive")
	}
}

func TestDocumentFlatten(t *testing.T) {
	doc := Document{ID: "abc", Fields: Record{"name": "x"}}
	row := doc.Flatten()
	if row["_id"] != "abc" || row["name"] != "x" {
		t.Errorf("unexpected flattened row: %v", row)
	}
	if _, ok := doc.Fields["_id"]; ok {
		t.Error("Flatten must not mutate the document fields")
	}
}

func TestLookupIdentitySchema(t *testing.T) {
	tests := []struct {
		input   string
		want    IdentitySchema
		wantErr bool
	}{
		{"", DefaultIdentitySchema, false},
		{"filename", FilenameSchema, false},
		{"v1", FilenameSchema, false},
		{"repo", RepoNameSchema, false},
		{"2", RepoNameSchema, false},
		{" V2 ", RepoNameSchema, false},
		{"sha256", IdentitySchema{}, true},
	}

	for _, tt := range tests {
		got, err := LookupIdentitySchema(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("LookupIdentitySchema(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("LookupIdentitySchema(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestIdentitySchemaCovers(t *testing.T) {
	schema := RepoNameSchema

	t.Run("empty batch is not covered", func(t *testing.T) {
		if schema.Covers(nil) {
			t.Error("expected empty batch to be uncovered")
		}
	})

	t.Run("one carrying record covers the batch", func(t *testing.T) {
		batch := []Record{{"other": 1}, {"GitHub Repo Name": "acme/x"}}
		if !schema.Covers(batch) {
			t.Error("expected batch to be covered")
		}
	})

	t.Run("legacy field name does not cover repo schema", func(t *testing.T) {
		batch := []Record{{"filename": "a.txt"}}
		if schema.Covers(batch) {
			t.Error("expected filename-only batch to be uncovered by repo schema")
		}
	})
}

func TestIdentitySchemaCheckValues(t *testing.T) {
	schema := FilenameSchema

	if err := schema.CheckValues([]Record{{"filename": "a.txt"}, {"other": true}}); err != nil {
		t.Errorf("string identifiers rejected: %v", err)
	}

	err := schema.CheckValues([]Record{{"filename": "a.txt"}, {"filename": true}})
	if !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
	if want := `record 1 has "filename" of type bool`; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not contain %q", err, want)
	}
}

func TestIdentitySchemaProjectAndWire(t *testing.T) {
	schema := RepoNameSchema

	in := Record{"GitHub_Repo_Name": "acme/x", "stars": 3}
	stored := schema.FromWire(in)
	if stored["GitHub Repo Name"] != "acme/x" {
		t.Fatalf("expected wire field renamed, got %v", stored)
	}
	if _, ok := stored["GitHub_Repo_Name"]; ok {
		t.Error("expected wire field removed")
	}
	if _, ok := in["GitHub Repo Name"]; ok {
		t.Error("FromWire must not mutate its input")
	}

	projected := schema.Project(stored)
	if len(projected) != 1 || projected["GitHub Repo Name"] != "acme/x" {
		t.Errorf("expected projection to identifying field only, got %v", projected)
	}

	if got := FilenameSchema.FromWire(Record{"filename": "a"}); got["filename"] != "a" {
		t.Errorf("filename schema should pass records through, got %v", got)
	}
}

func TestErrorsWrapSentinels(t *testing.T) {
	if !errors.Is(MissingFieldError("filename"), ErrMissingIdentifier) {
		t.Error("MissingFieldError should wrap ErrMissingIdentifier")
	}
	if !errors.Is(ConflictError("filename", "a"), ErrConflict) {
		t.Error("ConflictError should wrap ErrConflict")
	}
}
