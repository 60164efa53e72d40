package filter

import (
	"testing"
	"time"

	"dsla/internal/domain"
)

func docs() []domain.Document {
	now := time.Now()
	return []domain.Document{
		{ID: "1", Fields: domain.Record{"GitHub Repo Name": "acme/api"}, CreatedAt: now},
		{ID: "2", Fields: domain.Record{"GitHub Repo Name": "other/web"}, CreatedAt: now},
		{ID: "3", Fields: domain.Record{"name": "Ada", "email": "ada@example.com"}, CreatedAt: now},
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantIDs []string
	}{
		{"empty matches all", "", []string{"1", "2", "3"}},
		{"field with spaces", `($env["GitHub Repo Name"] ?? "") startsWith "acme/"`, []string{"1"}},
		{"plain field", `name == "Ada"`, []string{"3"}},
		{"missing field is nil", `name == nil`, []string{"1", "2"}},
		{"by id", `_id in ["2", "3"]`, []string{"2", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("Compile() error: %v", err)
			}
			got, err := f.Apply(docs())
			if err != nil {
				t.Fatalf("Apply() error: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d documents, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("doc %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestCompileError(t *testing.T) {
	if _, err := Compile("name =="); err == nil {
		t.Error("expected compile error")
	}
}

func TestNonBoolResult(t *testing.T) {
	f, err := Compile(`_id`)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if _, err := f.Match(docs()[0]); err == nil {
		t.Error("expected error for non-bool result")
	}
}
