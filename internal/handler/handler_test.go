package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dsla/internal/domain"
	"dsla/internal/repository/sqlite"
	"dsla/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	repo, err := sqlite.New(":memory:", "documents")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := discardLogger()
	bus := service.NewEventBus()
	dedup := service.NewDedupService(repo, domain.RepoNameSchema, bus, logger)
	docs := service.NewDocumentService(repo, domain.RepoNameSchema, bus, logger)

	mux := http.NewServeMux()
	New(dedup, docs, logger).Register(mux)
	return Chain(mux, Recover(logger), CORS, Logger(logger), Tracing)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestRoot(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["message"] != rootMessage {
		t.Errorf("message = %q", body["message"])
	}

	if rec := do(t, h, http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestCheckDuplicatesAndInsertNew(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/insert-new", `[{"GitHub_Repo_Name":"a/one"}]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("insert-new status = %d: %s", rec.Code, rec.Body.String())
	}
	inserted := decode[map[string]int](t, rec)
	if inserted["inserted_count"] != 1 {
		t.Errorf("inserted_count = %d, want 1", inserted["inserted_count"])
	}
	if _, ok := inserted["conflict_count"]; ok {
		t.Error("conflict_count should be omitted when zero")
	}

	rec = do(t, h, http.MethodPost, "/check-duplicates",
		`[{"GitHub_Repo_Name":"a/one"},{"GitHub_Repo_Name":"b/two"}]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("check-duplicates status = %d: %s", rec.Code, rec.Body.String())
	}
	rows := decode[[]map[string]string](t, rec)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	want := []struct{ name, status string }{
		{"a/one", "Duplicate"},
		{"b/two", "New"},
	}
	for i, w := range want {
		if rows[i]["GitHub Repo Name"] != w.name {
			t.Errorf("row %d name = %q, want %q", i, rows[i]["GitHub Repo Name"], w.name)
		}
		if rows[i][domain.StatusField] != w.status {
			t.Errorf("row %d status = %q, want %q", i, rows[i][domain.StatusField], w.status)
		}
	}

	// Repeating the insert changes nothing
	rec = do(t, h, http.MethodPost, "/insert-new", `[{"GitHub_Repo_Name":"a/one"}]`)
	if got := decode[map[string]int](t, rec)["inserted_count"]; got != 0 {
		t.Errorf("second inserted_count = %d, want 0", got)
	}
}

func TestBatchErrorsAre500WithDetail(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		body       string
		wantDetail string
	}{
		{"missing field", "/check-duplicates", `[{"filename":"a.txt"}]`, "GitHub Repo Name"},
		{"missing field on insert", "/insert-new", `[{"other":1}]`, "GitHub Repo Name"},
		{"empty batch", "/check-duplicates", `[]`, "GitHub Repo Name"},
		{"not an array", "/check-duplicates", `{"GitHub_Repo_Name":"a"}`, "invalid request body"},
		{"empty body", "/insert-new", ``, "empty"},
		{"null element", "/check-duplicates", `[null]`, "not an object"},
		{"bool identifier", "/check-duplicates", `[{"GitHub_Repo_Name":true}]`, `"GitHub Repo Name" of type bool`},
		{"object identifier", "/insert-new", `[{"GitHub_Repo_Name":{"a":1}}]`, "must be a string"},
		{"null identifier", "/insert-new", `[{"GitHub_Repo_Name":"acme/a"},{"GitHub_Repo_Name":null}]`, "record 1 has null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			body := decode[ErrorResponse](t, rec)
			if !strings.Contains(body.Detail, tt.wantDetail) {
				t.Errorf("detail = %q, want it to contain %q", body.Detail, tt.wantDetail)
			}
		})
	}
}

func TestDocumentEndpoints(t *testing.T) {
	h := newTestServer(t)
	doc := `{"name":"Ada","email":"ada@example.com"}`

	rec := do(t, h, http.MethodPost, "/check-duplicate", doc)
	if got := decode[map[string]bool](t, rec)["duplicate"]; got {
		t.Error("empty store reported a duplicate")
	}

	rec = do(t, h, http.MethodPost, "/insert-document", doc)
	if rec.Code != http.StatusOK {
		t.Fatalf("insert-document status = %d: %s", rec.Code, rec.Body.String())
	}
	id := decode[map[string]string](t, rec)["inserted_id"]
	if id == "" {
		t.Fatal("inserted_id is empty")
	}

	rec = do(t, h, http.MethodPost, "/check-duplicate", doc)
	if got := decode[map[string]bool](t, rec)["duplicate"]; !got {
		t.Error("identical document not reported as duplicate")
	}

	rec = do(t, h, http.MethodPost, "/check-duplicate", `{"name":"Ada","email":"other@example.com"}`)
	if got := decode[map[string]bool](t, rec)["duplicate"]; got {
		t.Error("partial match reported as duplicate")
	}

	rec = do(t, h, http.MethodPost, "/insert-document", `{"name":"Ada"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("missing email status = %d, want 500", rec.Code)
	}
	if d := decode[ErrorResponse](t, rec).Detail; !strings.Contains(d, "email") {
		t.Errorf("detail = %q, want it to name email", d)
	}

	rec = do(t, h, http.MethodGet, "/get-knowledge-objects", "")
	list := decode[struct {
		Data []map[string]any `json:"data"`
	}](t, rec)
	if len(list.Data) != 1 {
		t.Fatalf("got %d documents, want 1", len(list.Data))
	}
	if list.Data[0]["_id"] != id || list.Data[0]["name"] != "Ada" {
		t.Errorf("document = %v", list.Data[0])
	}
}

func TestProcessData(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/process-data", `{"input_data":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	result := decode[map[string]string](t, rec)["result"]
	if !strings.HasPrefix(result, "Data inserted with ID: ") {
		t.Errorf("result = %q", result)
	}

	rec = do(t, h, http.MethodPost, "/process-data", `{}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("missing input_data status = %d, want 500", rec.Code)
	}
}

func TestListDocumentsEmpty(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/get-knowledge-objects", "")
	if strings.TrimSpace(rec.Body.String()) != `{"data":[]}` {
		t.Errorf("body = %s, want empty data array", rec.Body.String())
	}
}
