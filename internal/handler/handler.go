package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"dsla/internal/domain"
	"dsla/internal/service"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 10 << 20

const rootMessage = "Hello from DSLA backend!"

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Handler serves the record ledger API
type Handler struct {
	dedup  *service.DedupService
	docs   *service.DocumentService
	logger *slog.Logger
}

// New creates a new API handler
func New(dedup *service.DedupService, docs *service.DocumentService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{dedup: dedup, docs: docs, logger: logger}
}

// Register adds the API routes to mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("POST /check-duplicates", h.CheckDuplicates)
	mux.HandleFunc("POST /insert-new", h.InsertNew)
	mux.HandleFunc("POST /check-duplicate", h.CheckDuplicate)
	mux.HandleFunc("POST /insert-document", h.InsertDocument)
	mux.HandleFunc("POST /process-data", h.ProcessData)
	mux.HandleFunc("GET /get-knowledge-objects", h.ListDocuments)
}

// Root is the liveness endpoint
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, map[string]string{"message": rootMessage}, http.StatusOK)
}

// CheckDuplicates labels each submitted record New or Duplicate
func (h *Handler) CheckDuplicates(w http.ResponseWriter, r *http.Request) {
	batch, err := h.decodeBatch(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	labeled, err := h.dedup.CheckDuplicates(r.Context(), batch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	rows := make([]domain.Record, len(labeled))
	for i, l := range labeled {
		rows[i] = l.Row()
	}
	writeJSON(w, h.logger, rows, http.StatusOK)
}

// InsertNew inserts the submitted records not already stored
func (h *Handler) InsertNew(w http.ResponseWriter, r *http.Request) {
	batch, err := h.decodeBatch(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.dedup.InsertNew(r.Context(), batch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, result, http.StatusOK)
}

// documentRequest is the single-document body
type documentRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (d documentRequest) record() (domain.Record, error) {
	if d.Name == nil {
		return nil, errors.New("missing field: name")
	}
	if d.Email == nil {
		return nil, errors.New("missing field: email")
	}
	return domain.Record{"name": *d.Name, "email": *d.Email}, nil
}

// CheckDuplicate reports whether an identical document is stored
func (h *Handler) CheckDuplicate(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	rec, err := req.record()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	dup, err := h.docs.CheckDuplicate(r.Context(), rec)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, map[string]bool{"duplicate": dup}, http.StatusOK)
}

// InsertDocument stores one document verbatim
func (h *Handler) InsertDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	rec, err := req.record()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	id, err := h.docs.InsertDocument(r.Context(), rec)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, map[string]string{"inserted_id": id}, http.StatusOK)
}

// ProcessData stores a raw input string
func (h *Handler) ProcessData(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InputData *string `json:"input_data"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.InputData == nil {
		writeError(w, h.logger, errors.New("missing field: input_data"))
		return
	}

	result, err := h.docs.ProcessData(r.Context(), *req.InputData)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, map[string]string{"result": result}, http.StatusOK)
}

// ListDocuments returns every stored document with its id
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.ListDocuments(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data := make([]domain.Record, len(docs))
	for i, d := range docs {
		data[i] = d.Flatten()
	}
	writeJSON(w, h.logger, map[string]any{"data": data}, http.StatusOK)
}

// decodeBatch reads a JSON array of records and maps the wire field name
// onto the stored one
func (h *Handler) decodeBatch(r *http.Request) ([]domain.Record, error) {
	var raw []domain.Record
	if err := decodeJSON(r, &raw); err != nil {
		return nil, err
	}

	schema := h.dedup.Schema()
	batch := make([]domain.Record, len(raw))
	for i, rec := range raw {
		if rec == nil {
			return nil, fmt.Errorf("record %d is not an object", i)
		}
		batch[i] = schema.FromWire(rec)
	}
	return batch, nil
}

func decodeJSON(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON", "error", err)
	}
}

// writeError reports any failure as a 500 carrying the error text
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("request failed", "error", err)
	writeJSON(w, logger, ErrorResponse{Detail: err.Error()}, http.StatusInternalServerError)
}
