package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tribu-ai/catalog-backend/internal/models"
)

// Indexer enqueues accepted records for semantic indexing after a
// successful upsert.
type Indexer interface {
	EnqueueIndex(ctx context.Context, agents []models.Agent) error
}

// Handler serves the catalog endpoints.
type Handler struct {
	svc     Service
	indexer Indexer
	log     *slog.Logger
}

func NewHandler(svc Service, indexer Indexer, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, indexer: indexer, log: log}
}

// ingestPayload accepts both the exporter's nested shape
// {"data":[{"json":{"data":[...]}}]} and a flat {"data":[...]} of records.
type ingestPayload struct {
	Data []json.RawMessage `json:"data"`
}

type nestedBatch struct {
	JSON struct {
		Data []json.RawMessage `json:"data"`
	} `json:"json"`
}

func extractRecords(p ingestPayload) []json.RawMessage {
	var records []json.RawMessage
	for _, el := range p.Data {
		var batch nestedBatch
		if err := json.Unmarshal(el, &batch); err == nil && len(batch.JSON.Data) > 0 {
			records = append(records, batch.JSON.Data...)
			continue
		}
		records = append(records, el)
	}
	return records
}

// Ingest handles POST /upload-json.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var payload ingestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	records := extractRecords(payload)
	if len(records) == 0 {
		http.Error(w, `{"error":"no records found in payload"}`, http.StatusBadRequest)
		return
	}
	result, err := h.svc.Ingest(r.Context(), records)
	if err != nil {
		h.log.Error("catalog ingestion failed", "error", err)
		http.Error(w, `{"error":"ingestion failed"}`, http.StatusInternalServerError)
		return
	}
	if len(result.Agents) > 0 && h.indexer != nil {
		if err := h.indexer.EnqueueIndex(r.Context(), result.Agents); err != nil {
			// The relational rows are committed; indexing catches up on the
			// next batch. Not a client-visible failure.
			h.log.Warn("semantic index enqueue failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"accepted": result.Accepted,
		"rejected": result.Rejected,
		"total":    result.Total,
	})
}

// ListAgents handles GET /agents with pagination and optional filters.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), 1)
	if err != nil || page < 1 {
		http.Error(w, `{"error":"page must be an integer >= 1"}`, http.StatusBadRequest)
		return
	}
	pageSize, err := queryInt(q.Get("page_size"), 10)
	if err != nil || pageSize < 1 || pageSize > 600 {
		http.Error(w, `{"error":"page_size must be between 1 and 600"}`, http.StatusBadRequest)
		return
	}
	pageResult, err := h.svc.ListAgents(r.Context(), ListParams{
		Page:     page,
		PageSize: pageSize,
		Category: q.Get("category"),
		Industry: q.Get("industry"),
		Search:   q.Get("search"),
	})
	if err != nil {
		h.log.Error("list agents failed", "error", err)
		http.Error(w, `{"error":"failed to list agents"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pageResult)
}

// Metadata handles GET /agents/metadata.
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	md, err := h.svc.Metadata(r.Context())
	if err != nil {
		h.log.Error("metadata query failed", "error", err)
		http.Error(w, `{"error":"failed to load metadata"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

// Stats handles GET /agents/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		h.log.Error("stats query failed", "error", err)
		http.Error(w, `{"error":"failed to load stats"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
