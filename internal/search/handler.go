package search

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

type queryPayload struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type queryResponse struct {
	Query   string `json:"query"`
	Results []Hit  `json:"results"`
	Message string `json:"message"`
}

// HybridSearch handles POST /query/hybrid-search.
func (h *Handler) HybridSearch(w http.ResponseWriter, r *http.Request) {
	var payload queryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	hits, err := h.svc.Search(r.Context(), payload.Query, payload.K)
	if errors.Is(err, ErrEmptyQuery) {
		http.Error(w, `{"error":"query must not be empty"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error("hybrid search failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	resp := queryResponse{Query: payload.Query, Results: hits, Message: "search completed"}
	if len(hits) == 0 {
		resp.Results = []Hit{}
		resp.Message = "no results found for the query"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
