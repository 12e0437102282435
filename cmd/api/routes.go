package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tribu-ai/catalog-backend/internal/assignment"
	"github.com/tribu-ai/catalog-backend/internal/catalog"
	"github.com/tribu-ai/catalog-backend/internal/database"
	"github.com/tribu-ai/catalog-backend/internal/search"
)

// RegisterRoutes adds all API endpoints to the given mux.
func RegisterRoutes(
	mux *http.ServeMux,
	catalogHandler *catalog.Handler,
	assignHandler *assignment.Handler,
	searchHandler *search.Handler,
	db *database.Manager,
	logger *slog.Logger,
) {
	// Catalog ingestion and listing
	mux.HandleFunc("POST /upload-json", catalogHandler.Ingest)
	mux.HandleFunc("GET /agents", catalogHandler.ListAgents)
	mux.HandleFunc("GET /agents/metadata", catalogHandler.Metadata)
	mux.HandleFunc("GET /agents/stats", catalogHandler.Stats)

	// Assignment workflow
	mux.HandleFunc("GET /agents/{id}/availability", assignHandler.Availability)
	mux.HandleFunc("POST /researchers", assignHandler.Register)
	mux.HandleFunc("POST /documentation", assignHandler.CompleteDocumentation)

	// Semantic retrieval
	mux.HandleFunc("POST /query/hybrid-search", searchHandler.HybridSearch)

	// Operational endpoints
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /database/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(db.Metrics())
	})
}
