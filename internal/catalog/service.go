package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tribu-ai/catalog-backend/internal/models"
)

// Store is the persistence surface the catalog service needs.
type Store interface {
	UpsertAgents(ctx context.Context, agents []models.Agent) error
	ListAgents(ctx context.Context, p ListParams) (*AgentPage, error)
	Metadata(ctx context.Context) (*Metadata, error)
	Stats(ctx context.Context) (*Stats, error)
}

// IngestResult summarizes one ingestion batch. Rejected records were dropped
// during validation; they are never fatal to the batch.
type IngestResult struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`

	// Agents carries the accepted, normalized records for downstream
	// semantic indexing. Not part of the response body.
	Agents []models.Agent `json:"-"`
}

type Service interface {
	Ingest(ctx context.Context, records []json.RawMessage) (*IngestResult, error)
	ListAgents(ctx context.Context, p ListParams) (*AgentPage, error)
	Metadata(ctx context.Context) (*Metadata, error)
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{store: store, log: log}
}

var _ Service = (*service)(nil)

// Ingest validates and normalizes each record, drops invalid ones, and
// bulk-upserts the rest in a single statement keyed by name.
func (s *service) Ingest(ctx context.Context, records []json.RawMessage) (*IngestResult, error) {
	accepted := make([]models.Agent, 0, len(records))
	rejected := 0
	for _, raw := range records {
		agent, err := parseRecord(raw)
		if err != nil {
			s.log.Warn("record rejected", "error", err)
			rejected++
			continue
		}
		accepted = append(accepted, agent)
	}
	if len(accepted) > 0 {
		if err := s.store.UpsertAgents(ctx, accepted); err != nil {
			return nil, fmt.Errorf("bulk upsert: %w", err)
		}
	}
	return &IngestResult{
		Accepted: len(accepted),
		Rejected: rejected,
		Total:    len(records),
		Agents:   accepted,
	}, nil
}

func (s *service) ListAgents(ctx context.Context, p ListParams) (*AgentPage, error) {
	return s.store.ListAgents(ctx, p)
}

func (s *service) Metadata(ctx context.Context) (*Metadata, error) {
	return s.store.Metadata(ctx)
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	return s.store.Stats(ctx)
}
