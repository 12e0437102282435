package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/tribu-ai/catalog-backend/internal/models"
)

// ErrEmptyQuery rejects blank retrieval queries before any network call.
var ErrEmptyQuery = errors.New("query must not be empty")

const defaultK = 5

// Document is the flattened, embeddable view of an agent record.
type Document struct {
	ID       string
	Name     string
	Website  string
	Category string
	Industry string
	Content  string
}

// BuildDocument flattens the descriptive fields of an agent into a single
// text block for embedding.
func BuildDocument(agent models.Agent) Document {
	content := fmt.Sprintf(
		"Name: %s\nDescription: %s %s\nCategory: %s\nIndustry: %s\nKey Features: %s\nUse Cases: %s\nTags: %s",
		agent.Name,
		agent.ShortDescription, agent.LongDescription,
		agent.Category,
		agent.Industry,
		strings.Join(agent.KeyFeatures, ", "),
		strings.Join(agent.UseCases, ", "),
		strings.Join(agent.Tags, ", "),
	)
	return Document{
		ID:       agent.ID,
		Name:     agent.Name,
		Website:  agent.Website,
		Category: agent.Category,
		Industry: agent.Industry,
		Content:  content,
	}
}

// Index is the vector store surface the service needs.
type Index interface {
	EnsureIndex(ctx context.Context) error
	BulkIndex(ctx context.Context, docs []Document, vectors [][]float32) error
	KNNSearch(ctx context.Context, vector []float32, k int) ([]Hit, error)
}

type Service interface {
	IndexAgents(ctx context.Context, agents []models.Agent) (int, error)
	Search(ctx context.Context, query string, k int) ([]Hit, error)
}

type service struct {
	embedder Embedder
	index    Index
	log      *slog.Logger

	mu      sync.Mutex
	ensured bool
}

func NewService(embedder Embedder, index Index, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{embedder: embedder, index: index, log: log}
}

var _ Service = (*service)(nil)

// ensureIndex creates the index once; only success is remembered, so a
// failed attempt is retried on the next call.
func (s *service) ensureIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}
	if err := s.index.EnsureIndex(ctx); err != nil {
		return err
	}
	s.ensured = true
	return nil
}

// IndexAgents embeds and stores the documents for a batch of agents,
// returning how many were indexed.
func (s *service) IndexAgents(ctx context.Context, agents []models.Agent) (int, error) {
	if len(agents) == 0 {
		return 0, nil
	}
	if err := s.ensureIndex(ctx); err != nil {
		return 0, fmt.Errorf("ensure index: %w", err)
	}
	docs := make([]Document, len(agents))
	texts := make([]string, len(agents))
	for i, agent := range agents {
		docs[i] = BuildDocument(agent)
		texts[i] = docs[i].Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed documents: %w", err)
	}
	if err := s.index.BulkIndex(ctx, docs, vectors); err != nil {
		return 0, err
	}
	s.log.Info("indexed agent documents", "count", len(docs))
	return len(docs), nil
}

// Search embeds the query and retrieves the k most similar documents.
func (s *service) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = defaultK
	}
	if err := s.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.index.KNNSearch(ctx, vectors[0], k)
}
