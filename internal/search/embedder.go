// Package search provides semantic indexing and retrieval over the catalog:
// agent records are flattened into documents, embedded, and stored in an
// Elasticsearch index that supports vector similarity queries.
package search

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const embeddingModel = openai.SmallEmbedding3

// embeddingDims matches the text-embedding-3-small output size and the
// dense_vector mapping in the index.
const embeddingDims = 1536

// Embedder turns document text into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type openAIEmbedder struct {
	client *openai.Client
}

func NewEmbedder(apiKey string) *openAIEmbedder {
	return &openAIEmbedder{client: openai.NewClient(apiKey)}
}

// NewEmbedderWithBaseURL points the client at a custom endpoint.
func NewEmbedderWithBaseURL(apiKey, baseURL string) *openAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &openAIEmbedder{client: openai.NewClientWithConfig(cfg)}
}

var _ Embedder = (*openAIEmbedder)(nil)

func (e *openAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: embeddingModel,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(resp.Data))
	}
	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
