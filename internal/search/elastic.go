package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ElasticClient is a thin HTTP client for the document index. It creates
// the index on first use and speaks the bulk and knn search APIs directly.
type ElasticClient struct {
	baseURL    string
	index      string
	httpClient *http.Client
	log        *slog.Logger
}

func NewElasticClient(baseURL, index string, log *slog.Logger) *ElasticClient {
	if log == nil {
		log = slog.Default()
	}
	return &ElasticClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		index:      index,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

var indexMapping = fmt.Sprintf(`{
  "mappings": {
    "properties": {
      "content":   {"type": "text"},
      "embedding": {"type": "dense_vector", "dims": %d, "index": true, "similarity": "cosine"},
      "metadata": {
        "properties": {
          "id":       {"type": "keyword"},
          "name":     {"type": "keyword"},
          "website":  {"type": "keyword"},
          "category": {"type": "keyword"},
          "industry": {"type": "keyword"}
        }
      }
    }
  }
}`, embeddingDims)

// EnsureIndex creates the index with the vector mapping. An index that
// already exists is not an error.
func (c *ElasticClient) EnsureIndex(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.baseURL+"/"+c.index, strings.NewReader(indexMapping))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(body), "resource_already_exists_exception") {
		return nil
	}
	return fmt.Errorf("create index: status %d: %s", resp.StatusCode, body)
}

// storedDocument is the shape written to and read from the index.
type storedDocument struct {
	Content   string            `json:"content"`
	Embedding []float32         `json:"embedding,omitempty"`
	Metadata  map[string]string `json:"metadata"`
}

// BulkIndex writes documents with their vectors in a single _bulk request.
// Documents are keyed by their metadata id, so re-ingesting a record
// replaces its previous version.
func (c *ElasticClient) BulkIndex(ctx context.Context, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("bulk index: %d documents but %d vectors", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, doc := range docs {
		action := map[string]map[string]string{
			"index": {"_index": c.index, "_id": doc.ID},
		}
		if err := enc.Encode(action); err != nil {
			return err
		}
		stored := storedDocument{
			Content:   doc.Content,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"id":       doc.ID,
				"name":     doc.Name,
				"website":  doc.Website,
				"category": doc.Category,
				"industry": doc.Industry,
			},
		}
		if err := enc.Encode(stored); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/_bulk?refresh=true", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bulk index: status %d: %s", resp.StatusCode, body)
	}
	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  any `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("bulk index: decode response: %w", err)
	}
	if result.Errors {
		for _, item := range result.Items {
			for op, detail := range item {
				if detail.Status >= 300 {
					return fmt.Errorf("bulk index: %s failed with status %d: %v", op, detail.Status, detail.Error)
				}
			}
		}
		return fmt.Errorf("bulk index: partial failure")
	}
	return nil
}

// Hit is one retrieval result with its relevance score.
type Hit struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

// KNNSearch runs an approximate nearest-neighbor query over the embedding
// field and returns up to k hits.
func (c *ElasticClient) KNNSearch(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	query := map[string]any{
		"knn": map[string]any{
			"field":          "embedding",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 10,
		},
		"size":    k,
		"_source": []string{"content", "metadata"},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+c.index+"/_search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("knn search: status %d: %s", resp.StatusCode, raw)
	}
	var result struct {
		Hits struct {
			Hits []struct {
				Score  float64        `json:"_score"`
				Source storedDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("knn search: decode response: %w", err)
	}
	hits := make([]Hit, 0, len(result.Hits.Hits))
	for _, h := range result.Hits.Hits {
		hits = append(hits, Hit{
			Content:  h.Source.Content,
			Metadata: h.Source.Metadata,
			Score:    h.Score,
		})
	}
	return hits, nil
}
