package search

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnsureIndexToleratesExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/documents" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"resource_already_exists_exception"}}`))
	}))
	defer srv.Close()

	c := NewElasticClient(srv.URL, "documents", testLogger())
	if err := c.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("existing index should not be an error: %v", err)
	}
}

func TestIndexMappingMatchesEmbeddingDims(t *testing.T) {
	var mapping struct {
		Mappings struct {
			Properties struct {
				Embedding struct {
					Dims int `json:"dims"`
				} `json:"embedding"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.Unmarshal([]byte(indexMapping), &mapping); err != nil {
		t.Fatalf("mapping is not valid JSON: %v", err)
	}
	if got := mapping.Mappings.Properties.Embedding.Dims; got != embeddingDims {
		t.Fatalf("mapping dims = %d, want %d", got, embeddingDims)
	}
}

func TestEnsureIndexSurfacesOtherFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unavailable"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewElasticClient(srv.URL, "documents", testLogger())
	if err := c.EnsureIndex(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}

func TestBulkIndexWritesNDJSON(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_bulk" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		captured, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
	}))
	defer srv.Close()

	c := NewElasticClient(srv.URL, "documents", testLogger())
	docs := []Document{
		{ID: "a1", Name: "Alpha", Category: "c", Industry: "i", Content: "Name: Alpha"},
		{ID: "a2", Name: "Beta", Category: "c", Industry: "i", Content: "Name: Beta"},
	}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}
	if err := c.BulkIndex(context.Background(), docs, vectors); err != nil {
		t.Fatalf("BulkIndex: %v", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(captured))
	var lines []map[string]any
	for scanner.Scan() {
		var line map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("non-JSON bulk line: %v", err)
		}
		lines = append(lines, line)
	}
	if len(lines) != 4 {
		t.Fatalf("expected 4 bulk lines, got %d", len(lines))
	}
	action := lines[0]["index"].(map[string]any)
	if action["_id"] != "a1" || action["_index"] != "documents" {
		t.Fatalf("unexpected action line: %v", lines[0])
	}
	doc := lines[1]
	if doc["content"] != "Name: Alpha" {
		t.Fatalf("unexpected document line: %v", doc)
	}
}

func TestBulkIndexReportsItemFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":true,"items":[
			{"index":{"status":201}},
			{"index":{"status":400,"error":{"type":"mapper_parsing_exception"}}}
		]}`))
	}))
	defer srv.Close()

	c := NewElasticClient(srv.URL, "documents", testLogger())
	docs := []Document{{ID: "a1"}, {ID: "a2"}}
	vectors := [][]float32{{0.1}, {0.2}}
	if err := c.BulkIndex(context.Background(), docs, vectors); err == nil {
		t.Fatal("expected item failure to surface")
	}
}

func TestBulkIndexRejectsMismatchedVectors(t *testing.T) {
	c := NewElasticClient("http://localhost:9200", "documents", testLogger())
	err := c.BulkIndex(context.Background(), []Document{{ID: "a1"}}, nil)
	if err == nil {
		t.Fatal("expected a mismatch error")
	}
}

func TestKNNSearchDecodesHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/documents/_search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var query map[string]any
		if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
			t.Errorf("decode query: %v", err)
		}
		knn := query["knn"].(map[string]any)
		if knn["field"] != "embedding" || knn["k"] != float64(3) {
			t.Errorf("unexpected knn clause: %v", knn)
		}
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_score":0.92,"_source":{"content":"Name: Alpha","metadata":{"id":"a1","name":"Alpha"}}},
			{"_score":0.75,"_source":{"content":"Name: Beta","metadata":{"id":"a2","name":"Beta"}}}
		]}}`))
	}))
	defer srv.Close()

	c := NewElasticClient(srv.URL, "documents", testLogger())
	hits, err := c.KNNSearch(context.Background(), []float32{0.1, 0.2}, 3)
	if err != nil {
		t.Fatalf("KNNSearch: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Score != 0.92 || hits[0].Metadata["id"] != "a1" {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}
}
