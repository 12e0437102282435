package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestOpenAIEmbedderBatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req openai.EmbeddingRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != embeddingModel {
			t.Errorf("model %q", req.Model)
		}
		inputs, ok := req.Input.([]any)
		if !ok || len(inputs) != 2 {
			t.Errorf("unexpected input: %v", req.Input)
		}
		// Return vectors out of order to check index-based placement.
		_, _ = w.Write([]byte(`{
			"object": "list",
			"data": [
				{"object":"embedding","index":1,"embedding":[0.3,0.4]},
				{"object":"embedding","index":0,"embedding":[0.1,0.2]}
			],
			"model": "text-embedding-3-small"
		}`))
	}))
	defer srv.Close()

	e := NewEmbedderWithBaseURL("test-key", srv.URL+"/v1")
	vectors, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.3 {
		t.Fatalf("vectors not placed by index: %v", vectors)
	}
}

func TestOpenAIEmbedderEmptyInput(t *testing.T) {
	e := NewEmbedder("test-key")
	vectors, err := e.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("expected nil, nil for empty input, got %v, %v", vectors, err)
	}
}

func TestOpenAIEmbedderCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"object":"list","data":[],"model":"text-embedding-3-small"}`))
	}))
	defer srv.Close()

	e := NewEmbedderWithBaseURL("test-key", srv.URL+"/v1")
	if _, err := e.Embed(context.Background(), []string{"one"}); err == nil {
		t.Fatal("expected a count mismatch error")
	}
}
