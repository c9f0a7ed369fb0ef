package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		vec := make([]float64, dims)
		// Deterministic per-text vector so tests can tell inputs apart.
		vec[0] = float64(len(req.Prompt))
		json.NewEncoder(w).Encode(embedResponse{Embedding: vec})
	}))
}

func TestEmbed(t *testing.T) {
	srv := testServer(t, 384)
	defer srv.Close()

	c := NewClient(srv.URL, "all-minilm", 384)
	vec, err := c.Embed(context.Background(), "benzene")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 384 {
		t.Fatalf("expected 384 dims, got %d", len(vec))
	}
	if vec[0] != float32(len("benzene")) {
		t.Fatalf("unexpected vector content: %v", vec[0])
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	srv := testServer(t, 3)
	defer srv.Close()

	c := NewClient(srv.URL, "all-minilm", 384)
	if _, err := c.Embed(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "dims") {
		t.Fatalf("expected dims error, got %v", err)
	}
}

func TestEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "all-minilm", 384)
	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestEmbedBatchOrder(t *testing.T) {
	srv := testServer(t, 8)
	defer srv.Close()

	c := NewClient(srv.URL, "all-minilm", 8)
	texts := []string{"a", "bb", "ccc", "dddd"}
	vecs, err := c.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	for i, v := range vecs {
		if v[0] != float32(len(texts[i])) {
			t.Fatalf("order not preserved at %d", i)
		}
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	c := NewClient("http://unused", "m", 0)
	vecs, err := c.EmbedBatch(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Fatalf("expected nil, nil; got %v, %v", vecs, err)
	}
}
