package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

type embeddingItem struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingItem `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func newTestServer(t *testing.T, items []embeddingItem, tokens int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}
		resp := embeddingResponse{Object: "list", Model: "test-model", Data: items}
		resp.Usage.PromptTokens = tokens
		resp.Usage.TotalTokens = tokens
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEmbedder(baseURL string) *Embedder {
	return NewEmbedder(&Config{
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func TestEmbedder_Embed(t *testing.T) {
	srv := newTestServer(t, []embeddingItem{{Object: "embedding", Embedding: []float32{0.1, 0.2, 0.3}}}, 42)

	res, err := newTestEmbedder(srv.URL).Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(res.Embedding) != 3 || res.Embedding[2] != 0.3 {
		t.Errorf("embedding = %v", res.Embedding)
	}
	if res.PromptTokens != 42 || res.TotalTokens != 42 {
		t.Errorf("usage = %d/%d", res.PromptTokens, res.TotalTokens)
	}
}

func TestEmbedder_BatchEmbedRestoresOrder(t *testing.T) {
	srv := newTestServer(t, []embeddingItem{
		{Object: "embedding", Embedding: []float32{0.3, 0.4}, Index: 1},
		{Object: "embedding", Embedding: []float32{0.1, 0.2}, Index: 0},
	}, 20)

	res, err := newTestEmbedder(srv.URL).BatchEmbed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if res.Embeddings[0][0] != 0.1 || res.Embeddings[1][0] != 0.3 {
		t.Errorf("embeddings = %v", res.Embeddings)
	}
	if res.TotalTokens != 20 {
		t.Errorf("TotalTokens = %d", res.TotalTokens)
	}
}

func TestEmbedder_BatchEmbedEmpty(t *testing.T) {
	res, err := newTestEmbedder("http://unused").BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil {
		t.Fatalf("BatchEmbed(nil) = %v, %v", res, err)
	}
}

func TestEmbedder_ShortResponse(t *testing.T) {
	srv := newTestServer(t, []embeddingItem{{Object: "embedding", Embedding: []float32{0.1}}}, 5)

	_, err := newTestEmbedder(srv.URL).BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("BatchEmbed() = %v", err)
	}
}

func TestEmbedder_APIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
	}{
		{"rate limited", http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{"message": "rate limit exceeded", "type": "rate_limit_error"},
		}},
		{"detail body", http.StatusUnprocessableEntity, map[string]any{"detail": "input too long"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(tc.body)
			}))
			defer srv.Close()

			_, err := newTestEmbedder(srv.URL).Embed(context.Background(), "hello")
			if !errors.Is(err, domain.ErrEmbeddingProviderError) {
				t.Fatalf("Embed() = %v", err)
			}
		})
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"model not found"}`)); got != "model not found" {
		t.Errorf("extractDetail = %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("extractDetail = %q", got)
	}
}
