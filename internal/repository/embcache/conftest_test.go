package embcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/db"
	"github.com/kailas-cloud/ragchat/internal/domain"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	calls      int
	batchCalls [][]string
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls = append(m.batchCalls, texts)
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i := range texts {
		out.Embeddings[i] = m.result.Embedding
		out.TotalTokens += m.result.TotalTokens
	}
	return out, nil
}

// memKV is an in-memory store that records TTLs.
type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder) (*CachedEmbedder, *memKV) {
	t.Helper()
	kv := newMemKV()
	cfg := Config{KeyPrefix: "ragchat:", Model: "text-embedding-3-small", TTL: time.Hour}
	return New(inner, kv, cfg, nil, zap.NewNop()), kv
}
