package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/chunk"
	"github.com/kailas-cloud/ragchat/internal/domain/vector"
)

// Match is a retrieved chunk with its similarity score.
type Match struct {
	Chunk chunk.Chunk
	Score float64
}

// Manager turns chunks into vectors and owns the index lifecycle.
// Every failure it returns is a *domain.VectorStoreError.
type Manager struct {
	docEmbedder   Embedder
	queryEmbedder Embedder
	index         Index
	logger        *zap.Logger
	now           func() time.Time

	mu    sync.Mutex
	ready bool
}

// New creates a Manager. The same embedder serves documents and queries unless WithQueryEmbedder is used.
func New(embedder Embedder, index Index, logger *zap.Logger) *Manager {
	return &Manager{
		docEmbedder:   embedder,
		queryEmbedder: embedder,
		index:         index,
		logger:        logger,
		now:           time.Now,
	}
}

// WithQueryEmbedder sets a separate embedder for search queries.
func (m *Manager) WithQueryEmbedder(e Embedder) *Manager {
	if e != nil {
		m.queryEmbedder = e
	}
	return m
}

// Connect bootstraps the index schema. It is idempotent and safe for concurrent use;
// after a failure the next call retries.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready {
		return nil
	}
	if err := m.index.EnsureSchema(ctx); err != nil {
		return domain.NewIndexError("ensure schema", err)
	}
	m.ready = true
	m.logger.Info("Vector index ready")
	return nil
}

// Ping checks the index backend.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.index.Ping(ctx); err != nil {
		return domain.NewIndexError("ping", err)
	}
	return nil
}

// Upsert embeds and stores chunks, returning how many were written.
// Either every chunk is written or an error is returned.
func (m *Manager) Upsert(ctx context.Context, chunks []chunk.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	if err := m.Connect(ctx); err != nil {
		return 0, err
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content()
	}
	res, err := domain.EmbedAll(ctx, m.docEmbedder, texts)
	if err != nil {
		return 0, domain.NewEmbeddingError("embed chunks", err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	if len(res.Embeddings) != len(chunks) {
		return 0, domain.NewEmbeddingError("embed chunks",
			fmt.Errorf("got %d vectors for %d chunks: %w", len(res.Embeddings), len(chunks), domain.ErrEmbeddingProviderError))
	}

	entries := make([]vector.Entry, len(chunks))
	for i := range chunks {
		entries[i] = vector.Entry{
			ID:       chunks[i].ID(),
			Vector:   res.Embeddings[i],
			Content:  chunks[i].Content(),
			Metadata: chunks[i].Metadata(),
		}
	}
	if err := m.index.Upsert(ctx, entries); err != nil {
		return 0, domain.NewIndexError("upsert", err)
	}

	m.logger.Debug("Chunks indexed",
		zap.Int("count", len(entries)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return len(entries), nil
}

// Search returns up to k chunks nearest to query, closest first.
// A blank query returns no matches without touching the embedder or the index.
func (m *Manager) Search(ctx context.Context, query string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrValidation, k)
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if err := m.Connect(ctx); err != nil {
		return nil, err
	}

	emb, err := m.queryEmbedder.Embed(ctx, query)
	if err != nil {
		return nil, domain.NewEmbeddingError("embed query", err)
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)
	hits, err := m.index.Search(ctx, emb.Embedding, k)
	if err != nil {
		return nil, domain.NewIndexError("search", err)
	}

	now := m.now()
	out := make([]Match, len(hits))
	for i, h := range hits {
		out[i] = Match{Chunk: chunk.FromMetadata(h.Content, h.Metadata, now), Score: h.Score}
	}
	return out, nil
}

// DeleteDocument removes every vector belonging to documentID.
func (m *Manager) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	if err := m.Connect(ctx); err != nil {
		return 0, err
	}
	n, err := m.index.DeleteByDocument(ctx, documentID)
	if err != nil {
		return n, domain.NewIndexError("delete document", err)
	}
	return n, nil
}

// PurgeOrphans deletes vectors whose document is not in live and returns how many were removed.
func (m *Manager) PurgeOrphans(ctx context.Context, live []string) (int, error) {
	if err := m.Connect(ctx); err != nil {
		return 0, err
	}
	ids, err := m.index.DocumentIDs(ctx)
	if err != nil {
		return 0, domain.NewIndexError("list documents", err)
	}

	keep := make(map[string]struct{}, len(live))
	for _, id := range live {
		keep[id] = struct{}{}
	}

	var removed int
	for _, id := range ids {
		if _, ok := keep[id]; ok {
			continue
		}
		n, err := m.index.DeleteByDocument(ctx, id)
		removed += n
		if err != nil {
			return removed, domain.NewIndexError("purge orphans", err)
		}
		m.logger.Info("Purged orphan vectors", zap.String("document_id", id), zap.Int("count", n))
	}
	return removed, nil
}
