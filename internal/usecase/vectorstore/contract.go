package vectorstore

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/vector"
)

// Index is the storage contract every vector backend implements.
type Index interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, entries []vector.Entry) error
	Search(ctx context.Context, vec []float32, k int) ([]vector.Hit, error)
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
	DocumentIDs(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
