package vectorstore

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/chunk"
	"github.com/kailas-cloud/ragchat/internal/domain/vector"
)

type mockIndex struct {
	ensureFn  func(ctx context.Context) error
	upsertFn  func(ctx context.Context, entries []vector.Entry) error
	searchFn  func(ctx context.Context, vec []float32, k int) ([]vector.Hit, error)
	deleteFn  func(ctx context.Context, documentID string) (int, error)
	docIDsFn  func(ctx context.Context) ([]string, error)
	ensures   int
	upserts   int
	searches  int
	deletedID []string
}

func (m *mockIndex) EnsureSchema(ctx context.Context) error {
	m.ensures++
	if m.ensureFn != nil {
		return m.ensureFn(ctx)
	}
	return nil
}

func (m *mockIndex) Upsert(ctx context.Context, entries []vector.Entry) error {
	m.upserts++
	if m.upsertFn != nil {
		return m.upsertFn(ctx, entries)
	}
	return nil
}

func (m *mockIndex) Search(ctx context.Context, vec []float32, k int) ([]vector.Hit, error) {
	m.searches++
	if m.searchFn != nil {
		return m.searchFn(ctx, vec, k)
	}
	return nil, nil
}

func (m *mockIndex) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	m.deletedID = append(m.deletedID, documentID)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, documentID)
	}
	return 0, nil
}

func (m *mockIndex) DocumentIDs(ctx context.Context) ([]string, error) {
	if m.docIDsFn != nil {
		return m.docIDsFn(ctx)
	}
	return nil, nil
}

func (m *mockIndex) Ping(context.Context) error { return nil }

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1}}, nil
}

func newTestManager(t *testing.T, emb *mockEmbedder, idx *mockIndex) *Manager {
	t.Helper()
	return New(emb, idx, zap.NewNop())
}

func mustChunk(t *testing.T, docID string, ordinal int, content string) chunk.Chunk {
	t.Helper()
	c, err := chunk.New(docID, ordinal, content, chunk.Source{
		Name:       "notes.txt",
		UploadedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}
