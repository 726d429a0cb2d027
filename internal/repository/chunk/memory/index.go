// Package memory is an in-process vector index doing exact cosine search.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	domchunk "github.com/kailas-cloud/ragchat/internal/domain/chunk"
	"github.com/kailas-cloud/ragchat/internal/domain/vector"
)

// Index keeps every entry in memory. Contents are lost on restart.
type Index struct {
	mu      sync.RWMutex
	dim     int
	entries map[string]vector.Entry
}

// New creates an empty index. dim 0 adopts the dimension of the first upsert.
func New(dim int) *Index {
	return &Index{dim: dim, entries: make(map[string]vector.Entry)}
}

// Ping always succeeds.
func (x *Index) Ping(context.Context) error { return nil }

// EnsureSchema is a no-op.
func (x *Index) EnsureSchema(context.Context) error { return nil }

// Upsert validates all entries before storing any of them.
func (x *Index) Upsert(_ context.Context, entries []vector.Entry) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	dim := x.dim
	for i := range entries {
		n := len(entries[i].Vector)
		if dim == 0 {
			dim = n
		}
		if n == 0 || n != dim {
			return fmt.Errorf("entry %s: vector has %d dimensions, index expects %d", entries[i].ID, n, dim)
		}
	}
	x.dim = dim

	for _, e := range entries {
		e.Vector = slices.Clone(e.Vector)
		e.Metadata = maps.Clone(e.Metadata)
		x.entries[e.ID] = e
	}
	return nil
}

// Search scans all entries and returns the k most similar, ties broken by id.
func (x *Index) Search(_ context.Context, vec []float32, k int) ([]vector.Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.dim != 0 && len(vec) != x.dim {
		return nil, fmt.Errorf("query has %d dimensions, index expects %d", len(vec), x.dim)
	}

	hits := make([]vector.Hit, 0, len(x.entries))
	for _, e := range x.entries {
		hits = append(hits, vector.Hit{
			ID:       e.ID,
			Content:  e.Content,
			Metadata: maps.Clone(e.Metadata),
			Score:    vector.Cosine(vec, e.Vector),
		})
	}
	slices.SortFunc(hits, func(a, b vector.Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteByDocument removes every entry whose document_id matches.
func (x *Index) DeleteByDocument(_ context.Context, documentID string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	n := 0
	for id, e := range x.entries {
		if e.Metadata[domchunk.MetaDocumentID] == documentID {
			delete(x.entries, id)
			n++
		}
	}
	return n, nil
}

// DocumentIDs returns distinct document ids in sorted order.
func (x *Index) DocumentIDs(context.Context) ([]string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range x.entries {
		if id := e.Metadata[domchunk.MetaDocumentID]; id != "" {
			seen[id] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

// Len returns the number of stored entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}
