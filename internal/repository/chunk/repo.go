// Package chunk stores chunk vectors in a Redis/Valkey FT index over HASH keys.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragchat/internal/db"
	domchunk "github.com/kailas-cloud/ragchat/internal/domain/chunk"
	"github.com/kailas-cloud/ragchat/internal/domain/vector"
)

const pageSize = 500

// store is the consumer interface for the chunk index (ISP).
type store interface {
	Ping(ctx context.Context) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, keys ...string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
}

// Config describes the index layout.
type Config struct {
	KeyPrefix      string // e.g. "ragchat:"
	Dimensions     int
	M              int
	EFConstruction int
}

// Repo implements the vector index capability on a db.Store.
type Repo struct {
	store     store
	cfg       Config
	indexName string
	keyPrefix string
}

// New creates a chunk repository. Keys are {prefix}chunk:{chunk_id}.
func New(s store, cfg Config) *Repo {
	return &Repo{
		store:     s,
		cfg:       cfg,
		indexName: cfg.KeyPrefix + "chunks:idx",
		keyPrefix: cfg.KeyPrefix + "chunk:",
	}
}

// IndexName returns the FT index name.
func (r *Repo) IndexName() string { return r.indexName }

// Ping checks backend connectivity.
func (r *Repo) Ping(ctx context.Context) error { return r.store.Ping(ctx) }

// EnsureSchema creates the FT index unless it already exists.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.indexName, err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(r.indexName).
		Prefix(r.keyPrefix).
		Tag(domchunk.MetaDocumentID).
		VectorHNSW(fieldVector, vectorAlias, r.cfg.Dimensions, db.DistanceCosine, r.cfg.M, r.cfg.EFConstruction).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	// another replica may have created it between the check and here
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.indexName, err)
	}
	return nil
}

// Upsert writes all entries in one pipelined round-trip.
func (r *Repo) Upsert(ctx context.Context, entries []vector.Entry) error {
	items := make([]db.HashSetItem, len(entries))
	for i := range entries {
		e := &entries[i]
		if len(e.Vector) != r.cfg.Dimensions {
			return fmt.Errorf("entry %s: vector has %d dimensions, index expects %d", e.ID, len(e.Vector), r.cfg.Dimensions)
		}
		items[i] = db.HashSetItem{Key: r.keyPrefix + e.ID, Fields: buildHashFields(e)}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset chunks: %w", err)
	}
	return nil
}

// Search returns the k nearest chunks, closest first.
func (r *Repo) Search(ctx context.Context, vec []float32, k int) ([]vector.Hit, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: r.indexName,
		Vector:    vec,
		K:         k,
		ReturnFields: []string{
			fieldContent,
			domchunk.MetaDocumentID,
			domchunk.MetaChunkID,
			domchunk.MetaSource,
			domchunk.MetaPage,
			domchunk.MetaUploadedAt,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	hits := make([]vector.Hit, 0, len(res.Entries))
	for _, e := range res.Entries {
		content, md := parseHashFields(e.Fields)
		hits = append(hits, vector.Hit{
			ID:       strings.TrimPrefix(e.Key, r.keyPrefix),
			Content:  content,
			Metadata: md,
			Score:    e.Score,
		})
	}
	return hits, nil
}

// DeleteByDocument removes every chunk of documentID and returns how many were deleted.
func (r *Repo) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	query := db.TagQuery(domchunk.MetaDocumentID, documentID)
	removed := 0
	for {
		res, err := r.store.SearchList(ctx, r.indexName, query, 0, pageSize, []string{domchunk.MetaDocumentID})
		if err != nil {
			return removed, fmt.Errorf("list chunks of %s: %w", documentID, err)
		}
		if len(res.Entries) == 0 {
			return removed, nil
		}

		keys := make([]string, len(res.Entries))
		for i, e := range res.Entries {
			keys[i] = e.Key
		}
		n, err := r.store.Del(ctx, keys...)
		removed += n
		if err != nil {
			return removed, fmt.Errorf("delete chunks of %s: %w", documentID, err)
		}
		if n == 0 {
			// the index still lists keys that are already gone
			return removed, nil
		}
	}
}

// DocumentIDs returns the distinct document ids present in the index.
func (r *Repo) DocumentIDs(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	for offset := 0; ; offset += pageSize {
		res, err := r.store.SearchList(ctx, r.indexName, "*", offset, pageSize, []string{domchunk.MetaDocumentID})
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		for _, e := range res.Entries {
			id := e.Fields[domchunk.MetaDocumentID]
			if _, ok := seen[id]; ok || id == "" {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		if len(res.Entries) < pageSize || offset+pageSize >= res.Total {
			return ids, nil
		}
	}
}
