// Package pgvector stores chunk vectors in PostgreSQL with the pgvector extension.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	domchunk "github.com/kailas-cloud/ragchat/internal/domain/chunk"
	"github.com/kailas-cloud/ragchat/internal/domain/vector"
)

// Config describes the table layout.
type Config struct {
	Table      string
	Dimensions int
}

// Store implements the vector index capability on a pgx pool.
type Store struct {
	pool  *pgxpool.Pool
	name  string
	table string // sanitized
	dim   int
}

// Connect opens a pool and verifies connectivity.
func Connect(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s, err := New(pool, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, cfg Config) (*Store, error) {
	if cfg.Table == "" {
		return nil, errors.New("table is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, errors.New("dimensions must be positive")
	}
	return &Store{
		pool:  pool,
		name:  cfg.Table,
		table: pgx.Identifier{cfg.Table}.Sanitize(),
		dim:   cfg.Dimensions,
	}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// EnsureSchema creates the extension, table and indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.name, s.dim) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func schemaStatements(name string, dim int) []string {
	table := pgx.Identifier{name}.Sanitize()
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			chunk_id    TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			content     TEXT NOT NULL,
			metadata    JSONB NOT NULL,
			embedding   vector(%d) NOT NULL
		)`, table, dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (document_id)`,
			pgx.Identifier{name + "_document_id_idx"}.Sanitize(), table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
			pgx.Identifier{name + "_embedding_idx"}.Sanitize(), table),
	}
}

// Upsert writes all entries in one transaction.
func (s *Store) Upsert(ctx context.Context, entries []vector.Entry) error {
	batch := &pgx.Batch{}
	query := fmt.Sprintf(`INSERT INTO %s (chunk_id, document_id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`, s.table)

	for i := range entries {
		e := &entries[i]
		if len(e.Vector) != s.dim {
			return fmt.Errorf("entry %s: vector has %d dimensions, table expects %d", e.ID, len(e.Vector), s.dim)
		}
		md, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata of %s: %w", e.ID, err)
		}
		batch.Queue(query, e.ID, e.Metadata[domchunk.MetaDocumentID], e.Content, md, pgvector.NewVector(e.Vector))
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

// Search orders by cosine distance and reports 1 - distance as the score.
func (s *Store) Search(ctx context.Context, vec []float32, k int) ([]vector.Hit, error) {
	query := fmt.Sprintf(`SELECT chunk_id, content, metadata, 1 - (embedding <=> $1) AS score
		FROM %s ORDER BY embedding <=> $1 LIMIT $2`, s.table)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var hits []vector.Hit
	for rows.Next() {
		var (
			h  vector.Hit
			md []byte
		)
		if err := rows.Scan(&h.ID, &h.Content, &md, &h.Score); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		if err := json.Unmarshal(md, &h.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", h.ID, err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search rows: %w", err)
	}
	return hits, nil
}

// DeleteByDocument removes every chunk of documentID.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, s.table), documentID)
	if err != nil {
		return 0, fmt.Errorf("delete chunks of %s: %w", documentID, err)
	}
	return int(tag.RowsAffected()), nil
}

// DocumentIDs returns the distinct document ids present in the table.
func (s *Store) DocumentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT DISTINCT document_id FROM %s ORDER BY document_id`, s.table))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return ids, nil
}
