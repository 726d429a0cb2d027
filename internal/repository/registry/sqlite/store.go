// Package sqlite is a registry backend on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/record"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	document_id  TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	size         INTEGER NOT NULL,
	stored_path  TEXT NOT NULL,
	uploaded_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents (uploaded_at DESC);
`

// Store keeps one row per document. Each Upsert is a single statement, so
// concurrent writers cannot drop each other's rows.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore opens (or creates) the database at path.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("registry path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create registry dir: %w", domain.ErrStorage, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open registry: %w", domain.ErrStorage, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate registry: %w", domain.ErrStorage, err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts rec or replaces the row with the same document id.
func (s *Store) Upsert(ctx context.Context, rec record.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (document_id, filename, content_type, size, stored_path, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			filename = excluded.filename,
			content_type = excluded.content_type,
			size = excluded.size,
			stored_path = excluded.stored_path,
			uploaded_at = excluded.uploaded_at`,
		rec.ID(), rec.Filename(), rec.ContentType(), rec.Size(), rec.StoredPath(), rec.UploadedAt().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %w", domain.ErrStorage, rec.ID(), err)
	}
	return nil
}

// List returns all records, most recent first. A failing read is logged and yields an empty list.
func (s *Store) List(ctx context.Context) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, filename, content_type, size, stored_path, uploaded_at
		FROM documents ORDER BY uploaded_at DESC, document_id`)
	if err != nil {
		s.logger.Warn("Registry unreadable, treating as empty", zap.Error(err))
		return []record.Record{}, nil
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			s.logger.Warn("Registry row unreadable, treating as empty", zap.Error(err))
			return []record.Record{}, nil
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("Registry iteration failed, treating as empty", zap.Error(err))
		return []record.Record{}, nil
	}
	return out, nil
}

// IDs returns every registered document id and fails when the table cannot be read.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document_id FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("%w: list ids: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan id: %w", domain.ErrStorage, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list ids: %w", domain.ErrStorage, err)
	}
	return ids, nil
}

// Get returns the record for id or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (record.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT document_id, filename, content_type, size, stored_path, uploaded_at
		FROM documents WHERE document_id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Record{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("%w: get %s: %w", domain.ErrStorage, id, err)
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (record.Record, error) {
	var (
		id, filename, contentType, storedPath string
		size, uploadedAt                      int64
	)
	if err := sc.Scan(&id, &filename, &contentType, &size, &storedPath, &uploadedAt); err != nil {
		return record.Record{}, err
	}
	return record.Reconstruct(id, filename, contentType, storedPath, size, time.Unix(0, uploadedAt)), nil
}
