package ingest

import (
	"context"
	"io"

	"github.com/kailas-cloud/ragchat/internal/domain/chunk"
	"github.com/kailas-cloud/ragchat/internal/domain/record"
	"github.com/kailas-cloud/ragchat/internal/domain/splitter"
	"github.com/kailas-cloud/ragchat/internal/loader"
)

// Registry is the durable catalog of ingested documents.
type Registry interface {
	Upsert(ctx context.Context, rec record.Record) error
	List(ctx context.Context) ([]record.Record, error)
	Get(ctx context.Context, id string) (record.Record, error)
	IDs(ctx context.Context) ([]string, error)
}

// Uploads stores raw file bytes.
type Uploads interface {
	Save(ctx context.Context, documentID, ext string, r io.Reader) (string, error)
	Stat(path string) (int64, error)
	Remove(path string) error
}

// Loader turns a stored file into text sections.
type Loader interface {
	Load(ctx context.Context, path string) ([]loader.Section, error)
}

// Splitter cuts text into overlapping pieces.
type Splitter interface {
	Split(text string, metadata map[string]string) []splitter.Piece
}

// VectorStore indexes chunks and removes them again.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []chunk.Chunk) (int, error)
	DeleteDocument(ctx context.Context, documentID string) (int, error)
	PurgeOrphans(ctx context.Context, live []string) (int, error)
}
