package ragchat

import (
	"io"
	"time"

	"github.com/kailas-cloud/ragchat/internal/domain/chunk"
	"github.com/kailas-cloud/ragchat/internal/domain/record"
	"github.com/kailas-cloud/ragchat/internal/domain/upload"
	"github.com/kailas-cloud/ragchat/internal/usecase/chat"
)

// File is one document to upload. Content is read once.
type File struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// DocumentInfo describes a registered document.
type DocumentInfo struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64
	StoredPath  string
	UploadedAt  time.Time
}

// UploadStatus tells whether an ingested file produced searchable chunks.
type UploadStatus string

// Upload status constants.
const (
	StatusIndexed UploadStatus = "indexed"
	StatusStored  UploadStatus = "stored"
)

// UploadResult is the outcome of one file. Err is nil on success.
type UploadResult struct {
	Filename      string
	Document      DocumentInfo
	ChunksIndexed int
	Status        UploadStatus
	Err           error
}

// Source is a chunk cited in an answer.
type Source struct {
	ChunkID    string
	DocumentID string
	Content    string
	Source     string
	Page       int // 0 when unknown
	UploadedAt time.Time
}

// ChatResponse is one answered message.
type ChatResponse struct {
	Answer        string
	Sources       []Source
	RetrievalUsed bool
	LatencyMs     float64
}

func fromRecord(r record.Record) DocumentInfo {
	return DocumentInfo{
		ID:          r.ID(),
		Filename:    r.Filename(),
		ContentType: r.ContentType(),
		Size:        r.Size(),
		StoredPath:  r.StoredPath(),
		UploadedAt:  r.UploadedAt(),
	}
}

func fromUploadResult(r upload.Result) UploadResult {
	if !r.OK() {
		return UploadResult{Filename: r.Filename(), Err: r.Err()}
	}
	rc := r.Receipt()
	return UploadResult{
		Filename:      r.Filename(),
		Document:      fromRecord(rc.Document),
		ChunksIndexed: rc.ChunksIndexed,
		Status:        UploadStatus(rc.Status),
	}
}

func fromChunks(chunks []chunk.Chunk) []Source {
	out := make([]Source, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		out[i] = Source{
			ChunkID:    c.ID(),
			DocumentID: c.DocumentID(),
			Content:    c.Content(),
			Source:     c.Source(),
			Page:       c.Page(),
			UploadedAt: c.UploadedAt(),
		}
	}
	return out
}

func fromChatResponse(r chat.Response) ChatResponse {
	return ChatResponse{
		Answer:        r.Answer,
		Sources:       fromChunks(r.Sources),
		RetrievalUsed: r.RetrievalUsed,
		LatencyMs:     r.LatencyMs,
	}
}
