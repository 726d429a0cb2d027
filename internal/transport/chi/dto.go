package chi

import (
	"time"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/chunk"
	"github.com/kailas-cloud/ragchat/internal/domain/record"
	"github.com/kailas-cloud/ragchat/internal/domain/upload"
	"github.com/kailas-cloud/ragchat/internal/domain/usage"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Document is the wire form of a registry record.
type Document struct {
	DocumentID  string    `json:"document_id"`
	Filename    string    `json:"filename"`
	ContentType *string   `json:"content_type"`
	Size        int64     `json:"size"`
	StoredPath  string    `json:"stored_path"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// DocumentList wraps the registry listing.
type DocumentList struct {
	Items []Document `json:"items"`
}

// UploadItem is one entry of the upload response. Status is "ok" or "error".
type UploadItem struct {
	Status        string         `json:"status"`
	Filename      string         `json:"filename"`
	Document      *Document      `json:"document,omitempty"`
	ChunksIndexed *int           `json:"chunks_indexed,omitempty"`
	IndexStatus   string         `json:"index_status,omitempty"`
	Error         *ErrorResponse `json:"error,omitempty"`
}

// Source is a retrieved chunk as cited in answers.
type Source struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	Page       *int      `json:"page"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=20000"`
	TopK    int    `json:"top_k" validate:"max=1000"`
}

// ChatResponse is one chat turn.
type ChatResponse struct {
	Answer        string   `json:"answer"`
	Sources       []Source `json:"sources"`
	RetrievalUsed bool     `json:"retrieval_used"`
	LatencyMs     float64  `json:"latency_ms"`
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query          string `json:"query" validate:"required,max=20000"`
	TopK           int    `json:"top_k" validate:"max=1000"`
	IncludeSources *bool  `json:"include_sources"`
}

// SearchResponse is the answer with optional citations.
type SearchResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// PurgeResponse reports how many orphan vectors were removed.
type PurgeResponse struct {
	Removed int `json:"removed"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageResponse is the body of GET /api/v1/usage.
type UsageResponse struct {
	Period          string    `json:"period"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	TokensUsed      int64     `json:"tokens_used"`
	TokensLimit     *int64    `json:"tokens_limit"`
	TokensRemaining *int64    `json:"tokens_remaining"`
	Exhausted       bool      `json:"exhausted"`
}

func usageToDTO(r usage.Report) UsageResponse {
	resp := UsageResponse{
		Period:      string(r.Period()),
		PeriodStart: r.PeriodStart(),
		PeriodEnd:   r.PeriodEnd(),
		TokensUsed:  r.TokensUsed(),
		Exhausted:   r.Exhausted(),
	}
	if limit := r.TokensLimit(); limit > 0 {
		remaining := r.TokensRemaining()
		resp.TokensLimit = &limit
		resp.TokensRemaining = &remaining
	}
	return resp
}

func documentToDTO(r record.Record) Document {
	d := Document{
		DocumentID: r.ID(),
		Filename:   r.Filename(),
		Size:       r.Size(),
		StoredPath: r.StoredPath(),
		UploadedAt: r.UploadedAt(),
	}
	if ct := r.ContentType(); ct != "" {
		d.ContentType = &ct
	}
	return d
}

func sourcesToDTO(chunks []chunk.Chunk) []Source {
	out := make([]Source, len(chunks))
	for i, c := range chunks {
		out[i] = Source{
			ChunkID:    c.ID(),
			DocumentID: c.DocumentID(),
			Content:    c.Content(),
			Source:     c.Source(),
			UploadedAt: c.UploadedAt(),
		}
		if p := c.Page(); p > 0 {
			out[i].Page = &p
		}
	}
	return out
}

func uploadResultToDTO(r upload.Result) UploadItem {
	if !r.OK() {
		return UploadItem{
			Status:   "error",
			Filename: r.Filename(),
			Error:    &ErrorResponse{Code: string(domain.KindOf(r.Err())), Message: domain.SafeMessage(r.Err())},
		}
	}
	rc := r.Receipt()
	doc := documentToDTO(rc.Document)
	n := rc.ChunksIndexed
	return UploadItem{
		Status:        "ok",
		Filename:      r.Filename(),
		Document:      &doc,
		ChunksIndexed: &n,
		IndexStatus:   string(rc.Status),
	}
}
