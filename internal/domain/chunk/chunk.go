package chunk

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Metadata keys written next to every vector.
const (
	MetaDocumentID = "document_id"
	MetaChunkID    = "chunk_id"
	MetaSource     = "source"
	MetaPage       = "page"
	MetaUploadedAt = "uploaded_at"
)

// Defaults applied when a stored entry lacks provenance.
const (
	UnknownDocumentID = "unknown"
	UnknownSource     = "unknown source"
)

// Source is the provenance a chunk inherits from its parent document.
type Source struct {
	Name       string
	Page       int // 1-based; 0 when the loader has no page concept
	UploadedAt time.Time
}

// Chunk is an immutable slice of a document's text with provenance.
type Chunk struct {
	id         string
	documentID string
	content    string
	source     string
	page       int
	uploadedAt time.Time
}

// ID derives the chunk id for the ordinal-th chunk of a document.
func ID(documentID string, ordinal int) string {
	return documentID + "_" + strconv.Itoa(ordinal)
}

// New validates and creates the ordinal-th chunk of documentID.
func New(documentID string, ordinal int, content string, src Source) (Chunk, error) {
	switch {
	case documentID == "":
		return Chunk{}, errors.New("document id is required")
	case ordinal < 0:
		return Chunk{}, fmt.Errorf("ordinal must be non-negative, got %d", ordinal)
	case strings.TrimSpace(content) == "":
		return Chunk{}, errors.New("chunk content is empty")
	case src.Name == "":
		return Chunk{}, errors.New("source name is required")
	case src.Page < 0:
		return Chunk{}, fmt.Errorf("page must be non-negative, got %d", src.Page)
	case src.UploadedAt.IsZero():
		return Chunk{}, errors.New("uploaded_at is required")
	}

	return Chunk{
		id:         ID(documentID, ordinal),
		documentID: documentID,
		content:    content,
		source:     src.Name,
		page:       src.Page,
		uploadedAt: src.UploadedAt.UTC(),
	}, nil
}

// FromMetadata rebuilds a chunk read back from the vector index.
// Missing provenance falls back to UnknownDocumentID, UnknownSource and now.
func FromMetadata(content string, md map[string]string, now time.Time) Chunk {
	c := Chunk{
		id:         md[MetaChunkID],
		documentID: md[MetaDocumentID],
		content:    content,
		source:     md[MetaSource],
		uploadedAt: now.UTC(),
	}
	if c.documentID == "" {
		c.documentID = UnknownDocumentID
	}
	if c.source == "" {
		c.source = UnknownSource
	}
	if p, err := strconv.Atoi(md[MetaPage]); err == nil && p > 0 {
		c.page = p
	}
	if ts, err := time.Parse(time.RFC3339Nano, md[MetaUploadedAt]); err == nil {
		c.uploadedAt = ts.UTC()
	}
	return c
}

// ID returns the chunk id, "{document_id}_{ordinal}".
func (c *Chunk) ID() string { return c.id }

// DocumentID returns the parent document id.
func (c *Chunk) DocumentID() string { return c.documentID }

// Content returns the chunk text.
func (c *Chunk) Content() string { return c.content }

// Source returns the original filename.
func (c *Chunk) Source() string { return c.source }

// Page returns the 1-based page number, or 0 when unknown.
func (c *Chunk) Page() int { return c.page }

// UploadedAt returns the parent upload time.
func (c *Chunk) UploadedAt() time.Time { return c.uploadedAt }

// Metadata flattens provenance into the bag stored next to the vector.
func (c *Chunk) Metadata() map[string]string {
	md := map[string]string{
		MetaDocumentID: c.documentID,
		MetaSource:     c.source,
		MetaUploadedAt: c.uploadedAt.Format(time.RFC3339Nano),
	}
	if c.id != "" {
		md[MetaChunkID] = c.id
	}
	if c.page > 0 {
		md[MetaPage] = strconv.Itoa(c.page)
	}
	return md
}
