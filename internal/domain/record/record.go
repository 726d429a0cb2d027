package record

import (
	"errors"
	"time"
)

// Record describes one uploaded document. Records are replaced, never mutated.
type Record struct {
	id          string
	filename    string
	contentType string
	size        int64
	storedPath  string
	uploadedAt  time.Time
}

// New validates and creates a Record.
func New(id, filename, contentType, storedPath string, size int64, uploadedAt time.Time) (Record, error) {
	switch {
	case id == "":
		return Record{}, errors.New("document id is required")
	case filename == "":
		return Record{}, errors.New("filename is required")
	case storedPath == "":
		return Record{}, errors.New("stored path is required")
	case size < 0:
		return Record{}, errors.New("size must be non-negative")
	case uploadedAt.IsZero():
		return Record{}, errors.New("uploaded_at is required")
	}
	return Reconstruct(id, filename, contentType, storedPath, size, uploadedAt), nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(id, filename, contentType, storedPath string, size int64, uploadedAt time.Time) Record {
	return Record{
		id:          id,
		filename:    filename,
		contentType: contentType,
		size:        size,
		storedPath:  storedPath,
		uploadedAt:  uploadedAt.UTC(),
	}
}

// ID returns the document id.
func (r *Record) ID() string { return r.id }

// Filename returns the original client filename.
func (r *Record) Filename() string { return r.filename }

// ContentType returns the declared MIME type, possibly empty.
func (r *Record) ContentType() string { return r.contentType }

// Size returns the stored byte size.
func (r *Record) Size() int64 { return r.size }

// StoredPath returns where the raw upload lives.
func (r *Record) StoredPath() string { return r.storedPath }

// UploadedAt returns the upload time in UTC.
func (r *Record) UploadedAt() time.Time { return r.uploadedAt }
