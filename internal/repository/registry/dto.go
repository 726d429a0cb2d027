package registry

import (
	"time"

	"github.com/kailas-cloud/ragchat/internal/domain/record"
)

// recordDTO is the on-disk shape of one registry entry.
type recordDTO struct {
	DocumentID  string    `json:"document_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	StoredPath  string    `json:"stored_path"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

func toDTO(r *record.Record) recordDTO {
	return recordDTO{
		DocumentID:  r.ID(),
		Filename:    r.Filename(),
		ContentType: r.ContentType(),
		Size:        r.Size(),
		StoredPath:  r.StoredPath(),
		UploadedAt:  r.UploadedAt(),
	}
}

func (d *recordDTO) toDomain() record.Record {
	return record.Reconstruct(d.DocumentID, d.Filename, d.ContentType, d.StoredPath, d.Size, d.UploadedAt)
}
