package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/chunk"
	"github.com/kailas-cloud/ragchat/internal/domain/record"
	"github.com/kailas-cloud/ragchat/internal/domain/upload"
	"github.com/kailas-cloud/ragchat/internal/loader"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// DefaultMaxParallel bounds how many files of one batch are ingested at once.
const DefaultMaxParallel = 4

// File is one uploaded file. Content is read exactly once.
type File struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// Service runs the ingestion pipeline: persist, parse, split, index, register.
type Service struct {
	registry    Registry
	uploads     Uploads
	loader      Loader
	splitter    Splitter
	vectors     VectorStore
	maxParallel int
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// New creates an ingestion service.
func New(
	registry Registry, uploads Uploads, ld Loader, sp Splitter, vectors VectorStore, logger *zap.Logger,
) *Service {
	return &Service{
		registry:    registry,
		uploads:     uploads,
		loader:      ld,
		splitter:    sp,
		vectors:     vectors,
		maxParallel: DefaultMaxParallel,
		logger:      logger,
		now:         time.Now,
		newID:       newDocumentID,
	}
}

// WithMaxParallel sets the per-batch concurrency.
func (s *Service) WithMaxParallel(n int) *Service {
	if n > 0 {
		s.maxParallel = n
	}
	return s
}

// Upload ingests every file independently and returns one result per file, in input order.
// Only an empty batch fails as a whole.
func (s *Service) Upload(ctx context.Context, files []File) ([]upload.Result, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files in upload", domain.ErrValidation)
	}

	results := make([]upload.Result, len(files))
	var g errgroup.Group
	g.SetLimit(s.maxParallel)
	for i := range files {
		g.Go(func() error {
			results[i] = s.ingest(ctx, files[i])
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// ingest runs the stages for one file. Any failure after the file is persisted is rolled back.
func (s *Service) ingest(ctx context.Context, f File) upload.Result {
	start := time.Now()
	name := filepath.Base(strings.TrimSpace(f.Name))
	log := s.logger.With(zap.String("filename", name))

	receipt, err := s.run(ctx, name, f)
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FilesIngestedTotal.WithLabelValues("failed").Inc()
		log.Warn("Ingestion failed", zap.Error(err))
		return upload.NewError(name, err)
	}

	metrics.FilesIngestedTotal.WithLabelValues(string(receipt.Status)).Inc()
	metrics.ChunksIndexedTotal.Add(float64(receipt.ChunksIndexed))
	log.Info("Document ingested",
		zap.String("document_id", receipt.Document.ID()),
		zap.Int("chunks", receipt.ChunksIndexed),
		zap.Duration("duration", time.Since(start)),
	)
	return upload.NewOK(name, receipt)
}

func (s *Service) run(ctx context.Context, name string, f File) (upload.Receipt, error) {
	if name == "" || name == "." || name == string(filepath.Separator) {
		return upload.Receipt{}, fmt.Errorf("%w: filename is required", domain.ErrValidation)
	}
	if f.Content == nil {
		return upload.Receipt{}, fmt.Errorf("%w: %s has no content", domain.ErrValidation, name)
	}

	id := s.newID()
	uploadedAt := s.now().UTC()

	// PERSISTED
	path, err := s.uploads.Save(ctx, id, filepath.Ext(name), f.Content)
	if err != nil {
		return upload.Receipt{}, fmt.Errorf("persist: %w", err)
	}
	rb := &rollback{svc: s, id: id, path: path}

	size, err := s.uploads.Stat(path)
	if err != nil {
		return upload.Receipt{}, rb.fail(ctx, "stat", err)
	}
	rec, err := record.New(id, name, contentType(f.ContentType, path), path, size, uploadedAt)
	if err != nil {
		return upload.Receipt{}, rb.fail(ctx, "record", fmt.Errorf("%w: %w", domain.ErrValidation, err))
	}

	// PARSED
	sections, err := s.loader.Load(ctx, path)
	if err != nil {
		return upload.Receipt{}, rb.fail(ctx, "parse", err)
	}

	// SPLIT
	chunks, err := s.split(id, name, uploadedAt, sections)
	if err != nil {
		return upload.Receipt{}, rb.fail(ctx, "split", err)
	}

	// INDEXED
	rb.indexed = len(chunks) > 0
	n, err := s.vectors.Upsert(ctx, chunks)
	if err != nil {
		return upload.Receipt{}, rb.fail(ctx, "index", err)
	}

	// REGISTERED
	if err := s.registry.Upsert(ctx, rec); err != nil {
		return upload.Receipt{}, rb.fail(ctx, "register", err)
	}

	status := upload.StatusIndexed
	if n == 0 {
		status = upload.StatusStored
	}
	return upload.Receipt{Document: rec, ChunksIndexed: n, Status: status}, nil
}

// split numbers chunks from 0 across all sections, in order, without gaps.
func (s *Service) split(id, name string, uploadedAt time.Time, sections []loader.Section) ([]chunk.Chunk, error) {
	var out []chunk.Chunk
	for _, sec := range sections {
		for _, p := range s.splitter.Split(sec.Text, nil) {
			if strings.TrimSpace(p.Content) == "" {
				continue
			}
			c, err := chunk.New(id, len(out), p.Content, chunk.Source{
				Name:       name,
				Page:       sec.Page,
				UploadedAt: uploadedAt,
			})
			if err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
			}
			out = append(out, c)
		}
	}
	return out, nil
}

// List returns all registered documents, most recent first.
func (s *Service) List(ctx context.Context) ([]record.Record, error) {
	recs, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return recs, nil
}

// Get returns one registered document.
func (s *Service) Get(ctx context.Context, id string) (record.Record, error) {
	rec, err := s.registry.Get(ctx, id)
	if err != nil {
		return record.Record{}, fmt.Errorf("get document: %w", err)
	}
	return rec, nil
}

// PurgeOrphans removes vectors of documents that are not in the registry,
// such as those left behind by re-uploading a file under a new id.
func (s *Service) PurgeOrphans(ctx context.Context) (int, error) {
	live, err := s.registry.IDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge orphans: %w", err)
	}
	n, err := s.vectors.PurgeOrphans(ctx, live)
	metrics.OrphansPurgedTotal.Add(float64(n))
	if err != nil {
		return n, fmt.Errorf("purge orphans: %w", err)
	}
	s.logger.Info("Orphan vectors purged", zap.Int("removed", n), zap.Int("live_documents", len(live)))
	return n, nil
}

// rollback undoes the side effects of a partially ingested file.
type rollback struct {
	svc     *Service
	id      string
	path    string
	indexed bool
}

func (r *rollback) fail(ctx context.Context, stage string, cause error) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	if r.indexed {
		if _, err := r.svc.vectors.DeleteDocument(ctx, r.id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.svc.uploads.Remove(r.path); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		r.svc.logger.Error("Rollback incomplete",
			zap.String("document_id", r.id),
			zap.String("stage", stage),
			zap.Error(errors.Join(errs...)),
		)
	}
	return fmt.Errorf("%s: %w", stage, cause)
}

// contentType prefers the client header and falls back to sniffing the stored file.
func contentType(declared, path string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return declared
	}
	return mt.String()
}

func newDocumentID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
