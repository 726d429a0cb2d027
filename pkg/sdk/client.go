package ragchat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/ragchat/internal/db/redis"
	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/record"
	"github.com/kailas-cloud/ragchat/internal/domain/splitter"
	"github.com/kailas-cloud/ragchat/internal/domain/upload"
	"github.com/kailas-cloud/ragchat/internal/loader"
	chunkrepo "github.com/kailas-cloud/ragchat/internal/repository/chunk"
	"github.com/kailas-cloud/ragchat/internal/repository/chunk/memory"
	"github.com/kailas-cloud/ragchat/internal/repository/registry"
	"github.com/kailas-cloud/ragchat/internal/repository/registry/sqlite"
	uploadrepo "github.com/kailas-cloud/ragchat/internal/repository/upload"
	"github.com/kailas-cloud/ragchat/internal/transport/hashemb"
	"github.com/kailas-cloud/ragchat/internal/usecase/chat"
	embeddinguc "github.com/kailas-cloud/ragchat/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	"github.com/kailas-cloud/ragchat/internal/usecase/ingest"
	"github.com/kailas-cloud/ragchat/internal/usecase/vectorstore"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultDimensions       = 256
	defaultKeyPrefix        = "ragchat:"
	defaultChunkSize        = 800
	defaultChunkOverlap     = 120
	defaultMaxFileBytes     = 32 << 20
	defaultMinChars         = 16
)

// Internal interfaces, swapped for mocks in tests.
type ingestUseCase interface {
	Upload(ctx context.Context, files []ingest.File) ([]upload.Result, error)
	List(ctx context.Context) ([]record.Record, error)
	Get(ctx context.Context, id string) (record.Record, error)
	PurgeOrphans(ctx context.Context) (int, error)
}

type chatUseCase interface {
	Chat(ctx context.Context, message string, topK int) (chat.Response, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Client is the ragchat SDK entry point: an in-process knowledge base with chat.
type Client struct {
	ingestSvc ingestUseCase
	chatSvc   chatUseCase
	healthSvc healthUseCase
	index     pinger
	obs       *observer
	closers   []func()
}

// New creates a Client. Without WithValkey or WithRedis vectors are kept in memory.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (_ *Client, err error) {
	cfg := &clientConfig{driver: "memory"}
	for _, o := range opts {
		o.apply(cfg)
	}
	cfg.applyDefaults()

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	c := &Client{obs: obs}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if cfg.storageDir == "" {
		dir, err := os.MkdirTemp("", "ragchat-*")
		if err != nil {
			return nil, fmt.Errorf("ragchat: create storage dir: %w", err)
		}
		cfg.storageDir = dir
		c.closers = append(c.closers, func() { _ = os.RemoveAll(dir) })
	}

	index, err := c.createIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := c.wire(cfg, index); err != nil {
		return nil, err
	}
	return c, nil
}

func (cfg *clientConfig) applyDefaults() {
	if cfg.vectorDimensions <= 0 {
		cfg.vectorDimensions = defaultDimensions
	}
	if cfg.keyPrefix == "" {
		cfg.keyPrefix = defaultKeyPrefix
	}
	if cfg.chunkSize <= 0 {
		cfg.chunkSize = defaultChunkSize
	}
	if cfg.chunkOverlap <= 0 {
		cfg.chunkOverlap = min(defaultChunkOverlap, cfg.chunkSize/4)
	}
	if cfg.maxFileBytes <= 0 {
		cfg.maxFileBytes = defaultMaxFileBytes
	}
	if cfg.minChars <= 0 {
		cfg.minChars = defaultMinChars
	}
}

func (c *Client) createIndex(ctx context.Context, cfg *clientConfig) (vectorstore.Index, error) {
	switch cfg.driver {
	case "memory":
		return memory.New(cfg.vectorDimensions), nil
	case "valkey", "redis":
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, errors.New("ragchat: database address required")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("ragchat: create %s store: %w", cfg.driver, err)
		}
		c.closers = append(c.closers, s.Close)
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			return nil, fmt.Errorf("ragchat: database not ready: %w", err)
		}
		return chunkrepo.New(s, chunkrepo.Config{
			KeyPrefix:      cfg.keyPrefix,
			Dimensions:     cfg.vectorDimensions,
			M:              cfg.hnswM,
			EFConstruction: cfg.hnswEFConstruct,
		}), nil
	default:
		return nil, fmt.Errorf("ragchat: unknown driver %q", cfg.driver)
	}
}

func (c *Client) wire(cfg *clientConfig, index vectorstore.Index) error {
	logger := zap.NewNop()

	var base domain.Embedder = hashemb.New(cfg.vectorDimensions)
	provider := "hash"
	if cfg.embedder != nil {
		base = adaptEmbedder(cfg.embedder)
		provider = "custom"
	}
	embedder := embeddinguc.NewInstrumentedEmbedder(base, provider, "", logger)

	vectors := vectorstore.New(embedder, index, logger)

	reg, err := c.createRegistry(cfg, logger)
	if err != nil {
		return err
	}
	uploads, err := uploadrepo.NewStore(filepath.Join(cfg.storageDir, "uploads"), cfg.maxFileBytes)
	if err != nil {
		return fmt.Errorf("ragchat: create upload store: %w", err)
	}
	sp, err := splitter.New(cfg.chunkSize, cfg.chunkOverlap)
	if err != nil {
		return fmt.Errorf("ragchat: %w", err)
	}

	ingestSvc := ingest.New(reg, uploads, loader.Default(cfg.maxFileBytes), sp, vectors, logger)
	if cfg.maxParallel > 0 {
		ingestSvc = ingestSvc.WithMaxParallel(cfg.maxParallel)
	}

	c.ingestSvc = ingestSvc
	c.chatSvc = chat.New(vectors, chat.NewPolicy(cfg.minChars, cfg.keywords), chat.Config{
		DefaultTopK:    cfg.defaultTopK,
		MaxTopK:        cfg.maxTopK,
		DegradeOnError: cfg.degradeOnError,
	}, logger)
	c.healthSvc = healthuc.New(vectors, embedder, logger)
	c.index = vectors
	return nil
}

func (c *Client) createRegistry(cfg *clientConfig, logger *zap.Logger) (ingest.Registry, error) {
	if cfg.sqliteRegistry {
		s, err := sqlite.NewStore(filepath.Join(cfg.storageDir, "registry.db"), logger)
		if err != nil {
			return nil, fmt.Errorf("ragchat: open registry: %w", err)
		}
		c.closers = append(c.closers, func() { _ = s.Close() })
		return s, nil
	}
	f, err := registry.NewFile(filepath.Join(cfg.storageDir, "registry.json"), logger)
	if err != nil {
		return nil, fmt.Errorf("ragchat: open registry: %w", err)
	}
	return f, nil
}

// Close releases all resources in reverse order of creation.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Ping checks vector index connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.index.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Upload stores, parses and indexes files. A failing file does not stop the
// others; inspect each UploadResult.Err. Results follow the input order.
func (c *Client) Upload(ctx context.Context, files ...File) (_ []UploadResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("upload", start, err) }()

	in := make([]ingest.File, len(files))
	for i, f := range files {
		in[i] = ingest.File{Name: f.Name, ContentType: f.ContentType, Content: f.Content}
	}
	results, err := c.ingestSvc.Upload(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	out := make([]UploadResult, len(results))
	for i, r := range results {
		out[i] = fromUploadResult(r)
	}
	return out, nil
}

// Documents lists registered documents, most recent first.
func (c *Client) Documents(ctx context.Context) (_ []DocumentInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe("documents", start, err) }()

	recs, err := c.ingestSvc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]DocumentInfo, len(recs))
	for i, r := range recs {
		out[i] = fromRecord(r)
	}
	return out, nil
}

// Document returns one registered document. Returns ErrNotFound for unknown ids.
func (c *Client) Document(ctx context.Context, id string) (_ DocumentInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe("document", start, err) }()

	r, err := c.ingestSvc.Get(ctx, id)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("get document: %w", err)
	}
	return fromRecord(r), nil
}

// Chat answers message from the indexed documents. topK <= 0 uses the default.
func (c *Client) Chat(ctx context.Context, message string, topK int) (_ ChatResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("chat", start, err) }()

	resp, err := c.chatSvc.Chat(ctx, message, topK)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("chat: %w", err)
	}
	return fromChatResponse(resp), nil
}

// PurgeOrphans deletes indexed chunks whose document is no longer registered.
func (c *Client) PurgeOrphans(ctx context.Context) (_ int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("purge_orphans", start, err) }()

	n, err := c.ingestSvc.PurgeOrphans(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge orphans: %w", err)
	}
	return n, nil
}
