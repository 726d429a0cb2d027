// Package app wires configuration into running services. It is shared by the server and the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/config"
	dbRedis "github.com/kailas-cloud/ragchat/internal/db/redis"
	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/splitter"
	"github.com/kailas-cloud/ragchat/internal/loader"
	"github.com/kailas-cloud/ragchat/internal/metrics"
	budgetrepo "github.com/kailas-cloud/ragchat/internal/repository/budget"
	chunkrepo "github.com/kailas-cloud/ragchat/internal/repository/chunk"
	"github.com/kailas-cloud/ragchat/internal/repository/chunk/memory"
	"github.com/kailas-cloud/ragchat/internal/repository/chunk/pgvector"
	"github.com/kailas-cloud/ragchat/internal/repository/embcache"
	"github.com/kailas-cloud/ragchat/internal/repository/registry"
	"github.com/kailas-cloud/ragchat/internal/repository/registry/sqlite"
	"github.com/kailas-cloud/ragchat/internal/repository/upload"
	chiTransport "github.com/kailas-cloud/ragchat/internal/transport/chi"
	"github.com/kailas-cloud/ragchat/internal/transport/hashemb"
	openaiEmb "github.com/kailas-cloud/ragchat/internal/transport/openai"
	"github.com/kailas-cloud/ragchat/internal/usecase/chat"
	embeddinguc "github.com/kailas-cloud/ragchat/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	"github.com/kailas-cloud/ragchat/internal/usecase/ingest"
	usageuc "github.com/kailas-cloud/ragchat/internal/usecase/usage"
	"github.com/kailas-cloud/ragchat/internal/usecase/vectorstore"
)

// App holds the wired services.
type App struct {
	Ingest  *ingest.Service
	Chat    *chat.Service
	Health  *healthuc.Service
	Vectors *vectorstore.Manager
	Budget  *embeddinguc.BudgetTracker
	Usage   *usageuc.Service

	logger  *zap.Logger
	closers []func()
}

// New builds every service from cfg. Call Close when done.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	a := &App{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var kv *dbRedis.Store
	if cfg.Database.Driver == "redis" || cfg.Database.Driver == "valkey" {
		kv, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create database store: %w", err)
		}
		a.closers = append(a.closers, kv.Close)

		if err := kv.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))
	}

	index, err := a.buildIndex(ctx, cfg, kv)
	if err != nil {
		return nil, err
	}

	lim := cfg.Embedding.Budget
	a.Budget = embeddinguc.NewBudgetTracker(embeddinguc.BudgetConfig{
		Provider:     cfg.Embedding.Provider,
		KeyPrefix:    cfg.Index.KeyPrefix,
		DailyLimit:   lim.DailyTokenLimit,
		MonthlyLimit: lim.MonthlyTokenLimit,
		Action:       embeddinguc.BudgetAction(lim.Action),
	}, logger)
	if cfg.PersistsBudget() {
		a.Budget.WithStore(ctx, budgetrepo.New(kv, 0, 0))
	}
	a.Usage = usageuc.New(a.Budget)

	base := buildBaseEmbedder(cfg, logger)
	instrumented := a.instrument(cfg, base, kv, logger)
	docEmbedder := withInstruction(instrumented, cfg.Embedding.DocumentInstruction)
	queryEmbedder := withInstruction(instrumented, cfg.Embedding.QueryInstruction)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	a.Vectors = vectorstore.New(docEmbedder, index, logger).WithQueryEmbedder(queryEmbedder)

	reg, err := a.buildRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}
	uploads, err := upload.NewStore(cfg.Storage.UploadDir, cfg.Ingest.MaxFileBytes)
	if err != nil {
		return nil, fmt.Errorf("create upload store: %w", err)
	}
	sp, err := splitter.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("create splitter: %w", err)
	}

	a.Ingest = ingest.New(reg, uploads, loader.Default(cfg.Ingest.MaxFileBytes), sp, a.Vectors, logger).
		WithMaxParallel(cfg.Ingest.MaxParallel)
	a.Chat = chat.New(a.Vectors, chat.NewPolicy(cfg.Retrieval.MinChars, cfg.Retrieval.Keywords), chat.Config{
		DefaultTopK:    cfg.Retrieval.DefaultTopK,
		MaxTopK:        cfg.Retrieval.MaxTopK,
		DegradeOnError: cfg.Retrieval.DegradeOnError,
	}, logger)
	a.Health = healthuc.New(a.Vectors, instrumented, logger)

	return a, nil
}

// Server builds the HTTP handler set over the wired services.
func (a *App) Server(cfg config.Config) *chiTransport.Server {
	return chiTransport.NewServer(a.Ingest, a.Chat, a.Health, chiTransport.Limits{
		MaxFiles:     cfg.Ingest.MaxFiles,
		MaxFileBytes: cfg.Ingest.MaxFileBytes,
	}, a.logger).WithUsage(a.Usage).WithCORS(cfg.HTTP.CORSOrigins)
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) buildIndex(ctx context.Context, cfg config.Config, kv *dbRedis.Store) (vectorstore.Index, error) {
	dim := cfg.Embedding.Dimensions
	switch cfg.Database.Driver {
	case "memory":
		return memory.New(dim), nil
	case "redis", "valkey":
		return chunkrepo.New(kv, chunkrepo.Config{
			KeyPrefix:      cfg.Index.KeyPrefix,
			Dimensions:     dim,
			M:              cfg.Index.HNSWM,
			EFConstruction: cfg.Index.HNSWEFConstruct,
		}), nil
	case "pgvector":
		pctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second)
		defer cancel()
		pg, err := pgvector.Connect(pctx, cfg.Database.DSN, pgvector.Config{Table: cfg.Index.Table, Dimensions: dim})
		if err != nil {
			return nil, fmt.Errorf("connect pgvector: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		a.logger.Info("Connected to database", zap.String("driver", "pgvector"))
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func (a *App) buildRegistry(cfg config.Config, logger *zap.Logger) (ingest.Registry, error) {
	switch cfg.Storage.Registry {
	case "sqlite":
		s, err := sqlite.NewStore(cfg.Storage.RegistryPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite registry: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := s.Close(); err != nil {
				logger.Warn("Close registry", zap.Error(err))
			}
		})
		return s, nil
	case "file":
		f, err := registry.NewFile(cfg.Storage.RegistryPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open registry: %w", err)
		}
		return f, nil
	default:
		return nil, errors.New("unknown registry " + cfg.Storage.Registry)
	}
}

func buildBaseEmbedder(cfg config.Config, logger *zap.Logger) domain.Embedder {
	if cfg.Embedding.Provider == "openai" {
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   "openai",
			Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
			Logger:     logger,
		})
	}
	return hashemb.New(cfg.Embedding.Dimensions)
}

// instrument assembles the decorator chain: base -> cached -> instrumented.
func (a *App) instrument(
	cfg config.Config, base domain.Embedder, kv *dbRedis.Store, logger *zap.Logger,
) *embeddinguc.InstrumentedEmbedder {
	embedder := base
	if cfg.Embedding.Cache.Enabled && kv != nil {
		embedder = embcache.New(base, kv, embcache.Config{
			KeyPrefix: cfg.Index.KeyPrefix,
			Model:     cfg.Embedding.Provider + "/" + cfg.Embedding.Model,
			TTL:       time.Duration(cfg.Embedding.Cache.TTLHours) * time.Hour,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Provider, cfg.Embedding.Model, logger,
		embeddinguc.WithMaxBatchSize(cfg.Embedding.MaxBatchSize),
		embeddinguc.WithBudget(a.Budget),
	)
}

// withInstruction is the outermost decorator so that the cache key includes the instruction.
func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}
