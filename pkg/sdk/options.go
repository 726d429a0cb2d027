package ragchat

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "memory", "valkey" or "redis"
	addrs    []string
	password string

	embedder Embedder

	storageDir     string
	sqliteRegistry bool

	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int
	keyPrefix        string

	chunkSize    int
	chunkOverlap int
	maxParallel  int
	maxFileBytes int64

	minChars       int
	keywords       []string
	defaultTopK    int
	maxTopK        int
	degradeOnError bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey stores vectors in a Valkey instance with valkey-search.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores vectors in a Redis 8+ instance with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the text embedding provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithStorageDir keeps uploads and the document registry under dir.
// Without it a temporary directory is created and removed on Close.
func WithStorageDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.storageDir = dir
	})
}

// WithSQLiteRegistry keeps the document registry in SQLite instead of a JSON file.
func WithSQLiteRegistry() Option {
	return optionFunc(func(c *clientConfig) {
		c.sqliteRegistry = true
	})
}

// WithVectorDimensions sets the embedding size. Defaults to 256.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters for Valkey/Redis.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithKeyPrefix namespaces Valkey/Redis keys. Default: "ragchat:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithChunking sets the chunk size and overlap in characters. Defaults: 800 and 120.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	})
}

// WithMaxParallel bounds how many files of one Upload are ingested at once.
func WithMaxParallel(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxParallel = n
	})
}

// WithMaxFileBytes rejects larger uploads. Default: 32 MiB.
func WithMaxFileBytes(n int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxFileBytes = n
	})
}

// WithRetrievalPolicy sets when Chat consults the index: messages of at least
// minChars characters, or containing any keyword.
func WithRetrievalPolicy(minChars int, keywords ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.minChars = minChars
		c.keywords = keywords
	})
}

// WithTopK sets the default and maximum number of retrieved chunks.
func WithTopK(defaultK, maxK int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultTopK = defaultK
		c.maxTopK = maxK
	})
}

// WithDegradeOnError makes Chat answer without sources when retrieval fails.
func WithDegradeOnError() Option {
	return optionFunc(func(c *clientConfig) {
		c.degradeOnError = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
