package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the ragchat service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	// CORSOrigins lists browser origins allowed to call the API (default: ["*"]).
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatabaseConfig selects and connects the vector index backend.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis, valkey, pgvector (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DSN              string   `yaml:"dsn"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string       `yaml:"provider"` // openai, hash (default: hash)
	APIKey              string       `yaml:"api_key"`
	BaseURL             string       `yaml:"base_url"`
	Model               string       `yaml:"model"`
	Dimensions          int          `yaml:"dimensions"`
	TimeoutSec          int          `yaml:"timeout_sec"`
	MaxBatchSize        int          `yaml:"max_batch_size"`
	DocumentInstruction string       `yaml:"document_instruction"`
	QueryInstruction    string       `yaml:"query_instruction"`
	Budget              BudgetConfig `yaml:"budget"`
	Cache               CacheConfig  `yaml:"cache"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// CacheConfig controls the Redis embedding cache. It needs a redis or valkey database.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	TTLHours int  `yaml:"ttl_hours"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	KeyPrefix       string `yaml:"key_prefix"`
	Table           string `yaml:"table"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// ChunkingConfig holds splitter settings.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"` // 0 means default: min(120, size/4)
}

// RetrievalConfig holds chat retrieval settings.
type RetrievalConfig struct {
	MinChars       int      `yaml:"auto_retrieval_min_chars"`
	Keywords       []string `yaml:"keywords"`
	DefaultTopK    int      `yaml:"default_top_k"`
	MaxTopK        int      `yaml:"max_top_k"`
	DegradeOnError bool     `yaml:"degrade_on_error"`
}

// StorageConfig holds local disk settings.
type StorageConfig struct {
	UploadDir    string `yaml:"upload_dir"`
	Registry     string `yaml:"registry"` // file, sqlite (default: file)
	RegistryPath string `yaml:"registry_path"`
}

// IngestConfig holds upload limits.
type IngestConfig struct {
	MaxParallel  int   `yaml:"max_parallel"`
	MaxFileBytes int64 `yaml:"max_file_bytes"`
	MaxFiles     int   `yaml:"max_files"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded first.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 60
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.CORSOrigins == nil {
		c.HTTP.CORSOrigins = []string{"*"}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "hash"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 256
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 256
	}
	if c.Embedding.Cache.TTLHours <= 0 {
		c.Embedding.Cache.TTLHours = 24 * 7
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "ragchat:"
	}
	if c.Index.Table == "" {
		c.Index.Table = "ragchat_chunks"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Chunking.Size <= 0 {
		c.Chunking.Size = 800
	}
	if c.Chunking.Overlap <= 0 {
		c.Chunking.Overlap = min(120, c.Chunking.Size/4)
	}
	if c.Retrieval.MinChars <= 0 {
		c.Retrieval.MinChars = 16
	}
	if c.Retrieval.DefaultTopK <= 0 {
		c.Retrieval.DefaultTopK = 4
	}
	if c.Retrieval.MaxTopK <= 0 {
		c.Retrieval.MaxTopK = 20
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = filepath.Join("data", "uploads")
	}
	if c.Storage.Registry == "" {
		c.Storage.Registry = "file"
	}
	if c.Storage.RegistryPath == "" {
		if c.Storage.Registry == "sqlite" {
			c.Storage.RegistryPath = filepath.Join("data", "registry.db")
		} else {
			c.Storage.RegistryPath = filepath.Join("data", "registry.json")
		}
	}
	if c.Ingest.MaxParallel <= 0 {
		c.Ingest.MaxParallel = 4
	}
	if c.Ingest.MaxFileBytes <= 0 {
		c.Ingest.MaxFileBytes = 32 << 20
	}
	if c.Ingest.MaxFiles <= 0 {
		c.Ingest.MaxFiles = 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case "memory":
	case "redis", "valkey":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case "pgvector":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for driver \"pgvector\"")
		}
	default:
		return fmt.Errorf("database.driver must be one of memory, redis, valkey, pgvector, got %q", c.Database.Driver)
	}

	switch c.Embedding.Provider {
	case "hash":
	case "openai":
		if c.Embedding.Model == "" {
			return errors.New("embedding.model is required for provider \"openai\"")
		}
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"hash\", got %q", c.Embedding.Provider)
	}

	switch c.Embedding.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"embedding.budget.action must be \"warn\" or \"reject\", got %q", c.Embedding.Budget.Action,
		)
	}
	if c.Embedding.Cache.Enabled && !c.usesRedis() {
		return fmt.Errorf("embedding.cache requires a redis or valkey database, got %q", c.Database.Driver)
	}

	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap (%d) must be smaller than chunking.size (%d)",
			c.Chunking.Overlap, c.Chunking.Size)
	}
	if c.Retrieval.DefaultTopK > c.Retrieval.MaxTopK {
		return fmt.Errorf("retrieval.default_top_k (%d) exceeds retrieval.max_top_k (%d)",
			c.Retrieval.DefaultTopK, c.Retrieval.MaxTopK)
	}

	switch c.Storage.Registry {
	case "file", "sqlite":
	default:
		return fmt.Errorf("storage.registry must be \"file\" or \"sqlite\", got %q", c.Storage.Registry)
	}
	return nil
}

// PersistsBudget reports whether token counters can be kept in the database.
func (c *Config) PersistsBudget() bool { return c.usesRedis() }

func (c *Config) usesRedis() bool {
	return c.Database.Driver == "redis" || c.Database.Driver == "valkey"
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
