package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Budget = BudgetConfig{DailyTokenLimit: 1000000, Action: "invalid_action"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `embedding.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	validActions := []string{"", "warn", "reject"}

	for _, action := range validActions {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding.Budget.Action = action

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Drivers(t *testing.T) {
	tests := []struct {
		name    string
		db      DatabaseConfig
		wantErr bool
	}{
		{"memory", DatabaseConfig{Driver: "memory"}, false},
		{"redis with addrs", DatabaseConfig{Driver: "redis", Addrs: []string{"localhost:6379"}}, false},
		{"valkey without addrs", DatabaseConfig{Driver: "valkey"}, true},
		{"pgvector with dsn", DatabaseConfig{Driver: "pgvector", DSN: "postgres://localhost/rag"}, false},
		{"pgvector without dsn", DatabaseConfig{Driver: "pgvector"}, true},
		{"unknown", DatabaseConfig{Driver: "mongo"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database = tt.db
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_OpenAIRequiresModel(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Provider = "openai"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing model")
	}
	cfg.Embedding.Model = "text-embedding-3-small"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_CacheNeedsRedis(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Cache.Enabled = true

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "embedding.cache") {
		t.Fatalf("expected cache error, got %v", err)
	}
}

func TestValidate_OverlapMustBeSmallerThanSize(t *testing.T) {
	cfg := validConfig()
	cfg.Chunking = ChunkingConfig{Size: 100, Overlap: 100}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for overlap >= size")
	}
}

func TestValidate_TopKBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.DefaultTopK = 30

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for default_top_k > max_top_k")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8000 {
		t.Errorf("expected Port=8000, got %d", cfg.HTTP.Port)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("expected Driver=memory, got %q", cfg.Database.Driver)
	}
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("expected Provider=hash, got %q", cfg.Embedding.Provider)
	}
	if cfg.Chunking.Size != 800 || cfg.Chunking.Overlap != 120 {
		t.Errorf("expected chunking 800/120, got %d/%d", cfg.Chunking.Size, cfg.Chunking.Overlap)
	}
	if cfg.Retrieval.MinChars != 16 {
		t.Errorf("expected MinChars=16, got %d", cfg.Retrieval.MinChars)
	}
	if cfg.Retrieval.DefaultTopK != 4 || cfg.Retrieval.MaxTopK != 20 {
		t.Errorf("expected top_k 4/20, got %d/%d", cfg.Retrieval.DefaultTopK, cfg.Retrieval.MaxTopK)
	}
	if cfg.Storage.Registry != "file" || cfg.Storage.RegistryPath != filepath.Join("data", "registry.json") {
		t.Errorf("unexpected registry defaults: %q %q", cfg.Storage.Registry, cfg.Storage.RegistryPath)
	}
	if cfg.Index.KeyPrefix != "ragchat:" {
		t.Errorf("expected KeyPrefix='ragchat:', got %q", cfg.Index.KeyPrefix)
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "*" {
		t.Errorf("expected CORSOrigins=[*], got %v", cfg.HTTP.CORSOrigins)
	}
}

func TestApplyDefaults_SmallChunkOverlap(t *testing.T) {
	cfg := Config{Chunking: ChunkingConfig{Size: 200}}
	cfg.ApplyDefaults()

	if cfg.Chunking.Overlap != 50 {
		t.Errorf("expected Overlap=50, got %d", cfg.Chunking.Overlap)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 9000, ReadTimeoutSec: 30},
		Chunking:  ChunkingConfig{Size: 500, Overlap: 50},
		Storage:   StorageConfig{Registry: "sqlite"},
		Retrieval: RetrievalConfig{DefaultTopK: 8},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9000 || cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("http overridden: %+v", cfg.HTTP)
	}
	if cfg.Chunking.Size != 500 || cfg.Chunking.Overlap != 50 {
		t.Errorf("chunking overridden: %+v", cfg.Chunking)
	}
	if cfg.Storage.RegistryPath != filepath.Join("data", "registry.db") {
		t.Errorf("expected sqlite registry path, got %q", cfg.Storage.RegistryPath)
	}
	if cfg.Retrieval.DefaultTopK != 8 {
		t.Errorf("expected DefaultTopK=8, got %d", cfg.Retrieval.DefaultTopK)
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("RAGCHAT_TEST_PORT", "9123")
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := "http:\n  port: ${RAGCHAT_TEST_PORT}\nembedding:\n  model: ${RAGCHAT_TEST_MODEL:-m1}\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 9123 {
		t.Errorf("expected Port=9123, got %d", cfg.HTTP.Port)
	}
	if cfg.Embedding.Model != "m1" {
		t.Errorf("expected Model=m1, got %q", cfg.Embedding.Model)
	}
}

func TestLoadFile_CORSOrigins(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want []string
	}{
		{"listed", "http:\n  cors_origins:\n    - https://chat.example.com\n", []string{"https://chat.example.com"}},
		{"explicitly empty disables", "http:\n  cors_origins: []\n", []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cors.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o600); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if !slices.Equal(cfg.HTTP.CORSOrigins, tc.want) {
				t.Errorf("CORSOrigins = %v, want %v", cfg.HTTP.CORSOrigins, tc.want)
			}
		})
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("database:\n  driver: mongo\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_BundledEnvironments(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	for _, env := range []string{"local", "prod"} {
		t.Run(env, func(t *testing.T) {
			if _, err := Load(env); err != nil {
				t.Fatalf("Load(%q): %v", env, err)
			}
		})
	}
}
