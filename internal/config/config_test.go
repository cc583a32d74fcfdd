package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// validConfigYAML is a minimal valid configuration.
const validConfigYAML = `
pipeline:
  sources:
    - name: "books"
      url: "https://example.com/books.json"
      backup_urls: ["https://mirror.example.com/books.json"]
      enabled: true
    - name: "films"
      file: "data/raw/films.json"
      enabled: false
  retry:
    max_attempts: 3
    initial_delay_ms: 100
    max_delay_ms: 5000
    backoff_multiplier: 2.0
    timeout_sec: 30
  output:
    raw_path: "./raw"
    tables_path: "./tables"
  validation:
    max_skip_rate: 0.1
  codes:
    max_suffix: 50
  logging:
    level: "debug"
warehouse:
  driver: "sqlite"
  dsn: "./warehouse.db"
advanced:
  requests_per_second: 2
`

func validConfig() *Config {
	cfg := Default()
	cfg.Pipeline.Sources = []SourceConfig{{Name: "books", URL: "http://example.com/books.json", Enabled: true}}

	return cfg
}

func TestLoadConfig_Valid(t *testing.T) {
	t.Setenv(EnvWarehouseDSN, "")

	cfg, err := LoadConfig(createTempConfigFile(t, validConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if len(cfg.Pipeline.Sources) != 2 {
		t.Errorf("Expected 2 sources, got %d", len(cfg.Pipeline.Sources))
	}

	if cfg.Pipeline.Validation.MaxSkipRate != 0.1 {
		t.Errorf("MaxSkipRate = %v, want 0.1", cfg.Pipeline.Validation.MaxSkipRate)
	}

	if cfg.Pipeline.Codes.Sentinel != "UNK" || cfg.Pipeline.Codes.MaxSuffix != 50 || cfg.Pipeline.Codes.Length != 3 {
		t.Errorf("Codes = %+v", cfg.Pipeline.Codes)
	}

	if cfg.Warehouse.DSN != "./warehouse.db" {
		t.Errorf("DSN = %s", cfg.Warehouse.DSN)
	}

	if got := cfg.RawPath("books"); got != filepath.Join("raw", "books.json") {
		t.Errorf("RawPath = %s", got)
	}
}

func TestLoadConfig_EnvOverridesDSN(t *testing.T) {
	t.Setenv(EnvWarehouseDSN, "file:override.db")

	cfg, err := LoadConfig(createTempConfigFile(t, validConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Warehouse.DSN != "file:override.db" {
		t.Errorf("DSN = %s, want env override", cfg.Warehouse.DSN)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := createTempConfigFile(t, "invalid: yaml: content: [}")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"valid", func(c *Config) {}, nil},
		{"no sources", func(c *Config) { c.Pipeline.Sources = nil }, ErrNoSources},
		{"unknown source", func(c *Config) { c.Pipeline.Sources[0].Name = "music" }, ErrUnknownSourceName},
		{"duplicate source", func(c *Config) {
			c.Pipeline.Sources = append(c.Pipeline.Sources, c.Pipeline.Sources[0])
		}, ErrDuplicateSource},
		{"missing url", func(c *Config) { c.Pipeline.Sources[0].URL = "" }, ErrSourceMissingURLOrFile},
		{"bad url", func(c *Config) { c.Pipeline.Sources[0].URL = "example.com/books" }, ErrInvalidSourceURL},
		{"bad backup url", func(c *Config) { c.Pipeline.Sources[0].BackupURLs = []string{"nope"} }, ErrInvalidSourceURL},
		{"none enabled", func(c *Config) { c.Pipeline.Sources[0].Enabled = false }, ErrNoEnabledSources},
		{"max attempts", func(c *Config) { c.Pipeline.Retry.MaxAttempts = -1 }, ErrInvalidMaxAttempts},
		{"backoff", func(c *Config) { c.Pipeline.Retry.BackoffMultiplier = 0.5 }, ErrInvalidBackoffMultiplier},
		{"timeout", func(c *Config) { c.Pipeline.Retry.TimeoutSec = 0 }, ErrInvalidTimeout},
		{"skip rate", func(c *Config) { c.Pipeline.Validation.MaxSkipRate = 1.5 }, ErrInvalidSkipRate},
		{"sentinel", func(c *Config) { c.Pipeline.Codes.Sentinel = "unk" }, ErrInvalidSentinel},
		{"code length", func(c *Config) { c.Pipeline.Codes.Length = 9 }, ErrInvalidCodeLength},
		{"max suffix", func(c *Config) { c.Pipeline.Codes.MaxSuffix = 1 }, ErrInvalidMaxSuffix},
		{"log level", func(c *Config) { c.Pipeline.Logging.Level = "verbose" }, ErrInvalidLogLevel},
		{"driver", func(c *Config) { c.Warehouse.Driver = "snowflake" }, ErrInvalidDriver},
		{"dsn", func(c *Config) { c.Warehouse.DSN = "" }, ErrMissingDSN},
		{"rate", func(c *Config) { c.Advanced.RequestsPerSecond = -1 }, ErrInvalidRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}

				return
			}

			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSourceConfig_GetSource(t *testing.T) {
	tests := []struct {
		name     string
		src      SourceConfig
		expected string
	}{
		{"URL only", SourceConfig{URL: "http://example.com"}, "http://example.com"},
		{"File only", SourceConfig{File: "/path/to/books.json"}, "/path/to/books.json"},
		{"Both (File takes precedence)", SourceConfig{URL: "http://example.com", File: "/path/to/books.json"}, "/path/to/books.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.src.GetSource(); got != tt.expected {
				t.Errorf("GetSource() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSourceConfig_GetAllURLs(t *testing.T) {
	src := SourceConfig{
		URL:        "http://primary.com",
		BackupURLs: []string{"http://backup1.com", "http://backup2.com"},
	}

	urls := src.GetAllURLs()
	if len(urls) != 3 {
		t.Fatalf("Expected 3 URLs, got %d", len(urls))
	}

	if urls[0] != "http://primary.com" {
		t.Errorf("Expected primary URL first, got %s", urls[0])
	}
}

func TestRetryPolicy_GetRetryDelay(t *testing.T) {
	rp := RetryPolicy{
		InitialDelayMs:    100,
		MaxDelayMs:        1000,
		BackoffMultiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 0},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1000 * time.Millisecond},
		{10, 1000 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := rp.GetRetryDelay(tt.attempt); got != tt.expected {
			t.Errorf("GetRetryDelay(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestConfig_GetEnabledSources(t *testing.T) {
	cfg := &Config{Pipeline: PipelineConfig{Sources: []SourceConfig{
		{Name: "products", Enabled: true},
		{Name: "books", Enabled: false},
		{Name: "films", Enabled: true},
	}}}

	enabled := cfg.GetEnabledSources()
	if len(enabled) != 2 || enabled[1].Name != "films" {
		t.Errorf("GetEnabledSources() = %+v", enabled)
	}

	if _, ok := cfg.GetSource("books"); !ok {
		t.Error("GetSource(books) not found")
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	cfg := validConfig()
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	t.Setenv(EnvWarehouseDSN, "")

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if loaded.Pipeline.Sources[0].URL != cfg.Pipeline.Sources[0].URL {
		t.Errorf("round trip lost source URL")
	}
}

func TestResolve_ExplicitPath(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	cfg, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(cfg.Pipeline.Sources) != 2 {
		t.Errorf("Sources = %d, want 2", len(cfg.Pipeline.Sources))
	}
}

func TestResolve_MissingDefaultFallsBack(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(cfg.Pipeline.Sources) != 0 {
		t.Errorf("Sources = %d, want none", len(cfg.Pipeline.Sources))
	}

	if cfg.Warehouse.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Warehouse.Driver)
	}
}

func TestResolve_MissingExplicitPath(t *testing.T) {
	if _, err := Resolve(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing explicit config")
	}
}
