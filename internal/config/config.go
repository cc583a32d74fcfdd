// Package config provides configuration management for the catalog pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvWarehouseDSN overrides warehouse.dsn so credentials stay out of the file.
const EnvWarehouseDSN = "WAREHOUSE_DSN"

// Configuration validation errors.
var (
	ErrNoSources                = errors.New("at least one source is required")
	ErrSourceMissingURLOrFile   = errors.New("either URL or file path is required")
	ErrUnknownSourceName        = errors.New("source name must be one of: products, books, films")
	ErrDuplicateSource          = errors.New("source configured twice")
	ErrInvalidSourceURL         = errors.New("source URLs must be absolute http(s) URLs")
	ErrNoEnabledSources         = errors.New("at least one source must be enabled")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrMissingOutputPath        = errors.New("output.raw_path and output.tables_path are required")
	ErrInvalidSkipRate          = errors.New("validation.max_skip_rate must be within (0, 1]")
	ErrInvalidSentinel          = errors.New("codes.sentinel must be 1 to 8 upper-case letters")
	ErrInvalidCodeLength        = errors.New("codes.length must be between 2 and 6")
	ErrInvalidMaxSuffix         = errors.New("codes.max_suffix must be at least 2")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidDriver            = errors.New("warehouse.driver must be 'sqlite' or 'postgres'")
	ErrMissingDSN               = errors.New("warehouse.dsn is required")
	ErrInvalidRateLimit         = errors.New("advanced.requests_per_second must be non-negative")
)

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var knownSources = map[string]bool{"products": true, "books": true, "films": true}

// Config represents the complete pipeline configuration.
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Tasks     TasksConfig     `yaml:"tasks"`
	Advanced  AdvancedConfig  `yaml:"advanced"`
}

// PipelineConfig contains fetch and normalization settings.
type PipelineConfig struct {
	Output     OutputConfig     `yaml:"output"`
	Sources    []SourceConfig   `yaml:"sources"`
	Logging    LoggingConfig    `yaml:"logging"`
	Codes      CodesConfig      `yaml:"codes"`
	Validation ValidationConfig `yaml:"validation"`
	Retry      RetryPolicy      `yaml:"retry"`
}

// SourceConfig represents one catalog dump.
type SourceConfig struct {
	Headers    map[string]string `yaml:"headers"`
	Name       string            `yaml:"name"`
	URL        string            `yaml:"url" validate:"omitempty,http_url"`
	File       string            `yaml:"file"`
	BackupURLs []string          `yaml:"backup_urls" validate:"dive,http_url"`
	Enabled    bool              `yaml:"enabled"`
}

// IsLocalFile returns true if this source uses a local file.
func (s *SourceConfig) IsLocalFile() bool {
	return s.File != ""
}

// GetSource returns the file path if local, or URL if remote.
func (s *SourceConfig) GetSource() string {
	if s.IsLocalFile() {
		return s.File
	}

	return s.URL
}

// GetAllURLs returns all URLs (primary + backups) for a source.
func (s *SourceConfig) GetAllURLs() []string {
	urls := []string{s.URL}
	urls = append(urls, s.BackupURLs...)

	return urls
}

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// OutputConfig defines where raw dumps and normalized tables are written.
type OutputConfig struct {
	RawPath     string `yaml:"raw_path"`
	TablesPath  string `yaml:"tables_path"`
	PrettyPrint bool   `yaml:"pretty_print"`
}

// ValidationConfig defines record rejection limits.
type ValidationConfig struct {
	MaxSkipRate float64 `yaml:"max_skip_rate"`
}

// CodesConfig tunes surrogate code derivation.
type CodesConfig struct {
	Sentinel     string `yaml:"sentinel"`
	SentinelName string `yaml:"sentinel_name"`
	Length       int    `yaml:"length"`
	MaxSuffix    int    `yaml:"max_suffix"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level"`
	File         string `yaml:"file"`
	ShowProgress bool   `yaml:"show_progress"`
}

// WarehouseConfig selects and addresses the SQL warehouse.
type WarehouseConfig struct {
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	Schema    string `yaml:"schema"`
	BatchSize int    `yaml:"batch_size"`
}

// TasksConfig configures recurring business query tasks.
type TasksConfig struct {
	QueriesFile string `yaml:"queries_file"`
	Schedule    string `yaml:"schedule"`
}

// AdvancedConfig contains advanced settings.
type AdvancedConfig struct {
	BufferSizeKb      int     `yaml:"buffer_size_kb"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	SequentialSources bool    `yaml:"sequential_sources"`
}

// Default returns a configuration with every default applied and no sources.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()

	return cfg
}

// DefaultConfigPath is read when no configuration file is given.
const DefaultConfigPath = "configs/pipeline.yaml"

// Resolve loads path, or DefaultConfigPath when path is empty. A missing
// default file yields the built-in defaults with no sources.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return LoadConfig(path)
	}

	if _, err := os.Stat(DefaultConfigPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("failed to stat default config: %w", err)
	}

	return LoadConfig(DefaultConfigPath)
}

// LoadConfig loads configuration from YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.ApplyDefaults()

	if dsn := os.Getenv(EnvWarehouseDSN); dsn != "" {
		cfg.Warehouse.DSN = dsn
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	p := &c.Pipeline

	if p.Retry.MaxAttempts == 0 {
		p.Retry = RetryPolicy{MaxAttempts: 3, InitialDelayMs: 500, MaxDelayMs: 10000, BackoffMultiplier: 2.0, TimeoutSec: 30}
	}

	if p.Output.RawPath == "" {
		p.Output.RawPath = "data/raw"
	}

	if p.Output.TablesPath == "" {
		p.Output.TablesPath = "data/tables"
	}

	if p.Validation.MaxSkipRate == 0 {
		p.Validation.MaxSkipRate = 0.05
	}

	if p.Codes.Sentinel == "" {
		p.Codes.Sentinel = "UNK"
	}

	if p.Codes.SentinelName == "" {
		p.Codes.SentinelName = "Unknown"
	}

	if p.Codes.Length == 0 {
		p.Codes.Length = 3
	}

	if p.Codes.MaxSuffix == 0 {
		p.Codes.MaxSuffix = 99
	}

	if p.Logging.Level == "" {
		p.Logging.Level = "info"
	}

	if c.Warehouse.Driver == "" {
		c.Warehouse.Driver = "sqlite"
	}

	if c.Warehouse.DSN == "" && c.Warehouse.Driver == "sqlite" {
		c.Warehouse.DSN = "data/warehouse.db"
	}

	if c.Warehouse.BatchSize == 0 {
		c.Warehouse.BatchSize = 500
	}

	if c.Tasks.QueriesFile == "" {
		c.Tasks.QueriesFile = "configs/business_queries.json"
	}

	if c.Tasks.Schedule == "" {
		c.Tasks.Schedule = "USING CRON 0 6 * * * UTC"
	}

	if c.Advanced.BufferSizeKb == 0 {
		c.Advanced.BufferSizeKb = 32 * 1024
	}

	if c.Advanced.Burst == 0 {
		c.Advanced.Burst = 1
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	p := c.Pipeline

	if len(p.Sources) == 0 {
		return ErrNoSources
	}

	urls := validator.New()
	seen := make(map[string]bool)
	enabledCount := 0

	for i, src := range p.Sources {
		if !knownSources[src.Name] {
			return fmt.Errorf("%w: source[%d] %q", ErrUnknownSourceName, i, src.Name)
		}

		if seen[src.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, src.Name)
		}

		seen[src.Name] = true

		if src.URL == "" && src.File == "" {
			return fmt.Errorf("%w: source[%d]", ErrSourceMissingURLOrFile, i)
		}

		if err := urls.Struct(src); err != nil {
			return fmt.Errorf("%w: source[%d]: %w", ErrInvalidSourceURL, i, err)
		}

		if src.Enabled {
			enabledCount++
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledSources
	}

	if err := p.Retry.validate(); err != nil {
		return err
	}

	if p.Output.RawPath == "" || p.Output.TablesPath == "" {
		return ErrMissingOutputPath
	}

	if p.Validation.MaxSkipRate <= 0 || p.Validation.MaxSkipRate > 1 {
		return ErrInvalidSkipRate
	}

	if err := p.Codes.validate(); err != nil {
		return err
	}

	if !validLevels[p.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Warehouse.Driver != "sqlite" && c.Warehouse.Driver != "postgres" {
		return ErrInvalidDriver
	}

	if c.Warehouse.DSN == "" {
		return ErrMissingDSN
	}

	if c.Advanced.RequestsPerSecond < 0 {
		return ErrInvalidRateLimit
	}

	return nil
}

func (rp RetryPolicy) validate() error {
	if rp.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if rp.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if rp.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if rp.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	return nil
}

func (cc CodesConfig) validate() error {
	if len(cc.Sentinel) == 0 || len(cc.Sentinel) > 8 {
		return ErrInvalidSentinel
	}

	for _, r := range cc.Sentinel {
		if r < 'A' || r > 'Z' {
			return ErrInvalidSentinel
		}
	}

	if cc.Length < 2 || cc.Length > 6 {
		return ErrInvalidCodeLength
	}

	if cc.MaxSuffix < 2 {
		return ErrInvalidMaxSuffix
	}

	return nil
}

// GetEnabledSources returns only enabled sources.
func (c *Config) GetEnabledSources() []SourceConfig {
	var enabled []SourceConfig

	for _, src := range c.Pipeline.Sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}

	return enabled
}

// GetSource returns the configuration of the named source.
func (c *Config) GetSource(name string) (SourceConfig, bool) {
	for _, src := range c.Pipeline.Sources {
		if src.Name == name {
			return src, true
		}
	}

	return SourceConfig{}, false
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// RawPath returns the raw dump path of a source: {raw_path}/{source}.json.
func (c *Config) RawPath(source string) string {
	return filepath.Join(c.Pipeline.Output.RawPath, source+".json")
}

// TablesPath returns the directory holding the normalized tables of a run.
func (c *Config) TablesPath() string {
	return c.Pipeline.Output.TablesPath
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Sources: %d, MaxAttempts: %d, Warehouse: %s, Tables: %s}",
		len(c.Pipeline.Sources),
		c.Pipeline.Retry.MaxAttempts,
		c.Warehouse.Driver,
		c.Pipeline.Output.TablesPath,
	)
}
