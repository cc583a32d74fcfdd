package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"supplychain/internal/config"
	"supplychain/internal/logger"
	"supplychain/internal/models"
)

// ErrUnknownSource is returned for a source name outside products, books and films.
var ErrUnknownSource = errors.New("unknown source")

// FetchResult is the outcome of loading one source.
type FetchResult struct {
	Records  []models.RawRecord
	Source   models.Source
	Origin   string
	Stats    AttemptStats
	Bytes    int64
	Duration time.Duration
}

// Client loads raw records for configured sources.
type Client struct {
	scraper *Scraper
	parser  *Parser
	log     *logger.Logger
}

// NewClient creates a crawler client with default dependencies.
func NewClient(log *logger.Logger) *Client {
	return NewClientWithDeps(NewScraper(), NewParser(), log)
}

// NewClientFromConfig creates a client honoring the retry, buffer and rate settings.
func NewClientFromConfig(cfg *config.Config, log *logger.Logger) *Client {
	scraper := NewScraperWithConfig(&cfg.Pipeline.Retry, cfg.Advanced.BufferSizeKb,
		cfg.Advanced.RequestsPerSecond, cfg.Advanced.Burst)

	return NewClientWithDeps(scraper, NewParser(), log)
}

// NewClientWithDeps creates a new crawler client with injected dependencies.
func NewClientWithDeps(scraper *Scraper, parser *Parser, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}

	return &Client{scraper: scraper, parser: parser, log: log}
}

// Load reads a source from its local file, or fetches it from the primary
// URL and then each backup until one yields parseable records.
func (c *Client) Load(ctx context.Context, src config.SourceConfig) (*FetchResult, error) {
	source := models.Source(src.Name)
	if !source.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, src.Name)
	}

	if src.IsLocalFile() {
		return c.loadFile(source, src.File)
	}

	manager := NewURLManager(src)
	result := &FetchResult{Source: source}

	c.log.Debug(fmt.Sprintf("%s: %d candidate URLs", source, manager.GetSourceCount()))

	var lastErr error

	for manager.HasMoreSources() {
		url, err := manager.NextURL()
		if err != nil {
			return nil, err
		}

		body, status, duration, err := c.scraper.ScrapeWithMetrics(ctx, url, src.Headers)
		result.Duration += duration

		if err == nil {
			var records []models.RawRecord

			records, err = c.parser.ParseRecords(body)
			if err == nil {
				manager.RecordAttempt(url, true, nil, status, duration)

				result.Records = records
				result.Origin = url
				result.Bytes = int64(len(body))
				result.Stats = manager.GetAttemptStats()

				c.log.Info(fmt.Sprintf("✅ %s: %d records from %s in %v", source, len(records), url, duration))

				return result, nil
			}
		}

		manager.RecordAttempt(url, false, err, status, duration)
		lastErr = err

		c.log.Warn(fmt.Sprintf("⚠️  %s: %s failed: %v", source, url, err))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	manager.LogAttemptSummary(c.log)

	return nil, fmt.Errorf("%w: %s: %w", ErrAllSourcesExhausted, source, lastErr)
}

func (c *Client) loadFile(source models.Source, path string) (*FetchResult, error) {
	content, size, duration, err := c.scraper.ReadLocalFileWithMetrics(path)
	if err != nil {
		return nil, err
	}

	records, err := c.parser.ParseRecords(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.log.Info(fmt.Sprintf("📄 %s: %d records from %s (%d bytes)", source, len(records), path, size))

	return &FetchResult{
		Records:  records,
		Source:   source,
		Origin:   path,
		Bytes:    size,
		Duration: duration,
	}, nil
}

// SaveRecords writes records as a JSON array, creating parent directories.
func (c *Client) SaveRecords(records []models.RawRecord, outputPath string, pretty bool) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if records == nil {
		records = []models.RawRecord{}
	}

	var (
		jsonData []byte
		err      error
	)

	if pretty {
		jsonData, err = json.MarshalIndent(records, "", "  ")
	} else {
		jsonData, err = json.Marshal(records)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
