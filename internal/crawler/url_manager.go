package crawler

import (
	"errors"
	"fmt"
	"time"

	"supplychain/internal/config"
	"supplychain/internal/logger"
)

// URL manager errors.
var (
	ErrNoSourcesAvailable  = errors.New("no sources available")
	ErrAllSourcesExhausted = errors.New("all sources exhausted")
)

// URLManager walks a source's primary URL and then its backups, recording
// the outcome of every attempt.
type URLManager struct {
	attemptLog map[string][]AttemptResult
	source     config.SourceConfig
	urls       []string
	next       int
}

// AttemptResult records the result of a URL fetch attempt.
type AttemptResult struct {
	Timestamp  time.Time
	URL        string
	Error      string
	Attempt    int
	Duration   time.Duration
	StatusCode int
	Success    bool
}

// NewURLManager creates a URL manager for one source.
func NewURLManager(source config.SourceConfig) *URLManager {
	var urls []string

	for _, u := range source.GetAllURLs() {
		if u != "" {
			urls = append(urls, u)
		}
	}

	return &URLManager{
		source:     source,
		urls:       urls,
		attemptLog: make(map[string][]AttemptResult),
	}
}

// NextURL returns the next URL to try.
func (um *URLManager) NextURL() (string, error) {
	if len(um.urls) == 0 {
		return "", ErrNoSourcesAvailable
	}

	if um.next >= len(um.urls) {
		return "", fmt.Errorf("%w: %s tried %d URLs", ErrAllSourcesExhausted, um.source.Name, len(um.urls))
	}

	u := um.urls[um.next]
	um.next++

	return u, nil
}

// HasMoreSources returns true if there are more URLs to try.
func (um *URLManager) HasMoreSources() bool {
	return um.next < len(um.urls)
}

// GetSourceCount returns the number of URLs of the source.
func (um *URLManager) GetSourceCount() int {
	return len(um.urls)
}

// RecordAttempt records the result of a fetch attempt.
func (um *URLManager) RecordAttempt(url string, success bool, err error, statusCode int, duration time.Duration) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	um.attemptLog[url] = append(um.attemptLog[url], AttemptResult{
		URL:        url,
		Attempt:    len(um.attemptLog[url]) + 1,
		Success:    success,
		Error:      errMsg,
		Timestamp:  time.Now(),
		Duration:   duration,
		StatusCode: statusCode,
	})
}

// GetAttemptStats returns statistics about fetch attempts.
func (um *URLManager) GetAttemptStats() AttemptStats {
	stats := AttemptStats{
		TotalURLs:   len(um.urls),
		URLAttempts: make(map[string]int),
	}

	for url, results := range um.attemptLog {
		stats.URLAttempts[url] = len(results)
		stats.TotalAttempts += len(results)

		urlSuccess := false

		for _, result := range results {
			if result.Success {
				stats.SuccessfulAttempts++
				urlSuccess = true
			} else {
				stats.FailedAttempts++
			}
		}

		if urlSuccess {
			stats.SuccessfulURLs++
		} else {
			stats.FailedURLs++
		}
	}

	return stats
}

// AttemptStats contains statistics about fetch attempts.
type AttemptStats struct {
	URLAttempts        map[string]int
	TotalURLs          int
	SuccessfulURLs     int
	FailedURLs         int
	TotalAttempts      int
	SuccessfulAttempts int
	FailedAttempts     int
}

// String returns a string representation of attempt stats.
func (s AttemptStats) String() string {
	return fmt.Sprintf(
		"URLs: %d total, %d success, %d failed | Attempts: %d total, %d success, %d failed",
		s.TotalURLs,
		s.SuccessfulURLs,
		s.FailedURLs,
		s.TotalAttempts,
		s.SuccessfulAttempts,
		s.FailedAttempts,
	)
}

// LogAttemptSummary logs a summary of fetch attempts using the provided logger.
func (um *URLManager) LogAttemptSummary(l *logger.Logger) {
	l.Info(fmt.Sprintf("📊 Fetch Attempt Summary (%s):", um.source.Name))

	for i, url := range um.urls {
		results := um.attemptLog[url]

		l.Info(fmt.Sprintf("%d. %s", i+1, url))

		if len(results) == 0 {
			l.Info("   Status: Not attempted")

			continue
		}

		for j, result := range results {
			statusStr := "✅ Success"
			if !result.Success {
				statusStr = fmt.Sprintf("❌ Failed: %s", result.Error)
			}

			l.Info(fmt.Sprintf("     Attempt %d: %s (%.2fs)", j+1, statusStr, result.Duration.Seconds()))
		}
	}

	l.Info(fmt.Sprintf("Overall: %s", um.GetAttemptStats()))
}
