package normalizer

import (
	"sort"
	"time"

	"supplychain/internal/models"
)

// Sample sizes kept in a report.
const (
	maxRejectionSamples = 10
	maxIssueSamples     = 20
)

// Issue is a recovered data-quality problem in one field of one record.
type Issue struct {
	Key    string `json:"key"`
	Field  string `json:"field"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

// Report summarizes the normalization of one source.
type Report struct {
	Err          error           `json:"-"`
	Issues       map[string]int  `json:"issues"`
	Malformed    map[Space]int   `json:"malformed"`
	Dimensions   map[Space]int   `json:"dimensions"`
	Tables       map[string]int  `json:"tables"`
	Source       models.Source   `json:"source"`
	Error        string          `json:"error,omitempty"`
	Rejections   []SkippedRecord `json:"rejections,omitempty"`
	IssueSamples []Issue         `json:"issueSamples,omitempty"`
	Fetched      int             `json:"fetched"`
	Seen         int             `json:"seen"`
	Accepted     int             `json:"accepted"`
	Rejected     int             `json:"rejected"`
	Duration     time.Duration   `json:"duration"`
}

// NewReport creates an empty report for source.
func NewReport(source models.Source) *Report {
	return &Report{
		Source:     source,
		Issues:     make(map[string]int),
		Malformed:  make(map[Space]int),
		Dimensions: make(map[Space]int),
		Tables:     make(map[string]int),
	}
}

// Reject counts a skipped record and keeps the first few as samples.
func (r *Report) Reject(s SkippedRecord) {
	r.Rejected++

	if len(r.Rejections) < maxRejectionSamples {
		r.Rejections = append(r.Rejections, s)
	}
}

// AddIssue counts a data-quality issue by field.
func (r *Report) AddIssue(issue Issue) {
	r.Issues[issue.Field]++

	if len(r.IssueSamples) < maxIssueSamples {
		r.IssueSamples = append(r.IssueSamples, issue)
	}
}

// Fail marks the source as failed.
func (r *Report) Fail(err error) {
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
}

// Failed reports whether the source failed.
func (r *Report) Failed() bool {
	return r.Err != nil
}

// SkipRate returns rejected records as a fraction of records seen.
func (r *Report) SkipRate() float64 {
	if r.Seen == 0 {
		return 0
	}

	return float64(r.Rejected) / float64(r.Seen)
}

// IssueCount returns the total number of data-quality issues.
func (r *Report) IssueCount() int {
	total := 0
	for _, n := range r.Issues {
		total += n
	}

	return total
}

// IssueFields returns the fields with issues, most frequent first.
func (r *Report) IssueFields() []string {
	fields := make([]string, 0, len(r.Issues))
	for f := range r.Issues {
		fields = append(fields, f)
	}

	sort.Slice(fields, func(i, j int) bool {
		if r.Issues[fields[i]] != r.Issues[fields[j]] {
			return r.Issues[fields[i]] > r.Issues[fields[j]]
		}

		return fields[i] < fields[j]
	})

	return fields
}
