// Package tasks turns the business query catalog into recurring warehouse tasks.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"supplychain/internal/logger"
	"supplychain/internal/warehouse"
)

// StatusSuccess marks a query that has been checked against real data.
const StatusSuccess = "success"

// SchemaToken is replaced by the warehouse schema prefix ("demo." or nothing).
const SchemaToken = "${schema}."

// DefaultCategory names tasks whose query has no category.
const DefaultCategory = "Unknown"

// Catalog errors.
var (
	ErrNoQueries     = errors.New("no queries in catalog")
	ErrNotReadOnly   = errors.New("only single SELECT or WITH statements can be scheduled")
	ErrInvalidQuery  = errors.New("invalid query entry")
	ErrDuplicateTask = errors.New("duplicate task name")
)

// Query is one entry of business_queries.json.
type Query struct {
	Category string `json:"category"`
	Question string `json:"question"`
	Query    string `json:"query" validate:"required"`
	Status   string `json:"status"`
	ID       int    `json:"id" validate:"gt=0"`
}

// Catalog is the whole business query file.
type Catalog struct {
	Queries []Query `json:"queries"`
}

// LoadCatalog reads and validates a business query file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query catalog: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse query catalog: %w", err)
	}

	if len(c.Queries) == 0 {
		return nil, ErrNoQueries
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	for _, q := range c.Queries {
		if err := v.Struct(q); err != nil {
			return nil, fmt.Errorf("%w: id %d: %w", ErrInvalidQuery, q.ID, err)
		}
	}

	return &c, nil
}

// Successful returns the queries whose status is success, in file order.
func (c *Catalog) Successful() []Query {
	var out []Query

	for _, q := range c.Queries {
		if q.Status == StatusSuccess {
			out = append(out, q)
		}
	}

	return out
}

// TaskName builds TASK_Q{id}_{CATEGORY}.
func TaskName(q Query) string {
	category := strings.TrimSpace(q.Category)
	if category == "" {
		category = DefaultCategory
	}

	return warehouse.SanitizeTaskName(fmt.Sprintf("TASK_Q%d_%s", q.ID, category))
}

var (
	readOnlyPrefix = regexp.MustCompile(`(?is)^\s*(SELECT|WITH)\b`)
	writeKeyword   = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE|DROP|ALTER|CREATE|TRUNCATE|GRANT|REVOKE)\b`)
	stringLiteral  = regexp.MustCompile(`'(?:[^']|'')*'`)
)

// IsReadOnly reports whether query is a single SELECT/WITH statement without
// data-changing keywords. A trailing semicolon is allowed. Quoted string
// literals are ignored, so 'UPDATE pending' is plain data.
func IsReadOnly(query string) bool {
	q := stringLiteral.ReplaceAllString(query, "''")
	q = strings.TrimSuffix(strings.TrimSpace(q), ";")

	return readOnlyPrefix.MatchString(q) && !strings.Contains(q, ";") && !writeKeyword.MatchString(q)
}

// Expand replaces the schema token with the warehouse schema prefix.
func Expand(query, schema string) string {
	prefix := ""
	if schema != "" {
		prefix = schema + "."
	}

	return strings.ReplaceAll(query, SchemaToken, prefix)
}

// Registry is the part of the warehouse the task manager needs.
type Registry interface {
	CreateTask(ctx context.Context, name, schedule, query string) (string, error)
	RunQuery(ctx context.Context, query string, sample int) (*warehouse.QueryResult, error)
	Schema() string
}

// Manager creates and tests tasks for catalog queries.
type Manager struct {
	registry Registry
	log      *logger.Logger
	schedule string
}

// NewManager creates a manager that schedules tasks with the given schedule.
func NewManager(registry Registry, schedule string, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Discard()
	}

	return &Manager{registry: registry, schedule: schedule, log: log}
}

// Created is one registered task.
type Created struct {
	Name     string
	Category string
	Question string
	ID       int
}

// Failed is one query that could not be registered.
type Failed struct {
	Err error
	ID  int
}

// CreateResult summarizes CreateAll.
type CreateResult struct {
	Created []Created
	Failed  []Failed
}

// CreateAll registers one task per query. Failures are collected and do not
// stop the remaining queries.
func (m *Manager) CreateAll(ctx context.Context, queries []Query) *CreateResult {
	result := &CreateResult{}
	seen := make(map[string]int, len(queries))

	for _, q := range queries {
		name := TaskName(q)

		if prev, dup := seen[name]; dup {
			result.Failed = append(result.Failed, Failed{ID: q.ID, Err: fmt.Errorf("%w: %s also used by query %d", ErrDuplicateTask, name, prev)})

			continue
		}

		if !IsReadOnly(q.Query) {
			result.Failed = append(result.Failed, Failed{ID: q.ID, Err: ErrNotReadOnly})
			m.log.Warn("query skipped", "id", q.ID, "error", ErrNotReadOnly)

			continue
		}

		created, err := m.registry.CreateTask(ctx, name, m.schedule, Expand(q.Query, m.registry.Schema()))
		if err != nil {
			result.Failed = append(result.Failed, Failed{ID: q.ID, Err: err})
			m.log.Error(fmt.Sprintf("❌ Failed to create task for query %d: %v", q.ID, err))

			continue
		}

		seen[name] = q.ID
		result.Created = append(result.Created, Created{ID: q.ID, Name: created, Category: q.Category, Question: q.Question})
	}

	m.log.Info(fmt.Sprintf("✅ Created %d tasks, %d failed", len(result.Created), len(result.Failed)))

	return result
}

// Test statuses.
const (
	TestSuccess = "success"
	TestNoData  = "no_data"
	TestError   = "error"
)

// sentinelMarkers flag results dominated by defaulted references.
var sentinelMarkers = []string{"Unknown", "Not Specified"}

const testSample = 5

// TestResult is the outcome of running one query.
type TestResult struct {
	Err         error
	Question    string
	Status      string
	ID          int
	Rows        int
	Problematic bool
}

// Test runs every query once and classifies the outcome.
func (m *Manager) Test(ctx context.Context, queries []Query) []TestResult {
	results := make([]TestResult, 0, len(queries))

	for _, q := range queries {
		r := TestResult{ID: q.ID, Question: q.Question}

		if !IsReadOnly(q.Query) {
			r.Status, r.Err = TestError, ErrNotReadOnly
			m.log.Warn("query not run", "id", q.ID, "error", ErrNotReadOnly)
			results = append(results, r)

			continue
		}

		res, err := m.registry.RunQuery(ctx, Expand(q.Query, m.registry.Schema()), testSample)

		switch {
		case err != nil:
			r.Status, r.Err = TestError, err
		case res.Rows == 0:
			r.Status = TestNoData
		default:
			r.Status, r.Rows = TestSuccess, res.Rows
			r.Problematic = containsSentinel(res.Sample)
		}

		m.log.Debug("query tested", "id", q.ID, "status", r.Status, "rows", r.Rows)
		results = append(results, r)
	}

	return results
}

func containsSentinel(rows [][]string) bool {
	for _, row := range rows {
		for _, cell := range row {
			for _, marker := range sentinelMarkers {
				if strings.Contains(cell, marker) {
					return true
				}
			}
		}
	}

	return false
}
