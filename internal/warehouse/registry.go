package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TaskRegistryTable stores the recurring business query tasks.
const TaskRegistryTable = "TASK_REG"

const maxTaskName = 255

// Task states.
const (
	TaskStarted   = "started"
	TaskSuspended = "suspended"
)

// ErrTaskNotFound is returned when a task name is not registered.
var ErrTaskNotFound = errors.New("task not found")

// Task is one registered recurring query.
type Task struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Name      string
	Schedule  string
	Query     string
	State     string
}

// SanitizeTaskName upper-cases name, turns runs of spaces, hyphens and
// underscores into one underscore and drops anything else that cannot appear
// in an identifier.
func SanitizeTaskName(name string) string {
	var b strings.Builder

	for _, r := range strings.ToUpper(strings.TrimSpace(name)) {
		switch {
		case r == ' ', r == '-', r == '_':
			if !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}

	out := b.String()
	if len(out) > maxTaskName {
		out = out[:maxTaskName]
	}

	return out
}

func (w *Warehouse) registryDDL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	task_nm TEXT NOT NULL,
	schedule TEXT NOT NULL,
	query_txt TEXT NOT NULL,
	state TEXT NOT NULL,
	created_at %s NOT NULL,
	updated_at %s NOT NULL,
	PRIMARY KEY (task_nm)
)`, w.qualify(TaskRegistryTable), w.dialect.timeType, w.dialect.timeType)
}

// CreateTask registers a task, replacing any task of the same name, and
// starts it. It returns the sanitized name.
func (w *Warehouse) CreateTask(ctx context.Context, name, schedule, query string) (string, error) {
	task := SanitizeTaskName(name)
	if !isIdentifier(task) {
		return "", fmt.Errorf("%w: task %q", ErrInvalidIdentifier, name)
	}

	now := w.dialect.value(time.Now().UTC().Truncate(time.Second))
	p := w.dialect.placeholder

	stmt := fmt.Sprintf(`INSERT INTO %s (task_nm, schedule, query_txt, state, created_at, updated_at)
VALUES (%s, %s, %s, %s, %s, %s)
ON CONFLICT (task_nm) DO UPDATE SET
	schedule = excluded.schedule,
	query_txt = excluded.query_txt,
	state = excluded.state,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at`,
		w.qualify(TaskRegistryTable), p(1), p(2), p(3), p(4), p(5), p(6))

	if _, err := w.db.ExecContext(ctx, stmt, task, schedule, query, TaskStarted, now, now); err != nil {
		return "", fmt.Errorf("failed to create task %s: %w", task, err)
	}

	w.log.Info(fmt.Sprintf("⏱️  Created task %s", task), "schedule", schedule)

	return task, nil
}

// ResumeTask marks a task as started.
func (w *Warehouse) ResumeTask(ctx context.Context, name string) error {
	return w.setTaskState(ctx, name, TaskStarted)
}

// SuspendTask marks a task as suspended.
func (w *Warehouse) SuspendTask(ctx context.Context, name string) error {
	return w.setTaskState(ctx, name, TaskSuspended)
}

func (w *Warehouse) setTaskState(ctx context.Context, name, state string) error {
	task := SanitizeTaskName(name)
	p := w.dialect.placeholder

	stmt := fmt.Sprintf("UPDATE %s SET state = %s, updated_at = %s WHERE task_nm = %s",
		w.qualify(TaskRegistryTable), p(1), p(2), p(3))

	res, err := w.db.ExecContext(ctx, stmt, state, w.dialect.value(time.Now().UTC().Truncate(time.Second)), task)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", task, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", task, err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, task)
	}

	w.log.Debug("task state changed", "task", task, "state", state)

	return nil
}

// DropTask removes a task. Dropping an unknown task is not an error; the
// return value reports whether anything was removed.
func (w *Warehouse) DropTask(ctx context.Context, name string) (bool, error) {
	task := SanitizeTaskName(name)

	res, err := w.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE task_nm = %s", w.qualify(TaskRegistryTable), w.dialect.placeholder(1)), task)
	if err != nil {
		return false, fmt.Errorf("failed to drop task %s: %w", task, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to drop task %s: %w", task, err)
	}

	return n > 0, nil
}

// GetTask returns one task by name.
func (w *Warehouse) GetTask(ctx context.Context, name string) (*Task, error) {
	task := SanitizeTaskName(name)

	row := w.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE task_nm = %s", taskColumns, w.qualify(TaskRegistryTable), w.dialect.placeholder(1)), task)

	t, err := w.scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, task)
	}

	return t, err
}

// ListTasks returns every registered task ordered by name.
func (w *Warehouse) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := w.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY task_nm", taskColumns, w.qualify(TaskRegistryTable)))
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task

	for rows.Next() {
		t, err := w.scanTask(rows)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, *t)
	}

	return tasks, rows.Err()
}

const taskColumns = "task_nm, schedule, query_txt, state, created_at, updated_at"

func (w *Warehouse) scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		t                Task
		created, updated any
	)

	if err := scanner.Scan(&t.Name, &t.Schedule, &t.Query, &t.State, &created, &updated); err != nil {
		return nil, err
	}

	var err error

	if t.CreatedAt, err = w.dialect.scanTime(created); err != nil {
		return nil, fmt.Errorf("task %s created_at: %w", t.Name, err)
	}

	if t.UpdatedAt, err = w.dialect.scanTime(updated); err != nil {
		return nil, fmt.Errorf("task %s updated_at: %w", t.Name, err)
	}

	return &t, nil
}
