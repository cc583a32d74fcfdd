package warehouse

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"supplychain/internal/models"
)

// LoadResult reports what one source load wrote.
type LoadResult struct {
	Rows     map[string]int
	Source   models.Source
	Deleted  int64
	Inserted int
	Duration time.Duration
}

// LoadSource replaces all rows of one source inside a single transaction:
// every table the source owns is emptied, then the given tables are inserted
// dimensions first, facts, bridges, details last. A failure rolls the source
// back and leaves other sources untouched.
func (w *Warehouse) LoadSource(ctx context.Context, source models.Source, tables []*models.Table) (*LoadResult, error) {
	start := time.Now()

	for _, t := range tables {
		if t.Spec.Source != source {
			return nil, fmt.Errorf("%w: %s is owned by %s, not %s", ErrSourceMismatch, t.Spec.Name, t.Spec.Source, source)
		}
	}

	ordered := slices.Clone(tables)
	slices.SortStableFunc(ordered, func(a, b *models.Table) int {
		return cmp.Compare(a.Spec.Group, b.Spec.Group)
	})

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	result := &LoadResult{Source: source, Rows: make(map[string]int, len(ordered))}

	if err := w.loadTx(ctx, tx, source, ordered, result); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			w.log.Error("rollback failed", "source", source, "error", rbErr)
		}

		return nil, fmt.Errorf("failed to load %s: %w", source, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit %s: %w", source, err)
	}

	result.Duration = time.Since(start)
	w.log.Info(fmt.Sprintf("🗄️  Loaded %s: %d rows in %d tables", source, result.Inserted, len(result.Rows)),
		"deleted", result.Deleted, "duration", result.Duration.Round(time.Millisecond))

	return result, nil
}

func (w *Warehouse) loadTx(ctx context.Context, tx *sql.Tx, source models.Source, tables []*models.Table, result *LoadResult) error {
	specs := models.SpecsFor(source)

	// Reverse load order: details and bridges before their parents.
	for i := len(specs) - 1; i >= 0; i-- {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+w.qualify(specs[i].Name))
		if err != nil {
			return fmt.Errorf("failed to clear %s: %w", specs[i].Name, err)
		}

		if n, err := res.RowsAffected(); err == nil {
			result.Deleted += n
		}
	}

	for _, t := range tables {
		n, err := w.insertTable(ctx, tx, t)
		if err != nil {
			return err
		}

		result.Rows[t.Spec.Name] += n
		result.Inserted += n
	}

	return nil
}

func (w *Warehouse) insertTable(ctx context.Context, tx *sql.Tx, t *models.Table) (int, error) {
	cols := len(t.Spec.Columns)
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", w.qualify(t.Spec.Name), strings.Join(t.Spec.ColumnNames(), ", "))
	inserted := 0

	for start := 0; start < len(t.Rows); start += w.batchSize {
		end := min(start+w.batchSize, len(t.Rows))
		batch := t.Rows[start:end]

		var b strings.Builder

		b.WriteString(prefix)

		args := make([]any, 0, len(batch)*cols)

		for i, row := range batch {
			if len(row) != cols {
				return inserted, fmt.Errorf("%s row %d has %d values, want %d", t.Spec.Name, start+i, len(row), cols)
			}

			if i > 0 {
				b.WriteString(", ")
			}

			b.WriteByte('(')

			for j, v := range row {
				if j > 0 {
					b.WriteString(", ")
				}

				args = append(args, w.dialect.value(v))
				b.WriteString(w.dialect.placeholder(len(args)))
			}

			b.WriteByte(')')
		}

		if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
			return inserted, fmt.Errorf("failed to insert into %s: %w", t.Spec.Name, err)
		}

		inserted += len(batch)
	}

	return inserted, nil
}
