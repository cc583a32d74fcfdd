package warehouse

import (
	"context"
	"fmt"
	"slices"

	"supplychain/internal/models"
)

// TableCount is the row count of one table.
type TableCount struct {
	Table  string
	Source models.Source
	Group  models.Group
	Rows   int64
}

// Verify returns the row count of every table in load order.
func (w *Warehouse) Verify(ctx context.Context) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(models.Catalog))

	for _, spec := range models.Catalog {
		var n int64
		if err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+w.qualify(spec.Name)).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", spec.Name, err)
		}

		counts = append(counts, TableCount{Table: spec.Name, Source: spec.Source, Group: spec.Group, Rows: n})
	}

	return counts, nil
}

// Orphan counts rows whose soft reference has no parent row.
type Orphan struct {
	Table   string
	Column  string
	Parent  string
	Rows    int64
	Samples []string
}

const orphanSamples = 5

// Orphans checks every declared reference and returns those with dangling
// values. It only reports; nothing is repaired or rejected.
func (w *Warehouse) Orphans(ctx context.Context) ([]Orphan, error) {
	var orphans []Orphan

	for _, spec := range models.Catalog {
		cols := make([]string, 0, len(spec.References))
		for col := range spec.References {
			cols = append(cols, col)
		}

		slices.Sort(cols)

		for _, col := range cols {
			o, err := w.orphan(ctx, spec, col)
			if err != nil {
				return nil, err
			}

			if o.Rows > 0 {
				orphans = append(orphans, o)
			}
		}
	}

	return orphans, nil
}

func (w *Warehouse) orphan(ctx context.Context, spec models.TableSpec, col string) (Orphan, error) {
	parentName := spec.References[col]

	parent, ok := models.LookupSpec(parentName)
	if !ok || len(parent.PrimaryKey) == 0 {
		return Orphan{}, fmt.Errorf("reference %s.%s points at unknown table %s", spec.Name, col, parentName)
	}

	pk := parent.PrimaryKey[0]
	from := fmt.Sprintf("FROM %s c WHERE c.%s IS NOT NULL AND NOT EXISTS (SELECT 1 FROM %s p WHERE p.%s = c.%s)",
		w.qualify(spec.Name), col, w.qualify(parent.Name), pk, col)

	o := Orphan{Table: spec.Name, Column: col, Parent: parent.Name}

	if err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) "+from).Scan(&o.Rows); err != nil {
		return Orphan{}, fmt.Errorf("failed to check %s.%s: %w", spec.Name, col, err)
	}

	if o.Rows == 0 {
		return o, nil
	}

	rows, err := w.db.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT c.%s %s ORDER BY c.%s LIMIT %d", col, from, col, orphanSamples))
	if err != nil {
		return Orphan{}, fmt.Errorf("failed to sample %s.%s: %w", spec.Name, col, err)
	}
	defer rows.Close()

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return Orphan{}, err
		}

		o.Samples = append(o.Samples, v)
	}

	return o, rows.Err()
}
