package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"supplychain/internal/logger"
	"supplychain/internal/models"
	"supplychain/pkg/metadata"
)

// Writer exports tables as CSV files into one directory.
type Writer struct {
	log *logger.Logger
	now func() time.Time
	dir string
}

// NewWriter creates a writer for dir.
func NewWriter(dir string, log *logger.Logger) *Writer {
	if log == nil {
		log = logger.Discard()
	}

	return &Writer{dir: dir, log: log, now: time.Now}
}

// Write exports the given tables and then the manifest. Empty tables are not
// written but their source is still listed, so loaders clear it.
// Files of a previous run that are not rewritten stay on disk but drop out of the manifest.
func (w *Writer) Write(runID string, sources []models.Source, tables []*models.Table) (*Manifest, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	m := &Manifest{
		RunID:     runID,
		CreatedAt: w.now().UTC().Truncate(time.Second),
		Sources:   slices.Clone(sources),
	}

	for _, t := range tables {
		if t.Len() == 0 {
			continue
		}

		if !slices.Contains(m.Sources, t.Spec.Source) {
			m.Sources = append(m.Sources, t.Spec.Source)
		}

		entry, err := w.writeTable(runID, t)
		if err != nil {
			return nil, err
		}

		m.Tables = append(m.Tables, entry)
		w.log.Debug("table exported", "table", entry.Name, "rows", entry.Rows, "hash", entry.Hash)
	}

	if err := writeManifest(w.dir, m); err != nil {
		return nil, err
	}

	w.log.Info(fmt.Sprintf("📦 Exported %d tables (%d rows) to %s", len(m.Tables), m.Rows(), w.dir))

	return m, nil
}

func (w *Writer) writeTable(runID string, t *models.Table) (TableEntry, error) {
	name := FileName(t.Spec.Name)
	path := filepath.Join(w.dir, name)

	err := writeAtomic(path, func(f *os.File) error {
		cw := csv.NewWriter(f)

		if err := cw.Write(t.Spec.ColumnNames()); err != nil {
			return err
		}

		record := make([]string, len(t.Spec.Columns))

		for i, row := range t.Rows {
			if len(row) != len(t.Spec.Columns) {
				return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(t.Spec.Columns))
			}

			for j, v := range row {
				cell, err := FormatValue(v)
				if err != nil {
					return fmt.Errorf("row %d column %s: %w", i, t.Spec.Columns[j].Name, err)
				}

				record[j] = cell
			}

			if err := cw.Write(record); err != nil {
				return err
			}
		}

		cw.Flush()

		return cw.Error()
	})
	if err != nil {
		return TableEntry{}, fmt.Errorf("failed to export %s: %w", t.Spec.Name, err)
	}

	meta, err := metadata.Sign(path, runID, true)
	if err != nil {
		return TableEntry{}, fmt.Errorf("failed to sign %s: %w", name, err)
	}

	return TableEntry{
		Metadata: *meta,
		Name:     t.Spec.Name,
		File:     name,
		Source:   t.Spec.Source,
		Group:    t.Spec.Group.String(),
		Rows:     t.Len(),
	}, nil
}

// FormatValue renders one table value as a CSV cell. Nil becomes the empty string.
func FormatValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case int:
		return strconv.Itoa(val), nil
	case time.Time:
		return val.UTC().Format(time.RFC3339), nil
	}

	return "", fmt.Errorf("unsupported value type %T", v)
}
