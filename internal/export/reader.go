package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"supplychain/internal/models"
	"supplychain/pkg/metadata"
)

// Read errors.
var (
	ErrHeaderMismatch = errors.New("csv header does not match table columns")
	ErrRowCount       = errors.New("row count does not match manifest")
	ErrBadValue       = errors.New("invalid cell value")
)

// Dataset is a verified export read back into tables.
type Dataset struct {
	Manifest *Manifest
	Tables   []*models.Table
}

// Source returns the tables of one source in load order.
func (d *Dataset) Source(source models.Source) []*models.Table {
	var tables []*models.Table

	for _, t := range d.Tables {
		if t.Spec.Source == source {
			tables = append(tables, t)
		}
	}

	return tables
}

// Read verifies every file against the manifest and parses it.
// Tables come back in catalog load order.
func Read(dir string) (*Dataset, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Manifest: m}

	for _, spec := range models.Catalog {
		entry, ok := m.Table(spec.Name)
		if !ok {
			continue
		}

		path := filepath.Join(dir, entry.File)

		if err := metadata.Verify(path, entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to verify %s: %w", entry.Name, err)
		}

		t, err := readTable(path, spec)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name, err)
		}

		if t.Len() != entry.Rows {
			return nil, fmt.Errorf("%w: %s has %d rows, manifest says %d", ErrRowCount, entry.Name, t.Len(), entry.Rows)
		}

		ds.Tables = append(ds.Tables, t)
	}

	return ds, nil
}

func readTable(path string, spec models.TableSpec) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(spec.Columns)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if !slices.Equal(header, spec.ColumnNames()) {
		return nil, fmt.Errorf("%w: got %v", ErrHeaderMismatch, header)
	}

	t := &models.Table{Spec: spec}

	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		row := make([]any, len(record))

		for i, cell := range record {
			v, err := ParseValue(spec.Columns[i], cell)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}

			row[i] = v
		}

		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// ParseValue converts a CSV cell back to its column type. An empty cell in a
// nullable column is nil.
func ParseValue(col models.ColumnSpec, cell string) (any, error) {
	if cell == "" && col.Nullable {
		return nil, nil
	}

	switch col.Type {
	case models.TypeFloat:
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrBadValue, col.Name, cell)
		}

		return v, nil
	case models.TypeInt:
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrBadValue, col.Name, cell)
		}

		return v, nil
	case models.TypeTimestamp:
		v, err := time.Parse(time.RFC3339, cell)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrBadValue, col.Name, cell)
		}

		return v.UTC(), nil
	}

	return cell, nil
}
