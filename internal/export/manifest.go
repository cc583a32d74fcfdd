// Package export writes normalized tables to CSV files with a signed manifest
// and reads them back for loading.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"supplychain/internal/models"
	"supplychain/pkg/metadata"
)

// ManifestFile is the name of the manifest inside an export directory.
const ManifestFile = "manifest.json"

// Manifest errors.
var (
	ErrManifestMissing = errors.New("manifest not found")
	ErrManifestInvalid = errors.New("invalid manifest")
	ErrUnknownTable    = errors.New("unknown table")
)

// NewRunID returns a prefixed NanoID identifying one pipeline run.
func NewRunID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}

	return "run-" + id, nil
}

// TableEntry records one exported CSV file.
type TableEntry struct {
	metadata.Metadata

	Name   string        `json:"name"`
	File   string        `json:"file"`
	Source models.Source `json:"source"`
	Group  string        `json:"group"`
	Rows   int           `json:"rows"`
}

// Manifest lists every file of an export. Loaders only read what it names.
type Manifest struct {
	CreatedAt time.Time       `json:"createdAt"`
	RunID     string          `json:"runId"`
	Sources   []models.Source `json:"sources"`
	Tables    []TableEntry    `json:"tables"`
}

// Table returns the entry for a table name.
func (m *Manifest) Table(name string) (TableEntry, bool) {
	for _, t := range m.Tables {
		if t.Name == name {
			return t, true
		}
	}

	return TableEntry{}, false
}

// Rows returns the total row count over all tables.
func (m *Manifest) Rows() int {
	total := 0
	for _, t := range m.Tables {
		total += t.Rows
	}

	return total
}

// FileName returns the CSV file name for a table.
func FileName(table string) string {
	return strings.ToLower(table) + ".csv"
}

// ReadManifest loads and sanity-checks the manifest in dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrManifestMissing, dir)
		}

		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestInvalid, err)
	}

	if m.RunID == "" {
		return nil, fmt.Errorf("%w: missing run id", ErrManifestInvalid)
	}

	for _, t := range m.Tables {
		if _, ok := models.LookupSpec(t.Name); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTable, t.Name)
		}

		if filepath.Base(t.File) != t.File {
			return nil, fmt.Errorf("%w: file %q escapes the export directory", ErrManifestInvalid, t.File)
		}
	}

	return &m, nil
}

func writeManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	return writeAtomic(filepath.Join(dir, ManifestFile), func(f *os.File) error {
		_, err := f.Write(append(data, '\n'))

		return err
	})
}

// writeAtomic writes through a temporary file and renames it into place.
func writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()

		return fmt.Errorf("failed to chmod %s: %w", filepath.Base(path), err)
	}

	if err := write(tmp); err != nil {
		tmp.Close()

		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()

		return fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}

	return nil
}
