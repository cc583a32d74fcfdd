// Package warehouse loads normalized tables into a SQL database and maintains
// the analytical views, consistency reports and task registry on top of them.
// No foreign keys are declared; references between tables are soft.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"

	"supplychain/internal/config"
	"supplychain/internal/logger"
	"supplychain/internal/models"
)

// Warehouse errors.
var (
	ErrUnsupportedDriver = errors.New("unsupported warehouse driver")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrSourceMismatch    = errors.New("table does not belong to source")
)

// DefaultBatchSize is the number of rows per INSERT statement.
const DefaultBatchSize = 500

// Warehouse is a SQL sink for normalized tables.
type Warehouse struct {
	db        *sql.DB
	log       *logger.Logger
	dialect   dialect
	schema    string
	batchSize int
}

// Open connects to the warehouse described by cfg and checks the connection.
func Open(ctx context.Context, cfg config.WarehouseConfig, log *logger.Logger) (*Warehouse, error) {
	d, err := lookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	if cfg.Schema != "" && !isIdentifier(cfg.Schema) {
		return nil, fmt.Errorf("%w: schema %q", ErrInvalidIdentifier, cfg.Schema)
	}

	if d.name == DriverSQLite && cfg.DSN != ":memory:" && !strings.HasPrefix(cfg.DSN, "file:") {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0755); err != nil {
			return nil, fmt.Errorf("failed to create warehouse directory: %w", err)
		}
	}

	db, err := sql.Open(d.sqlDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}

	if d.name == DriverSQLite {
		// Single writer; the loader holds one transaction per source.
		db.SetMaxOpenConns(1)

		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
			db.Close()

			return nil, fmt.Errorf("exec pragma: %w", err)
		}
	} else {
		db.SetMaxOpenConns(4)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	if log == nil {
		log = logger.Discard()
	}

	schema := cfg.Schema
	if d.name == DriverSQLite {
		schema = ""
	}

	return &Warehouse{
		db:        db,
		log:       log.With("warehouse", d.name),
		dialect:   d,
		schema:    schema,
		batchSize: batch,
	}, nil
}

// Close closes the underlying connection pool.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

// Driver returns the configured driver name.
func (w *Warehouse) Driver() string {
	return w.dialect.name
}

// Schema returns the Postgres schema tables live in, or "" for SQLite.
func (w *Warehouse) Schema() string {
	return w.schema
}

// EnsureSchema creates every table, and the schema itself on Postgres, if missing.
func (w *Warehouse) EnsureSchema(ctx context.Context) error {
	if w.schema != "" {
		if _, err := w.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+w.schema); err != nil {
			return fmt.Errorf("failed to create schema %s: %w", w.schema, err)
		}
	}

	for _, spec := range models.Catalog {
		if _, err := w.db.ExecContext(ctx, w.tableDDL(spec)); err != nil {
			return fmt.Errorf("failed to create %s: %w", spec.Name, err)
		}
	}

	if _, err := w.db.ExecContext(ctx, w.registryDDL()); err != nil {
		return fmt.Errorf("failed to create %s: %w", TaskRegistryTable, err)
	}

	w.log.Debug("schema ensured", "tables", len(models.Catalog)+1)

	return nil
}

func (w *Warehouse) tableDDL(spec models.TableSpec) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", w.qualify(spec.Name))

	for _, col := range spec.Columns {
		fmt.Fprintf(&b, "\t%s %s", col.Name, w.dialect.columnType(col.Type))

		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}

		b.WriteString(",\n")
	}

	fmt.Fprintf(&b, "\tPRIMARY KEY (%s)\n)", strings.Join(spec.PrimaryKey, ", "))

	return b.String()
}

// qualify prefixes a table or view name with the schema, if any.
func (w *Warehouse) qualify(name string) string {
	if w.schema == "" {
		return name
	}

	return w.schema + "." + name
}

// isIdentifier accepts plain SQL identifiers only.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}

	return true
}
