package warehouse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"supplychain/internal/models"
)

// Supported drivers, as named in configuration.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect holds the SQL differences between the supported databases.
type dialect struct {
	name      string
	sqlDriver string
	types     map[models.ColumnType]string
	timeType  string
	// aggregate renders a distinct, comma separated string aggregation of expr.
	aggregate func(expr string) string
	numbered  bool
}

var dialects = map[string]dialect{
	DriverSQLite: {
		name:      DriverSQLite,
		sqlDriver: "sqlite",
		types: map[models.ColumnType]string{
			models.TypeFloat:     "REAL",
			models.TypeInt:       "INTEGER",
			models.TypeTimestamp: "TEXT",
		},
		timeType: "TEXT",
		// SQLite only accepts the default separator together with DISTINCT.
		aggregate: func(expr string) string { return "GROUP_CONCAT(DISTINCT " + expr + ")" },
	},
	DriverPostgres: {
		name:      DriverPostgres,
		sqlDriver: "pgx",
		types: map[models.ColumnType]string{
			models.TypeFloat:     "DOUBLE PRECISION",
			models.TypeInt:       "BIGINT",
			models.TypeTimestamp: "TIMESTAMPTZ",
		},
		timeType: "TIMESTAMPTZ",
		aggregate: func(expr string) string {
			return "STRING_AGG(DISTINCT " + expr + ", ', ' ORDER BY " + expr + ")"
		},
		numbered: true,
	},
}

func lookupDialect(driver string) (dialect, error) {
	d, ok := dialects[strings.ToLower(driver)]
	if !ok {
		return dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	return d, nil
}

// columnType maps a logical column type to DDL. Anything textual is TEXT.
func (d dialect) columnType(t models.ColumnType) string {
	if sqlType, ok := d.types[t]; ok {
		return sqlType
	}

	return "TEXT"
}

// placeholder returns the n-th (1-based) bind parameter.
func (d dialect) placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}

	return "?"
}

// value converts a table value into a bind argument.
// SQLite keeps timestamps as RFC3339 text so they sort and compare as strings.
func (d dialect) value(v any) any {
	t, ok := v.(time.Time)
	if !ok {
		return v
	}

	if d.numbered {
		return t.UTC()
	}

	return t.UTC().Format(time.RFC3339)
}

// scanTime reads a timestamp column back regardless of how the driver returns it.
func (d dialect) scanTime(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), nil
	case string:
		return time.Parse(time.RFC3339, val)
	case []byte:
		return time.Parse(time.RFC3339, string(val))
	case nil:
		return time.Time{}, nil
	}

	return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
}
