package warehouse

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// QueryResult summarizes the output of an ad-hoc query.
type QueryResult struct {
	Columns []string
	Sample  [][]string
	Rows    int
}

// RunQuery executes a read query and keeps the first sample rows as text.
func (w *Warehouse) RunQuery(ctx context.Context, query string, sample int) (*QueryResult, error) {
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Columns: cols}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))

	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		result.Rows++

		if result.Rows > sample {
			continue
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make([]string, len(values))
		for i, v := range values {
			row[i] = cellText(v)
		}

		result.Sample = append(result.Sample, row)
	}

	return result, rows.Err()
}

func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	}

	return fmt.Sprint(v)
}
