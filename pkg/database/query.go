package database

import (
	"context"
	"fmt"
	"strings"
)

// maxFormattedRows caps how many rows Format renders. Large results blow up
// the synthesis prompt without improving the answer.
const maxFormattedRows = 50

// QueryResult holds the result of a SQL query.
type QueryResult struct {
	SQL     string
	Columns []string
	Rows    []map[string]any
	Count   int
}

// Query executes a SQL query and returns the result. The SQL comes from the
// model; no validation happens here, execution errors propagate as-is.
func (d *Database) Query(ctx context.Context, sql string) (QueryResult, error) {
	sql = strings.TrimSuffix(strings.TrimSpace(sql), ";")

	rows, err := d.db.WithContext(ctx).Raw(sql).Rows()
	if err != nil {
		return QueryResult{}, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to read columns: %w", err)
	}

	result := QueryResult{SQL: sql, Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return QueryResult{}, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("failed to read rows: %w", err)
	}

	result.Count = len(result.Rows)
	return result, nil
}

// Format renders the result as readable text for the synthesis prompt.
func (r QueryResult) Format() string {
	if r.Count == 0 {
		return "Query returned no results."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Columns: %s\n", strings.Join(r.Columns, ", ")))
	sb.WriteString(fmt.Sprintf("Rows (%d total):\n", r.Count))

	display := min(r.Count, maxFormattedRows)
	for i := 0; i < display && i < len(r.Rows); i++ {
		values := make([]string, len(r.Columns))
		for j, col := range r.Columns {
			values[j] = formatValue(r.Rows[i][col])
		}
		sb.WriteString(strings.Join(values, " | ") + "\n")
	}

	if r.Count > maxFormattedRows {
		sb.WriteString(fmt.Sprintf("... and %d more rows\n", r.Count-maxFormattedRows))
	}

	return sb.String()
}

// formatValue formats a single value for display to the model. Floats are
// rounded so long decimals do not read like encoded values.
func formatValue(v any) string {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%.2f", val)
	case nil:
		return ""
	default:
		s := fmt.Sprintf("%v", v)
		if len(s) > 100 {
			s = s[:97] + "..."
		}
		return s
	}
}
