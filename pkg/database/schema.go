package database

import (
	"context"
	"fmt"
	"strings"
)

// columnQuery returns the per-dialect query listing (name, type) for one table.
func (d *Database) columnQuery() string {
	switch d.dialect {
	case DialectSQLite:
		return "SELECT name, type FROM pragma_table_info(?)"
	case DialectMySQL:
		return "SELECT column_name, data_type FROM information_schema.columns WHERE table_name = ? AND table_schema = DATABASE() ORDER BY ordinal_position"
	case DialectMSSQL:
		return "SELECT column_name, data_type FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position"
	default:
		return "SELECT column_name, data_type FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position"
	}
}

// Describe returns a textual schema description of the allow-listed tables,
// suitable for substitution into a text-to-SQL prompt. Tables outside the
// allow-list are never described, regardless of what exists in the database.
func (d *Database) Describe(ctx context.Context) (string, error) {
	var sb strings.Builder

	for _, table := range d.tables {
		rows, err := d.db.WithContext(ctx).Raw(d.columnQuery(), table).Rows()
		if err != nil {
			return "", fmt.Errorf("failed to describe table %s: %w", table, err)
		}

		var cols []string
		for rows.Next() {
			var name, typ string
			if err := rows.Scan(&name, &typ); err != nil {
				rows.Close()
				return "", fmt.Errorf("failed to scan column of %s: %w", table, err)
			}
			cols = append(cols, fmt.Sprintf("%s (%s)", name, typ))
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return "", fmt.Errorf("failed to read columns of %s: %w", table, err)
		}
		rows.Close()

		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("Table '%s' has columns: %s.", table, strings.Join(cols, ", ")))
	}

	return sb.String(), nil
}
