package database

import (
	"context"
	"fmt"
	"slices"
)

// CopyTable copies every row of table from src to dst, skipping rows whose
// key already exists in dst. With dryRun set it only counts the rows.
func CopyTable(ctx context.Context, src, dst *Database, table string, dryRun bool) (int64, error) {
	if !slices.Contains(Tables, table) {
		return 0, fmt.Errorf("unknown table %q", table)
	}

	rows, err := src.db.QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("columns of %s: %w", table, err)
	}
	insert := dst.qb.Insert(table, columns) + " ON CONFLICT DO NOTHING"

	var count int64
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return count, fmt.Errorf("scan %s row: %w", table, err)
		}
		if !dryRun {
			if _, err := dst.db.ExecContext(ctx, insert, values...); err != nil {
				return count, fmt.Errorf("insert %s row: %w", table, err)
			}
		}
		count++
	}
	return count, rows.Err()
}
