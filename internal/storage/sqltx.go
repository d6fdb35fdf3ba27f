package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ExecManyTx prepares query once and executes it for every row inside one
// database/sql transaction. Any failure rolls the whole transaction back.
func ExecManyTx(ctx context.Context, db *sql.DB, query string, rows [][]any, batchSize int) (int64, error) {
	if strings.TrimSpace(query) == "" {
		return 0, fmt.Errorf("exec many: empty statement")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var offset int
	n, err := LoadBatches(ctx, rows, batchSize, func(ctx context.Context, batch [][]any) (int64, error) {
		var done int64
		for i, row := range batch {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return done, fmt.Errorf("insert row %d: %w", offset+i, err)
			}
			done++
		}
		offset += len(batch)
		return done, nil
	})
	if err != nil {
		rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// QueryStrings runs query and collects the first column of every row.
func QueryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
