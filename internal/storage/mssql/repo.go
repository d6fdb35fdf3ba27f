// Package mssql implements a Microsoft SQL Server (and Azure SQL) repository
// on go-mssqldb. ExecMany runs a prepared INSERT per row in one transaction;
// CopyFrom uses the driver's bulk copy API.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/VisionKernel/Centerspoke/internal/storage"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN       string
	Table     string
	Columns   []string
	BatchSize int
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a pool for cfg.DSN, checks it with a ping and returns
// the Repository with its cleanup function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql: dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mssql: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { _ = db.Close() }, nil
}

// Exec runs one statement, typically the guarded CREATE TABLE.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mssql: exec: %w", err)
	}
	return nil
}

// ExecMany inserts rows with query inside a single transaction.
func (r *Repository) ExecMany(ctx context.Context, query string, rows [][]any) (int64, error) {
	n, err := storage.ExecManyTx(ctx, r.db, query, rows, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("mssql: %w", err)
	}
	return n, nil
}

// CopyFrom streams rows into Config.Table through the TDS bulk copy API in a
// single transaction. Nulls are kept rather than replaced by column defaults.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (n int64, err error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	opts := mssql.BulkOptions{KeepNulls: true, RowsPerBatch: r.cfg.BatchSize}
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(r.cfg.Table, opts, columns...))
	if err != nil {
		return 0, fmt.Errorf("mssql: prepare bulk copy: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("mssql: bulk row %d has %d values, want %d", i, len(row), len(columns))
		}
		if _, err = stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("mssql: bulk row %d: %w", i, err)
		}
	}
	// An Exec without arguments flushes the buffered rows.
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("mssql: bulk flush: %w", err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit: %w", err)
	}
	return n, nil
}

// ListTables returns base tables in the connected database as schema.table.
func (r *Repository) ListTables(ctx context.Context) ([]string, error) {
	return storage.QueryStrings(ctx, r.db, `
		SELECT TABLE_SCHEMA + '.' + TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_SCHEMA, TABLE_NAME`)
}

// CreateDatabase creates name unless it already exists.
func (r *Repository) CreateDatabase(ctx context.Context, name string) error {
	q := fmt.Sprintf("IF DB_ID(N'%s') IS NULL CREATE DATABASE %s",
		strings.ReplaceAll(name, "'", "''"), msIdent(name))
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("mssql: create database %s: %w", name, err)
	}
	return nil
}

// msIdent brackets id, doubling any ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }
