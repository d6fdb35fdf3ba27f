// Package mysql implements a MySQL repository (self-hosted, AWS RDS or Google
// Cloud SQL) on go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/VisionKernel/Centerspoke/internal/storage"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN       string
	Table     string
	Columns   []string
	BatchSize int
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NormalizeDSN parses dsn and forces UTC time handling so DATETIME values
// round-trip as time.Time.
func NormalizeDSN(dsn string) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN(), nil
}

// NewRepository opens the pool, pings it and returns a Close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dsn, err := NormalizeDSN(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// Exec runs a single statement.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}

// ExecMany inserts rows with query inside a single transaction.
func (r *Repository) ExecMany(ctx context.Context, query string, rows [][]any) (int64, error) {
	return storage.ExecManyTx(ctx, r.db, query, rows, r.cfg.BatchSize)
}

// ListTables returns the tables of the current database.
func (r *Repository) ListTables(ctx context.Context) ([]string, error) {
	return storage.QueryStrings(ctx, r.db, "SHOW TABLES")
}

// CreateDatabase creates name unless it already exists.
func (r *Repository) CreateDatabase(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS `"+strings.ReplaceAll(name, "`", "``")+"`")
	return err
}
