// Package postgres implements a Postgres repository using pgx v5. Inserts run
// as pipelined batches inside one transaction; CopyFrom uses the COPY
// protocol.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VisionKernel/Centerspoke/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN       string   // connection string for pgxpool
	Table     string   // target table, optionally schema-qualified ("public.prices")
	Columns   []string // ordered columns for COPY
	BatchSize int
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, closeFn, nil
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	_, err := r.pool.Exec(ctx, sql)
	return describe(err)
}

// ExecMany queues query once per row and sends the queue in batches, all on
// one connection inside one transaction.
func (r *Repository) ExecMany(ctx context.Context, query string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback(ctx) }

	batchSize := r.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = storage.DefaultBatchSize
	}
	var offset int
	n, err := storage.LoadBatches(ctx, rows, batchSize, func(ctx context.Context, chunk [][]any) (int64, error) {
		b := &pgx.Batch{}
		for _, row := range chunk {
			b.Queue(query, row...)
		}
		done, err := drainBatch(tx.SendBatch(ctx, b), len(chunk), offset)
		offset += len(chunk)
		return done, err
	})
	if err != nil {
		rollback()
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// batchResults is the part of pgx.BatchResults drainBatch reads.
type batchResults interface {
	Exec() (pgconn.CommandTag, error)
	Close() error
}

// drainBatch reads n queued inserts. Errors name the row by its position in
// the whole load, offset being the index of the batch's first row.
func drainBatch(br batchResults, n, offset int) (int64, error) {
	var done int64
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return done, fmt.Errorf("insert row %d: %w", offset+i, describe(err))
		}
		done++
	}
	return done, br.Close()
}

// CopyFrom streams rows into the configured table with COPY. A COPY is a
// single statement, so a failure writes nothing.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, splitFQN(r.cfg.Table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", r.cfg.Table, describe(err))
	}
	return n, nil
}

// ListTables returns base tables in the current schema.
func (r *Repository) ListTables(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// describe surfaces the server detail pgx keeps on *pgconn.PgError.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s: %s)", err, pgErr.SQLState(), pgErr.Detail)
	}
	return err
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
