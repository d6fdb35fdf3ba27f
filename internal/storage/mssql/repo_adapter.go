package mssql

import (
	"context"

	"github.com/VisionKernel/Centerspoke/internal/ddl"
	"github.com/VisionKernel/Centerspoke/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo adapts *mssql.Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var (
	_ storage.Repository      = (*wrappedRepo)(nil)
	_ storage.Copier          = (*wrappedRepo)(nil)
	_ storage.DatabaseCreator = (*wrappedRepo)(nil)
)

// Close closes the underlying connection pool.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:       cfg.DSN,
			Table:     cfg.Table,
			Columns:   cfg.Columns,
			BatchSize: cfg.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDialect("mssql", ddl.MSSQL)
}
