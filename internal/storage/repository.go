// Package storage holds the backend-agnostic database contract. Concrete
// backends (postgres, mssql, mysql, sqlite) live in subpackages and register
// a factory plus their SQL dialect from init; callers pick one by kind.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/VisionKernel/Centerspoke/internal/ddl"
)

// Repository executes emitted statements against one database.
type Repository interface {
	// Exec runs a single statement, typically CREATE TABLE.
	Exec(ctx context.Context, sql string) error
	// ExecMany runs query once per row inside a single transaction and
	// returns the number of rows written. Nothing is committed on error.
	ExecMany(ctx context.Context, query string, rows [][]any) (int64, error)
	// ListTables returns the user tables visible on the connection.
	ListTables(ctx context.Context) ([]string, error)
	Close()
}

// Copier is implemented by backends with a native bulk path (COPY, bulk
// insert). rows are aligned to columns and written to Config.Table.
type Copier interface {
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
}

// DatabaseCreator is implemented by server backends that can create a
// database on the connected server.
type DatabaseCreator interface {
	CreateDatabase(ctx context.Context, name string) error
}

// Config selects and configures a backend.
type Config struct {
	Kind      string
	DSN       string
	Table     string
	Columns   []string
	BatchSize int
}

// DefaultBatchSize bounds how many rows a backend sends per round trip.
const DefaultBatchSize = 1000

// Batch returns c.BatchSize, or DefaultBatchSize when unset.
func (c Config) Batch() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return DefaultBatchSize
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
	dialects  = map[string]ddl.Dialect{}
)

// Register registers (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// RegisterDialect records the SQL dialect used to render statements for kind.
func RegisterDialect(kind string, d ddl.Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[kind] = d
}

// DialectFor returns the dialect registered for kind, or ddl.Standard.
func DialectFor(kind string) ddl.Dialect {
	mu.RLock()
	defer mu.RUnlock()
	if d, ok := dialects[kind]; ok {
		return d
	}
	return ddl.Standard
}

// ListKinds returns a sorted snapshot of the registered kinds.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// With opens a Repository, runs fn and closes the Repository on every exit
// path, including a panic in fn.
func With(ctx context.Context, cfg Config, fn func(Repository) error) error {
	repo, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	return fn(repo)
}
