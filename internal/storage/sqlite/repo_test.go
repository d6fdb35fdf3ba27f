package sqlite

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/VisionKernel/Centerspoke/internal/ddl"
	"github.com/VisionKernel/Centerspoke/internal/storage"
	"github.com/VisionKernel/Centerspoke/internal/table"
)

func newRepo(tb testing.TB, tableName string) *Repository {
	tb.Helper()
	r, closeFn, err := NewRepository(context.Background(), Config{DSN: ":memory:", Table: tableName, BatchSize: 2})
	if err != nil {
		tb.Fatalf("open sqlite :memory:: %v", err)
	}
	tb.Cleanup(closeFn)
	return r
}

func pricesTable() table.Table {
	return table.Table{Name: "prices", Columns: []table.Column{
		{Name: "date", Type: table.DateTime, Strings: []string{"2024-01-02T00:00:00.000Z", "2024-01-03T00:00:00.000Z", ""}, Null: []bool{false, false, true}},
		{Name: "price", Type: table.Float, Floats: []float64{10.5, 11, 0}, Null: []bool{false, false, true}},
		{Name: "order", Type: table.Integer, Ints: []int64{1, 2, 3}, Null: []bool{false, false, false}},
	}}
}

func count(tb testing.TB, r *Repository, name string) int {
	tb.Helper()
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM " + name).Scan(&n); err != nil {
		tb.Fatalf("count %s: %v", name, err)
	}
	return n
}

// TestEmitCreateInsertList runs an emitted statement through the repository.
func TestEmitCreateInsertList(t *testing.T) {
	t.Parallel()

	r := newRepo(t, "prices")
	ctx := context.Background()

	st, err := ddl.SQLite.Emit(pricesTable())
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !strings.Contains(st.CreateSQL, `"order" INT`) {
		t.Fatalf("CreateSQL = %q, want quoted order column", st.CreateSQL)
	}
	if err := r.Exec(ctx, st.CreateSQL); err != nil {
		t.Fatalf("create: %v", err)
	}
	// IF NOT EXISTS makes a second create harmless.
	if err := r.Exec(ctx, st.CreateSQL); err != nil {
		t.Fatalf("second create: %v", err)
	}

	n, err := r.ExecMany(ctx, st.InsertSQL, st.Rows)
	if err != nil {
		t.Fatalf("ExecMany: %v", err)
	}
	if n != 3 || count(t, r, "prices") != 3 {
		t.Fatalf("inserted %d, counted %d; want 3", n, count(t, r, "prices"))
	}

	var nulls int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM prices WHERE price IS NULL AND date IS NULL").Scan(&nulls); err != nil || nulls != 1 {
		t.Fatalf("null rows = %d (%v), want 1 stored as SQL NULL", nulls, err)
	}

	names, err := r.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"prices"}) {
		t.Fatalf("ListTables = %v, want [prices]", names)
	}
}

func TestExecManyIsAtomic(t *testing.T) {
	t.Parallel()

	r := newRepo(t, "t")
	ctx := context.Background()
	if err := r.Exec(ctx, "CREATE TABLE t (a INTEGER NOT NULL)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	rows := [][]any{{1}, {2}, {nil}}
	if _, err := r.ExecMany(ctx, "INSERT INTO t (a) VALUES (?)", rows); err == nil {
		t.Fatal("ExecMany: want NOT NULL failure")
	}
	if got := count(t, r, "t"); got != 0 {
		t.Fatalf("rows after failed ExecMany = %d, want 0", got)
	}
}

func TestCopyFrom(t *testing.T) {
	t.Parallel()

	r := newRepo(t, "main.events")
	ctx := context.Background()
	if err := r.Exec(ctx, "CREATE TABLE events (id INTEGER, name TEXT)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	n, err := r.CopyFrom(ctx, []string{"id", "name"}, [][]any{{1, "a"}, {2, "b"}, {3, nil}})
	if err != nil || n != 3 {
		t.Fatalf("CopyFrom = %d, %v; want 3", n, err)
	}
	if _, err := r.CopyFrom(ctx, []string{"id", "name"}, [][]any{{1}}); err == nil {
		t.Fatal("CopyFrom with short row: want error")
	}
	if _, err := r.CopyFrom(ctx, nil, nil); err == nil {
		t.Fatal("CopyFrom without columns: want error")
	}
}

func TestNewRepositoryRejectsEmptyDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{DSN: "  "}); err == nil {
		t.Fatal("NewRepository with empty DSN: want error")
	}
}

// TestStorageWith opens the real backend through the registry.
func TestStorageWith(t *testing.T) {
	t.Parallel()

	var tables []string
	err := storage.With(context.Background(), storage.Config{Kind: "sqlite", DSN: ":memory:"}, func(repo storage.Repository) error {
		if err := repo.Exec(context.Background(), "CREATE TABLE a (x INT)"); err != nil {
			return err
		}
		var err error
		tables, err = repo.ListTables(context.Background())
		return err
	})
	if err != nil {
		t.Fatalf("With: %v", err)
	}
	if !reflect.DeepEqual(tables, []string{"a"}) {
		t.Fatalf("tables = %v, want [a]", tables)
	}
}

func BenchmarkExecMany(b *testing.B) {
	r := newRepo(b, "bench")
	ctx := context.Background()
	if err := r.Exec(ctx, "CREATE TABLE bench (a INTEGER, b TEXT)"); err != nil {
		b.Fatalf("create: %v", err)
	}
	rows := make([][]any, 1000)
	for i := range rows {
		rows[i] = []any{i, "x"}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.ExecMany(ctx, "INSERT INTO bench (a, b) VALUES (?, ?)", rows); err != nil {
			b.Fatalf("ExecMany: %v", err)
		}
	}
}
