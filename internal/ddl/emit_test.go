package ddl

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/VisionKernel/Centerspoke/internal/table"
	"github.com/VisionKernel/Centerspoke/internal/transformer"
	"github.com/VisionKernel/Centerspoke/internal/transformer/builtin"
)

func TestDialectSQLType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    Dialect
		typ  table.Type
		want string
	}{
		{Standard, table.Integer, "INT"},
		{Standard, table.Float, "FLOAT"},
		{Standard, table.DateTime, "DATETIME"},
		{Standard, table.Boolean, "BOOLEAN"},
		{Standard, table.Text, "VARCHAR(255)"},
		{Standard, table.Categorical, "VARCHAR(255)"},
		{Postgres, table.DateTime, "TIMESTAMP"},
		{Postgres, table.Boolean, "BOOLEAN"},
		{MSSQL, table.Boolean, "BIT"},
		{MSSQL, table.DateTime, "DATETIME"},
	}
	for _, tt := range tests {
		if got := tt.d.SQLType(tt.typ); got != tt.want {
			t.Errorf("%s.SQLType(%s) = %q, want %q", tt.d.Name, tt.typ, got, tt.want)
		}
	}
}

func TestNeedsQuote(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"price":      false,
		"date":       false,
		"_x1":        false,
		"Order":      true,
		"limit":      true,
		"123":        true,
		"1.5e3":      true,
		"1abc":       true,
		"unit price": true,
		"":           true,
	}
	for name, want := range tests {
		if got := NeedsQuote(name); got != want {
			t.Errorf("NeedsQuote(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDialectIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    Dialect
		in   string
		want string
	}{
		{MySQL, "a`b", "`a``b`"},
		{Postgres, `say "hi"`, `"say ""hi"""`},
		{SQLite, "key", `"key"`},
		{MSSQL, "a]b", "[a]]b]"},
		{MSSQL, "plain", "plain"},
	}
	for _, tt := range tests {
		if got := tt.d.Ident(tt.in); got != tt.want {
			t.Errorf("%s.Ident(%q) = %s, want %s", tt.d.Name, tt.in, got, tt.want)
		}
	}
	if got := Postgres.QualifiedIdent("public.order"); got != `public."order"` {
		t.Errorf("QualifiedIdent = %s", got)
	}
}

func TestCreateTableDialects(t *testing.T) {
	t.Parallel()

	def := TableDef{FQN: "t", Columns: []ColumnDef{{Name: "a", SQLType: "INT", Nullable: true}}}
	tests := []struct {
		d    Dialect
		want string
	}{
		{Standard, "CREATE TABLE t (a INT)"},
		{MySQL, "CREATE TABLE IF NOT EXISTS t (a INT)"},
		{Postgres, "CREATE TABLE IF NOT EXISTS t (a INT)"},
		{SQLite, "CREATE TABLE IF NOT EXISTS t (a INT)"},
		{MSSQL, "IF OBJECT_ID(N't', N'U') IS NULL CREATE TABLE t (a INT)"},
	}
	for _, tt := range tests {
		got, err := tt.d.CreateTable(def)
		if err != nil {
			t.Fatalf("%s.CreateTable() error = %v", tt.d.Name, err)
		}
		if got != tt.want {
			t.Errorf("%s.CreateTable() = %q, want %q", tt.d.Name, got, tt.want)
		}
	}
}

func TestInsertSQLPlaceholders(t *testing.T) {
	t.Parallel()

	cols := []string{"date", "price", "group"}
	tests := []struct {
		d    Dialect
		want string
	}{
		{Standard, "INSERT INTO t (date, price, `group`) VALUES (?, ?, ?)"},
		{Postgres, `INSERT INTO t (date, price, "group") VALUES ($1, $2, $3)`},
		{MSSQL, "INSERT INTO t (date, price, [group]) VALUES (@p1, @p2, @p3)"},
	}
	for _, tt := range tests {
		got, err := tt.d.InsertSQL("t", cols)
		if err != nil {
			t.Fatalf("%s.InsertSQL() error = %v", tt.d.Name, err)
		}
		if got != tt.want {
			t.Errorf("%s.InsertSQL() = %q, want %q", tt.d.Name, got, tt.want)
		}
	}
	if _, err := Standard.InsertSQL("t", nil); err == nil {
		t.Error("InsertSQL() with no columns: want error")
	}
}

func TestRowsBindsTypedValues(t *testing.T) {
	t.Parallel()

	in := table.Table{Name: "t", Columns: []table.Column{
		{Name: "n", Type: table.Integer, Ints: []int64{1, 0}, Null: []bool{false, true}},
		{Name: "f", Type: table.Float, Floats: []float64{1.5, 2}, Null: []bool{false, false}},
		{Name: "b", Type: table.Boolean, Bools: []bool{true, false}, Null: []bool{false, false}},
		{Name: "d", Type: table.DateTime, Strings: []string{"2024-01-02T03:04:05.000Z", ""}, Null: []bool{false, true}},
		{Name: "c", Type: table.Categorical, Ints: []int64{1, 0}, Levels: []string{"x", "y"}, Null: []bool{false, false}},
		{Name: "s", Type: table.Text, Strings: []string{"null", ""}, Null: []bool{false, true}},
	}}
	rows, err := Rows(in)
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	want := [][]any{
		{int64(1), 1.5, true, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "1", "null"},
		{nil, 2.0, false, nil, "0", nil},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("Rows() = %#v, want %#v", rows, want)
	}
}

func TestRowsRejectsUnparseableDateTime(t *testing.T) {
	t.Parallel()

	in := table.Table{Columns: []table.Column{
		{Name: "d", Type: table.DateTime, Strings: []string{"someday"}, Null: []bool{false}},
	}}
	if _, err := Rows(in); !errors.Is(err, table.ErrTypeCoercion) {
		t.Fatalf("Rows() error = %v, want ErrTypeCoercion", err)
	}
}

// The Date/Price scenario: a cleaned and resolved two-column table emits the
// documented schema and one tuple per row.
func TestEmitDatePriceScenario(t *testing.T) {
	t.Parallel()

	in := table.Table{Name: "t", Columns: []table.Column{
		table.NewText("date", []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08"}, nil),
		table.NewText("price", []string{"10.5", "10.75", "11.25", "10.90", "11.10"}, nil),
	}}
	chain := transformer.Chain{builtin.Clean{}, builtin.Resolve{}}
	resolved, err := chain.Apply(context.Background(), in)
	if err != nil {
		t.Fatalf("chain.Apply() error = %v", err)
	}

	st, err := Emit(resolved)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if want := "CREATE TABLE t (date DATETIME, price FLOAT)"; st.CreateSQL != want {
		t.Fatalf("CreateSQL = %q, want %q", st.CreateSQL, want)
	}
	if want := "INSERT INTO t (date, price) VALUES (?, ?)"; st.InsertSQL != want {
		t.Fatalf("InsertSQL = %q, want %q", st.InsertSQL, want)
	}
	if len(st.Rows) != 5 {
		t.Fatalf("len(Rows) = %d, want 5", len(st.Rows))
	}
	first := []any{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 10.5}
	if !reflect.DeepEqual(st.Rows[0], first) {
		t.Fatalf("Rows[0] = %#v, want %#v", st.Rows[0], first)
	}
	if !reflect.DeepEqual(st.Columns, []string{"date", "price"}) {
		t.Fatalf("Columns = %v", st.Columns)
	}
}

func TestEmitRejectsRaggedTable(t *testing.T) {
	t.Parallel()

	in := table.Table{Name: "t", Columns: []table.Column{
		table.NewText("a", []string{"1", "2"}, nil),
		table.NewText("b", []string{"1"}, nil),
	}}
	if _, err := Emit(in); err == nil {
		t.Fatal("Emit() with ragged columns: want error")
	}
}
