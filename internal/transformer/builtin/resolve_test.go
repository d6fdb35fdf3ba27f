package builtin

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/VisionKernel/Centerspoke/internal/table"
)

func TestResolveColumnTypes(t *testing.T) {
	t.Parallel()

	many := func(vals ...string) []string {
		// pad to 100 rows by cycling vals so cardinality stays low
		out := make([]string, 100)
		for i := range out {
			out[i] = vals[i%len(vals)]
		}
		return out
	}
	unique := make([]string, 40)
	for i := range unique {
		unique[i] = fmt.Sprintf("name-%d", i)
	}

	tests := []struct {
		name string
		col  table.Column
		want table.Type
	}{
		{"integers", textCol("qty", "1", "-2", " 3 ", "<null>"), table.Integer},
		{"floats", textCol("price", "1.5", "2", "3e2"), table.Float},
		{"int_overflow_is_float", textCol("big", "1", "99999999999999999999"), table.Float},
		{"inf_is_not_numeric", textCol("x", "1", "Inf"), table.Text},
		{"booleans", textCol("flag", "true", "FALSE", "True"), table.Boolean},
		{"low_cardinality", textCol("region", many("east", "west")...), table.Categorical},
		{"high_cardinality", textCol("who", unique...), table.Text},
		{"all_null", textCol("nothing", "<null>", "<null>"), table.Text},
		{"date_name", textCol("Trade_Date", "2024-01-02", "2024-01-03"), table.DateTime},
		{"date_name_unparseable", textCol("update_note", "soon", "later"), table.Text},
		{"date_name_wins_over_numeric", textCol("datekey", "20240102", "20240103"), table.DateTime},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, _ := Resolve{}.Column(tt.col)
			if got.Type != tt.want {
				t.Fatalf("Column(%s) type = %s, want %s", tt.col.Name, got.Type, tt.want)
			}
			if got.Len() != tt.col.Len() {
				t.Fatalf("Column(%s) len = %d, want %d", tt.col.Name, got.Len(), tt.col.Len())
			}
		})
	}
}

func TestResolveIntegerValues(t *testing.T) {
	t.Parallel()

	got, err := Resolve{}.Column(textCol("n", "10", "<null>", "-7"))
	if err != nil {
		t.Fatalf("Column() error = %v", err)
	}
	if !reflect.DeepEqual(got.Ints, []int64{10, 0, -7}) || !got.IsNull(1) {
		t.Fatalf("ints = %v null = %v", got.Ints, got.Null)
	}
}

// Integer requires integer literals; a decimal point or exponent makes the
// column Float even when the value is whole.
func TestResolveWholeDecimalsAreFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cells  []string
		want   table.Type
		floats []float64
	}{
		{"trailing zero", []string{"1.0", "2"}, table.Float, []float64{1, 2}},
		{"exponent", []string{"1e3", "5"}, table.Float, []float64{1000, 5}},
		{"plain literals", []string{"1", "2"}, table.Integer, nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Resolve{}.Column(textCol("qty", tt.cells...))
			if err != nil {
				t.Fatalf("Column() error = %v", err)
			}
			if got.Type != tt.want {
				t.Fatalf("Column(%v) type = %s, want %s", tt.cells, got.Type, tt.want)
			}
			if tt.floats != nil && !reflect.DeepEqual(got.Floats, tt.floats) {
				t.Fatalf("floats = %v, want %v", got.Floats, tt.floats)
			}
		})
	}
}

func TestResolveDateNameFormat(t *testing.T) {
	t.Parallel()

	got, err := Resolve{}.Column(textCol("Date", "2024-01-02", "2024-01-03T04:05:06", "<null>"))
	if err != nil {
		t.Fatalf("Column() error = %v", err)
	}
	want := []string{"2024-01-02T00:00:00.000Z", "2024-01-03T04:05:06.000Z", ""}
	if !reflect.DeepEqual(got.Strings, want) {
		t.Fatalf("strings = %v, want %v", got.Strings, want)
	}
}

func TestResolveDateNameFailureIsRecoverable(t *testing.T) {
	t.Parallel()

	got, err := Resolve{}.Column(textCol("date", "2024-01-02", "tomorrow"))
	if !errors.Is(err, table.ErrTypeCoercion) || !IsRecoverable(err) {
		t.Fatalf("err = %v, want recoverable ErrTypeCoercion", err)
	}
	if got.Type != table.Text {
		t.Fatalf("type = %s, want text", got.Type)
	}
}

// The region scenario: three distinct values over 100 rows is a ratio of
// 0.03, so the column is coded in first-seen order.
func TestResolveRegionScenario(t *testing.T) {
	t.Parallel()

	cells := []string{"east", "east", "west", "east", "north"}
	for len(cells) < 100 {
		cells = append(cells, "east")
	}
	got, err := Resolve{}.Column(textCol("region", cells...))
	if err != nil {
		t.Fatalf("Column() error = %v", err)
	}
	if got.Type != table.Categorical {
		t.Fatalf("type = %s, want categorical", got.Type)
	}
	if !reflect.DeepEqual(got.Levels, []string{"east", "west", "north"}) {
		t.Fatalf("levels = %v, want [east west north]", got.Levels)
	}
	if !reflect.DeepEqual(got.Ints[:5], []int64{0, 0, 1, 0, 2}) {
		t.Fatalf("codes = %v, want [0 0 1 0 2]", got.Ints[:5])
	}
}

func TestResolveRatioAtThresholdIsText(t *testing.T) {
	t.Parallel()

	// 5 distinct / 100 rows = 0.05, not below the threshold.
	cells := make([]string, 100)
	for i := range cells {
		cells[i] = fmt.Sprintf("v%d", i%5)
	}
	got, _ := Resolve{}.Column(textCol("code", cells...))
	if got.Type != table.Text {
		t.Fatalf("type = %s, want text", got.Type)
	}

	got, _ = Resolve{CategoricalRatio: 0.1}.Column(textCol("code", cells...))
	if got.Type != table.Categorical {
		t.Fatalf("type with ratio 0.1 = %s, want categorical", got.Type)
	}
}

func TestResolveCodingIsStable(t *testing.T) {
	t.Parallel()

	cells := []string{"b", "a", "b", "c"}
	for len(cells) < 100 {
		cells = append(cells, "a")
	}
	in := table.Table{Columns: []table.Column{textCol("k", cells...)}}
	first, _ := Resolve{}.Apply(context.Background(), in)
	second, _ := Resolve{}.Apply(context.Background(), in)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("coding differs between runs")
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	t.Parallel()

	in := table.Table{Columns: []table.Column{
		textCol("date", "2024-01-02", "2024-01-03"),
		textCol("price", "1.5", "2.5"),
		textCol("qty", "1", "2"),
		textCol("ok", "true", "false"),
		textCol("note", "a", "b"),
	}}
	once, err := Resolve{}.Apply(context.Background(), in)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	twice, err := Resolve{}.Apply(context.Background(), once)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("Resolve not idempotent:\nonce  = %+v\ntwice = %+v", once, twice)
	}
}

func TestDistinctRatioEmptyColumn(t *testing.T) {
	t.Parallel()

	_, err := DistinctRatio(textCol("x"))
	if !errors.Is(err, table.ErrEmptyColumnCardinality) {
		t.Fatalf("DistinctRatio(empty) error = %v, want ErrEmptyColumnCardinality", err)
	}

	got, _ := Resolve{}.Column(textCol("x"))
	if got.Type != table.Text {
		t.Fatalf("empty column type = %s, want text", got.Type)
	}
}
