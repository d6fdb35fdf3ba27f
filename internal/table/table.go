// Package table holds the in-memory columnar model that flows through the
// load pipeline: a Table is an ordered set of equally long, typed Columns
// with an optional time index.
//
// Tables are treated as values. Pipeline stages call Clone, mutate the copy,
// and hand it on; nothing retains a Table after the emitter has run.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type is the semantic type assigned to a column.
type Type int

const (
	Text Type = iota
	Integer
	Float
	DateTime
	Boolean
	Categorical
)

// String returns the lowercase name of the type.
func (t Type) String() string {
	switch t {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case DateTime:
		return "datetime"
	case Boolean:
		return "boolean"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Column is a named, typed vector. Exactly one backing slice is populated,
// selected by Type:
//
//	Text, DateTime        -> Strings
//	Integer, Categorical  -> Ints (Categorical codes index into Levels)
//	Float                 -> Floats
//	Boolean               -> Bools
//
// Null marks missing entries; the backing slot for a null entry holds the
// zero value and must be ignored.
type Column struct {
	Name string
	Type Type
	Null []bool

	Strings []string
	Ints    []int64
	Floats  []float64
	Bools   []bool
	Levels  []string
}

// NewText builds a Text column from raw cells; cells with null[i] set are
// treated as missing. A nil null slice means no missing values.
func NewText(name string, cells []string, null []bool) Column {
	if null == nil {
		null = make([]bool, len(cells))
	}
	return Column{Name: name, Type: Text, Strings: cells, Null: null}
}

// Len returns the number of entries.
func (c Column) Len() int { return len(c.Null) }

// IsNull reports whether entry i is missing.
func (c Column) IsNull(i int) bool { return c.Null[i] }

// NullCount returns the number of missing entries.
func (c Column) NullCount() int {
	n := 0
	for _, b := range c.Null {
		if b {
			n++
		}
	}
	return n
}

// Value returns entry i as a Go value suitable for a database driver, or nil
// when the entry is missing. Categorical entries yield their int64 code.
func (c Column) Value(i int) any {
	if c.Null[i] {
		return nil
	}
	switch c.Type {
	case Integer, Categorical:
		return c.Ints[i]
	case Float:
		return c.Floats[i]
	case Boolean:
		return c.Bools[i]
	default:
		return c.Strings[i]
	}
}

// Text renders entry i for display. Missing entries render as "".
// Categorical entries render as their level rather than the code.
func (c Column) Text(i int) string {
	if c.Null[i] {
		return ""
	}
	switch c.Type {
	case Integer:
		return strconv.FormatInt(c.Ints[i], 10)
	case Categorical:
		code := c.Ints[i]
		if code >= 0 && int(code) < len(c.Levels) {
			return c.Levels[code]
		}
		return strconv.FormatInt(code, 10)
	case Float:
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	case Boolean:
		return strconv.FormatBool(c.Bools[i])
	default:
		return c.Strings[i]
	}
}

// Clone returns a deep copy of c.
func (c Column) Clone() Column {
	out := Column{Name: c.Name, Type: c.Type}
	out.Null = append([]bool(nil), c.Null...)
	if c.Strings != nil {
		out.Strings = append([]string(nil), c.Strings...)
	}
	if c.Ints != nil {
		out.Ints = append([]int64(nil), c.Ints...)
	}
	if c.Floats != nil {
		out.Floats = append([]float64(nil), c.Floats...)
	}
	if c.Bools != nil {
		out.Bools = append([]bool(nil), c.Bools...)
	}
	if c.Levels != nil {
		out.Levels = append([]string(nil), c.Levels...)
	}
	return out
}

// Take returns a new column holding the entries at the given positions, in
// the given order.
func (c Column) Take(idx []int) Column {
	out := Column{Name: c.Name, Type: c.Type, Null: make([]bool, len(idx))}
	if c.Levels != nil {
		out.Levels = append([]string(nil), c.Levels...)
	}
	if c.Strings != nil {
		out.Strings = make([]string, len(idx))
	}
	if c.Ints != nil {
		out.Ints = make([]int64, len(idx))
	}
	if c.Floats != nil {
		out.Floats = make([]float64, len(idx))
	}
	if c.Bools != nil {
		out.Bools = make([]bool, len(idx))
	}
	for j, i := range idx {
		out.Null[j] = c.Null[i]
		if c.Strings != nil {
			out.Strings[j] = c.Strings[i]
		}
		if c.Ints != nil {
			out.Ints[j] = c.Ints[i]
		}
		if c.Floats != nil {
			out.Floats[j] = c.Floats[i]
		}
		if c.Bools != nil {
			out.Bools[j] = c.Bools[i]
		}
	}
	return out
}

// Table is an ordered collection of equally long columns.
type Table struct {
	Name    string
	Columns []Column

	// Index carries the row timestamps of a time-indexed load. It is either
	// nil or exactly Rows() long.
	Index []time.Time
}

// Rows returns the row count.
func (t Table) Rows() int {
	if len(t.Columns) > 0 {
		return t.Columns[0].Len()
	}
	return len(t.Index)
}

// Column returns the column with the given name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns column names in table order.
func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := Table{Name: t.Name, Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = c.Clone()
	}
	if t.Index != nil {
		out.Index = append([]time.Time(nil), t.Index...)
	}
	return out
}

// TakeRows returns a new table holding only the given rows, in order.
func (t Table) TakeRows(idx []int) Table {
	out := Table{Name: t.Name, Columns: make([]Column, len(t.Columns))}
	for k, c := range t.Columns {
		out.Columns[k] = c.Take(idx)
	}
	if t.Index != nil {
		out.Index = make([]time.Time, len(idx))
		for k, i := range idx {
			out.Index[k] = t.Index[i]
		}
	}
	return out
}

// Validate checks that every column (and the index, if any) has the same
// length and that each column's backing slice matches its type.
func (t Table) Validate() error {
	n := t.Rows()
	if t.Index != nil && len(t.Index) != n {
		return fmt.Errorf("table %s: index length %d != rows %d", t.Name, len(t.Index), n)
	}
	for _, c := range t.Columns {
		if c.Len() != n {
			return fmt.Errorf("table %s: column %s length %d != rows %d", t.Name, c.Name, c.Len(), n)
		}
		var got int
		switch c.Type {
		case Integer, Categorical:
			got = len(c.Ints)
		case Float:
			got = len(c.Floats)
		case Boolean:
			got = len(c.Bools)
		default:
			got = len(c.Strings)
		}
		if got != n {
			return fmt.Errorf("table %s: column %s (%s) backing length %d != rows %d", t.Name, c.Name, c.Type, got, n)
		}
	}
	return nil
}

// NormalizeName lowercases a header, trims it, and replaces inner spaces with
// underscores: " Closing Price " -> "closing_price".
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}

// UniqueNames normalizes headers and makes them unique. Empty headers become
// unnamed_<pos>; repeats get _1, _2, ... suffixes in order of appearance.
func UniqueNames(headers []string) []string {
	out := make([]string, len(headers))
	taken := make(map[string]bool, len(headers))
	next := make(map[string]int, len(headers))
	for i, h := range headers {
		base := NormalizeName(h)
		if base == "" {
			base = "unnamed_" + strconv.Itoa(i)
		}
		name := base
		for taken[name] {
			next[base]++
			name = base + "_" + strconv.Itoa(next[base])
		}
		taken[name] = true
		out[i] = name
	}
	return out
}
