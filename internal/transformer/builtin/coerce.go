package builtin

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/VisionKernel/Centerspoke/internal/table"
)

// parseNumber parses a cell as a finite number. isInt reports whether the
// cell is an integer literal that fits int64.
func parseNumber(s string) (i int64, f float64, isInt bool, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, float64(n), true, true
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(x, 0) || math.IsNaN(x) {
		return 0, 0, false, false
	}
	return 0, x, false, true
}

// parseBool accepts only true/false in any case.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// toNumeric converts a Text column to Integer or Float. It fails with
// table.ErrTypeCoercion if any non-null cell is not a number.
func toNumeric(c table.Column) (table.Column, error) {
	n := c.Len()
	ints := make([]int64, n)
	floats := make([]float64, n)
	allInt := true
	for i := 0; i < n; i++ {
		if c.IsNull(i) {
			continue
		}
		iv, fv, isInt, ok := parseNumber(c.Strings[i])
		if !ok {
			return c, fmt.Errorf("column %s row %d %q: %w", c.Name, i+1, c.Strings[i], table.ErrTypeCoercion)
		}
		ints[i], floats[i] = iv, fv
		allInt = allInt && isInt
	}

	out := table.Column{Name: c.Name, Null: append([]bool(nil), c.Null...)}
	if allInt {
		out.Type, out.Ints = table.Integer, ints
	} else {
		out.Type, out.Floats = table.Float, floats
	}
	return out, nil
}

// toBoolean converts a Text column of true/false cells to Boolean.
func toBoolean(c table.Column) (table.Column, error) {
	vals := make([]bool, c.Len())
	for i := range vals {
		if c.IsNull(i) {
			continue
		}
		b, ok := parseBool(c.Strings[i])
		if !ok {
			return c, fmt.Errorf("column %s row %d %q: %w", c.Name, i+1, c.Strings[i], table.ErrTypeCoercion)
		}
		vals[i] = b
	}
	return table.Column{Name: c.Name, Type: table.Boolean, Bools: vals, Null: append([]bool(nil), c.Null...)}, nil
}

// toDateTime parses every non-null cell and re-renders it with layout in UTC.
func toDateTime(c table.Column, layout string) (table.Column, error) {
	vals := make([]string, c.Len())
	for i := range vals {
		if c.IsNull(i) {
			continue
		}
		ts, ok := table.ParseTime(c.Strings[i])
		if !ok {
			return c, fmt.Errorf("column %s row %d %q: %w", c.Name, i+1, c.Strings[i], table.ErrTypeCoercion)
		}
		vals[i] = ts.UTC().Format(layout)
	}
	return table.Column{Name: c.Name, Type: table.DateTime, Strings: vals, Null: append([]bool(nil), c.Null...)}, nil
}

// toCategorical codes each distinct value by first appearance: the first value
// seen gets 0, the next new value 1, and so on.
func toCategorical(c table.Column) table.Column {
	codes := make([]int64, c.Len())
	index := make(map[string]int64)
	var levels []string
	for i := range codes {
		if c.IsNull(i) {
			continue
		}
		v := c.Strings[i]
		code, ok := index[v]
		if !ok {
			code = int64(len(levels))
			index[v] = code
			levels = append(levels, v)
		}
		codes[i] = code
	}
	return table.Column{
		Name:   c.Name,
		Type:   table.Categorical,
		Ints:   codes,
		Levels: levels,
		Null:   append([]bool(nil), c.Null...),
	}
}

// asText turns a DateTime column back into plain Text, keeping the strings.
func asText(c table.Column) table.Column {
	out := c.Clone()
	out.Type = table.Text
	return out
}

// indexStrings renders a time index in the canonical layout.
func indexStrings(idx []time.Time) []string {
	out := make([]string, len(idx))
	for i, ts := range idx {
		out[i] = ts.UTC().Format(table.CanonicalLayout)
	}
	return out
}
