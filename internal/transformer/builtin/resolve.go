package builtin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/VisionKernel/Centerspoke/internal/logging"
	"github.com/VisionKernel/Centerspoke/internal/table"
)

// DefaultCategoricalRatio is the distinct/row ratio below which a
// non-numeric column is coded as Categorical.
const DefaultCategoricalRatio = 0.05

// Resolve assigns a semantic type to every Text column:
//
//   - a name containing DateHint (case-insensitive) forces DateTime, rendered
//     in table.ISOMillisLayout; unparseable values leave the column Text
//   - all values numeric: Integer if every value is an int64 literal, else Float
//   - all values true/false: Boolean
//   - distinct/rows below CategoricalRatio: Categorical, first-seen codes
//   - otherwise Text
//
// Columns already carrying a non-Text type pass through, so resolving a
// resolved table changes nothing. Per-column failures never abort the table.
type Resolve struct {
	DateHint         string  // default "date"
	CategoricalRatio float64 // default DefaultCategoricalRatio
}

func (Resolve) Name() string { return "infer" }

func (r Resolve) Apply(ctx context.Context, in table.Table) (table.Table, error) {
	log := logging.FromContext(ctx)
	out := in.Clone()
	for i, col := range out.Columns {
		resolved, err := r.Column(col)
		if err != nil {
			if !IsRecoverable(err) {
				return table.Table{}, err
			}
			log.Warn("infer: column kept as text", "column", col.Name, "error", err)
		}
		out.Columns[i] = resolved
	}
	return out, nil
}

// Column resolves a single column. The returned error is informational: the
// returned column is always usable, falling back to Text.
func (r Resolve) Column(c table.Column) (table.Column, error) {
	hint := r.DateHint
	if hint == "" {
		hint = "date"
	}
	if strings.Contains(strings.ToLower(c.Name), strings.ToLower(hint)) &&
		(c.Type == table.Text || c.Type == table.DateTime) {
		dt, err := toDateTime(c, table.ISOMillisLayout)
		if err != nil {
			return asText(c), err
		}
		return dt, nil
	}

	if c.Type != table.Text {
		return c, nil
	}
	if c.NullCount() == c.Len() {
		// Nothing to infer from; an empty column is also the zero-row case.
		if c.Len() == 0 {
			return c, table.ErrEmptyColumnCardinality
		}
		return c, nil
	}

	if num, err := toNumeric(c); err == nil {
		return num, nil
	}
	if b, err := toBoolean(c); err == nil {
		return b, nil
	}

	ratio, err := DistinctRatio(c)
	if err != nil {
		return c, err
	}
	threshold := r.CategoricalRatio
	if threshold <= 0 {
		threshold = DefaultCategoricalRatio
	}
	if ratio < threshold {
		return toCategorical(c), nil
	}
	return c, nil
}

// DistinctRatio is the number of distinct present values divided by the row
// count. A zero-row column yields table.ErrEmptyColumnCardinality.
func DistinctRatio(c table.Column) (float64, error) {
	n := c.Len()
	if n == 0 {
		return 0, fmt.Errorf("column %s: %w", c.Name, table.ErrEmptyColumnCardinality)
	}
	seen := make(map[string]struct{})
	for i := 0; i < n; i++ {
		if !c.IsNull(i) {
			seen[c.Text(i)] = struct{}{}
		}
	}
	return float64(len(seen)) / float64(n), nil
}

// IsRecoverable reports whether err is a per-column inference failure that
// leaves the column as Text.
func IsRecoverable(err error) bool {
	return errors.Is(err, table.ErrTypeCoercion) || errors.Is(err, table.ErrEmptyColumnCardinality)
}
