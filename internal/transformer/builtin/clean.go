package builtin

import (
	"context"
	"errors"

	"github.com/VisionKernel/Centerspoke/internal/logging"
	"github.com/VisionKernel/Centerspoke/internal/table"
)

// Clean removes structural noise before type inference. In order it:
//
//  1. turns a time index into a leading DateTime column,
//  2. forward-fills then back-fills missing values per column,
//  3. rewrites DateTime columns in table.CanonicalLayout,
//  4. drops rows identical to an earlier row.
//
// A column that is entirely missing stays missing. Clean is idempotent.
type Clean struct {
	// IndexColumn names the column created from a time index. Default "date".
	IndexColumn string

	// SkipFill and SkipDedup turn off steps 2 and 4.
	SkipFill  bool
	SkipDedup bool
}

func (Clean) Name() string { return "clean" }

func (c Clean) Apply(ctx context.Context, in table.Table) (table.Table, error) {
	log := logging.FromContext(ctx)
	out := in.Clone()

	if out.Index != nil {
		out = liftIndexColumn(out, c.indexName(out))
	}

	if !c.SkipFill {
		for i := range out.Columns {
			FillMissing(&out.Columns[i])
		}
	}

	for i, col := range out.Columns {
		if col.Type != table.DateTime {
			continue
		}
		canon, err := toDateTime(col, table.CanonicalLayout)
		if err != nil {
			if !errors.Is(err, table.ErrTypeCoercion) {
				return table.Table{}, err
			}
			log.Warn("clean: datetime column degraded to text", "column", col.Name, "error", err)
			out.Columns[i] = asText(col)
			continue
		}
		out.Columns[i] = canon
	}

	if !c.SkipDedup {
		var dropped int
		out, dropped = DedupRows(out)
		if dropped > 0 {
			log.Info("clean: dropped duplicate rows", "dropped", dropped, "rows", out.Rows())
		}
	}
	return out, nil
}

func (c Clean) indexName(t table.Table) string {
	name := c.IndexColumn
	if name == "" {
		name = "date"
	}
	if _, taken := t.Column(name); taken {
		return "index_" + name
	}
	return name
}

// liftIndexColumn prepends the time index as a DateTime column and clears it.
func liftIndexColumn(t table.Table, name string) table.Table {
	col := table.Column{
		Name:    name,
		Type:    table.DateTime,
		Strings: indexStrings(t.Index),
		Null:    make([]bool, len(t.Index)),
	}
	t.Columns = append([]table.Column{col}, t.Columns...)
	t.Index = nil
	return t
}

// FillMissing forward-fills nulls from the previous present value, then
// back-fills any leading nulls from the first present value. A column with no
// present values is left untouched.
func FillMissing(c *table.Column) {
	n := c.Len()
	first := -1
	last := -1
	for i := 0; i < n; i++ {
		if !c.Null[i] {
			if first < 0 {
				first = i
			}
			last = i
			continue
		}
		if last >= 0 {
			copySlot(c, i, last)
		}
	}
	for i := 0; i < first; i++ {
		copySlot(c, i, first)
	}
}

// copySlot copies entry src into dst and marks dst present.
func copySlot(c *table.Column, dst, src int) {
	switch c.Type {
	case table.Integer, table.Categorical:
		c.Ints[dst] = c.Ints[src]
	case table.Float:
		c.Floats[dst] = c.Floats[src]
	case table.Boolean:
		c.Bools[dst] = c.Bools[src]
	default:
		c.Strings[dst] = c.Strings[src]
	}
	c.Null[dst] = false
}
