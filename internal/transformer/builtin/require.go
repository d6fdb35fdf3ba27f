package builtin

import (
	"context"
	"fmt"

	"github.com/VisionKernel/Centerspoke/internal/logging"
	"github.com/VisionKernel/Centerspoke/internal/table"
)

// Require removes any row missing a value in one of Columns. Run it before
// Clean, otherwise forward-fill will have filled the gaps.
type Require struct {
	Columns []string
}

func (Require) Name() string { return "require" }

func (r Require) Apply(ctx context.Context, in table.Table) (table.Table, error) {
	cols := make([]table.Column, 0, len(r.Columns))
	for _, name := range r.Columns {
		c, ok := in.Column(table.NormalizeName(name))
		if !ok {
			return table.Table{}, fmt.Errorf("require: column %q not found", name)
		}
		cols = append(cols, c)
	}

	n := in.Rows()
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ok := true
		for _, c := range cols {
			if c.IsNull(i) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}
	if len(keep) == n {
		return in.Clone(), nil
	}

	logging.FromContext(ctx).Info("require: dropped rows", "dropped", n-len(keep), "columns", r.Columns)
	return in.TakeRows(keep), nil
}
