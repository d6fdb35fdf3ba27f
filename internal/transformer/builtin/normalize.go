package builtin

import (
	"context"
	"strings"

	"github.com/VisionKernel/Centerspoke/internal/table"
)

// Normalize trims whitespace (including non-breaking spaces left behind by
// spreadsheet exports) from Text cells. Cells that become empty turn null.
type Normalize struct{}

func (Normalize) Name() string { return "normalize" }

func (Normalize) Apply(_ context.Context, in table.Table) (table.Table, error) {
	out := in.Clone()
	for k := range out.Columns {
		c := &out.Columns[k]
		if c.Type != table.Text {
			continue
		}
		for i, s := range c.Strings {
			if c.Null[i] {
				continue
			}
			s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
			c.Strings[i] = s
			if s == "" {
				c.Null[i] = true
			}
		}
	}
	return out, nil
}
