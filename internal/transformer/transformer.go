// Package transformer defines the table-to-table stage contract shared by the
// cleaning, type-resolution and indicator steps, and a Chain that runs stages
// in order.
package transformer

import (
	"context"
	"fmt"

	"github.com/VisionKernel/Centerspoke/internal/table"
)

// Transformer turns one table into another. Implementations must not mutate
// their input; they clone and return a new table.
type Transformer interface {
	Name() string
	Apply(ctx context.Context, in table.Table) (table.Table, error)
}

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs each transformer in order, stopping at the first error. The
// error names the failing stage.
func (c Chain) Apply(ctx context.Context, in table.Table) (table.Table, error) {
	out := in
	for _, t := range c {
		if err := ctx.Err(); err != nil {
			return table.Table{}, err
		}
		next, err := t.Apply(ctx, out)
		if err != nil {
			return table.Table{}, fmt.Errorf("transform %s: %w", t.Name(), err)
		}
		out = next
	}
	return out, nil
}

// Names lists the stage names in order.
func (c Chain) Names() []string {
	out := make([]string, len(c))
	for i, t := range c {
		out[i] = t.Name()
	}
	return out
}

// Func adapts a plain function to the Transformer interface.
type Func struct {
	Label string
	Fn    func(ctx context.Context, in table.Table) (table.Table, error)
}

func (f Func) Name() string { return f.Label }

func (f Func) Apply(ctx context.Context, in table.Table) (table.Table, error) {
	return f.Fn(ctx, in)
}
