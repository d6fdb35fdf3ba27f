package ddl

import (
	"fmt"
	"strconv"

	"github.com/VisionKernel/Centerspoke/internal/table"
)

// Rows binds every row of t to driver values in column order. Missing cells
// are nil. DateTime cells become UTC time.Time values and Categorical cells
// their code as a decimal string, matching the VARCHAR column they land in.
func Rows(t table.Table) ([][]any, error) {
	n := t.Rows()
	out := make([][]any, n)
	backing := make([]any, n*len(t.Columns))
	for r := 0; r < n; r++ {
		out[r] = backing[r*len(t.Columns) : (r+1)*len(t.Columns) : (r+1)*len(t.Columns)]
	}
	for j, c := range t.Columns {
		for r := 0; r < n; r++ {
			v, err := bind(c, r)
			if err != nil {
				return nil, err
			}
			out[r][j] = v
		}
	}
	return out, nil
}

func bind(c table.Column, i int) (any, error) {
	if c.IsNull(i) {
		return nil, nil
	}
	switch c.Type {
	case table.DateTime:
		ts, ok := table.ParseTime(c.Strings[i])
		if !ok {
			return nil, fmt.Errorf("ddl: column %s row %d: %q: %w", c.Name, i, c.Strings[i], table.ErrTypeCoercion)
		}
		return ts.UTC(), nil
	case table.Categorical:
		return strconv.FormatInt(c.Ints[i], 10), nil
	default:
		return c.Value(i), nil
	}
}
