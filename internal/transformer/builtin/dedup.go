// Package builtin contains the table stages run by the load pipeline: Clean,
// Resolve, Normalize and Require.
package builtin

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/xxh3"

	"github.com/VisionKernel/Centerspoke/internal/table"
)

// hashFn is the row hash used to bucket duplicate candidates.
var hashFn = func(b []byte) uint64 { return xxh3.Hash(b) }

// DedupRows drops rows that are exactly equal, across every column, to an
// earlier row. Survivors keep their original order. It returns the
// deduplicated table and the number of rows removed.
//
// Rows are bucketed by an xxh3 hash of their encoded cells; a hash hit is
// confirmed with a full comparison before a row is dropped.
func DedupRows(t table.Table) (table.Table, int) {
	n := t.Rows()
	if n < 2 || len(t.Columns) == 0 {
		return t.Clone(), 0
	}

	buckets := make(map[uint64][]int, n)
	keep := make([]int, 0, n)
	var buf []byte

	for i := 0; i < n; i++ {
		buf = encodeRow(buf[:0], t, i)
		h := hashFn(buf)

		dup := false
		for _, j := range buckets[h] {
			if rowsEqual(t, i, j) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		buckets[h] = append(buckets[h], i)
		keep = append(keep, i)
	}

	if len(keep) == n {
		return t.Clone(), 0
	}

	return t.TakeRows(keep), n - len(keep)
}

// encodeRow appends a self-delimiting encoding of row i to buf.
func encodeRow(buf []byte, t table.Table, i int) []byte {
	for _, c := range t.Columns {
		if c.IsNull(i) {
			buf = append(buf, 0)
			continue
		}
		buf = append(buf, 1)
		switch c.Type {
		case table.Integer, table.Categorical:
			buf = binary.LittleEndian.AppendUint64(buf, uint64(c.Ints[i]))
		case table.Float:
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(c.Floats[i]))
		case table.Boolean:
			if c.Bools[i] {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		default:
			buf = binary.AppendUvarint(buf, uint64(len(c.Strings[i])))
			buf = append(buf, c.Strings[i]...)
		}
	}
	return buf
}

// rowsEqual compares rows a and b cell by cell.
func rowsEqual(t table.Table, a, b int) bool {
	for _, c := range t.Columns {
		na, nb := c.IsNull(a), c.IsNull(b)
		if na || nb {
			if na != nb {
				return false
			}
			continue
		}
		switch c.Type {
		case table.Integer, table.Categorical:
			if c.Ints[a] != c.Ints[b] {
				return false
			}
		case table.Float:
			if math.Float64bits(c.Floats[a]) != math.Float64bits(c.Floats[b]) {
				return false
			}
		case table.Boolean:
			if c.Bools[a] != c.Bools[b] {
				return false
			}
		default:
			if c.Strings[a] != c.Strings[b] {
				return false
			}
		}
	}
	return true
}
