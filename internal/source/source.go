// Package source is the loader stage: it reads a delimited text file, a
// spreadsheet, or a Parquet file from local disk into a table.Table.
//
// Format is chosen by file extension after any compression suffix has been
// peeled off:
//
//	.csv                         comma-delimited text
//	.txt, .tsv                   tab-delimited text
//	.xlsx .xlsm .xltx .xltm      spreadsheet (one sheet)
//	.parquet                     columnar
//
// Compression suffixes .gz, .bz2, .xz and .zst are decompressed on the fly.
// The first row (or the schema, for Parquet) supplies column names; every
// loaded column is Text except Parquet date/timestamp columns, which arrive
// as DateTime.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/VisionKernel/Centerspoke/internal/table"
)

// Format identifies how a file's bytes are decoded.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatTSV
	FormatExcel
	FormatParquet
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatTSV:
		return "tsv"
	case FormatExcel:
		return "excel"
	case FormatParquet:
		return "parquet"
	default:
		return "unknown"
	}
}

// Options tune a single load. The zero value loads the first sheet of a
// workbook, decodes text as UTF-8, and produces no time index.
type Options struct {
	// Sheet selects the worksheet of a spreadsheet. Empty means the first one.
	Sheet string

	// Encoding is a WHATWG label (e.g. "windows-1252", "utf-16le") for
	// delimited text. Empty means UTF-8.
	Encoding string

	// IndexColumn, if set, names a column (after normalization) that is removed
	// from the table and parsed into Table.Index.
	IndexColumn string

	// TableName overrides the default table name derived from the file name.
	// It is normalized like column names.
	TableName string
}

// nullTokens are cell spellings that load as missing values.
var nullTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"NULL": {},
	"null": {},
	"#N/A": {},
	"None": {},
}

// IsNullToken reports whether a raw cell denotes a missing value.
func IsNullToken(s string) bool {
	_, ok := nullTokens[strings.TrimSpace(s)]
	return ok
}

// Detect returns the file format and compression implied by path.
func Detect(path string) (Format, Compression) {
	base := strings.ToLower(filepath.Base(path))
	comp, base := splitCompression(base)
	switch filepath.Ext(base) {
	case ".csv":
		return FormatCSV, comp
	case ".txt", ".tsv":
		return FormatTSV, comp
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatExcel, comp
	case ".parquet":
		return FormatParquet, comp
	default:
		return FormatUnknown, comp
	}
}

// TableNameFor derives a table name from a path: base name without format and
// compression extensions, normalized.
func TableNameFor(path string) string {
	base := strings.ToLower(filepath.Base(path))
	_, base = splitCompression(base)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	name := table.NormalizeName(strings.NewReplacer("-", "_", ".", "_").Replace(base))
	if name == "" {
		return "data"
	}
	return name
}

// normalizeTableName applies the column naming rules to each part of a
// possibly schema-qualified name, so "Sales.Daily Prices" becomes
// "sales.daily_prices". Empty parts are dropped.
func normalizeTableName(name string) string {
	parts := strings.Split(name, ".")
	out := parts[:0]
	for _, p := range parts {
		if p = table.NormalizeName(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}

// Load reads the file at path into a Table.
//
// Unknown extensions fail with table.ErrUnsupportedFormat before the file is
// opened. I/O and decode failures abort the load.
func Load(ctx context.Context, path string, opts Options) (table.Table, error) {
	format, comp := Detect(path)
	if format == FormatUnknown {
		return table.Table{}, fmt.Errorf("load %s: %w", path, table.ErrUnsupportedFormat)
	}

	rc, err := open(ctx, path)
	if err != nil {
		return table.Table{}, err
	}
	defer rc.Close()

	r, closeFn, err := decompress(rc, comp)
	if err != nil {
		return table.Table{}, fmt.Errorf("load %s: %w", path, err)
	}
	defer func() { _ = closeFn() }()

	var t table.Table
	switch format {
	case FormatCSV:
		t, err = readDelimited(ctx, r, ',', opts.Encoding)
	case FormatTSV:
		t, err = readDelimited(ctx, r, '\t', opts.Encoding)
	case FormatExcel:
		t, err = readExcel(r, opts.Sheet)
	case FormatParquet:
		t, err = readParquet(ctx, r)
	}
	if err != nil {
		return table.Table{}, fmt.Errorf("load %s: %w", path, err)
	}

	t.Name = normalizeTableName(opts.TableName)
	if t.Name == "" {
		t.Name = TableNameFor(path)
	}

	if opts.IndexColumn != "" {
		if t, err = liftIndex(t, opts.IndexColumn); err != nil {
			return table.Table{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return t, nil
}

// open opens path for reading unless ctx is already done.
func open(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	adviseSequential(f)
	return f, nil
}

// fromRows turns a header and raw string rows into a Text table. Rows are
// padded or truncated to the header width and null tokens become missing.
func fromRows(header []string, rows [][]string) table.Table {
	names := table.UniqueNames(header)
	n := len(names)
	cols := make([]table.Column, n)
	for j := range cols {
		cols[j] = table.Column{
			Name:    names[j],
			Type:    table.Text,
			Strings: make([]string, len(rows)),
			Null:    make([]bool, len(rows)),
		}
	}
	for i, row := range rows {
		row = fitRowToWidth(row, n)
		for j, cell := range row {
			if IsNullToken(cell) {
				cols[j].Null[i] = true
				continue
			}
			cols[j].Strings[i] = cell
		}
	}
	return table.Table{Columns: cols}
}

// fitRowToWidth pads short rows with empty cells and truncates long ones.
func fitRowToWidth(row []string, n int) []string {
	if len(row) == n {
		return row
	}
	cp := make([]string, n)
	copy(cp, row)
	return cp
}

// liftIndex removes the named column and stores its parsed values as the
// table's time index. Every value must parse.
func liftIndex(t table.Table, name string) (table.Table, error) {
	want := table.NormalizeName(name)
	pos := -1
	for i, c := range t.Columns {
		if c.Name == want {
			pos = i
			break
		}
	}
	if pos < 0 {
		return t, fmt.Errorf("index column %q not found", name)
	}

	col := t.Columns[pos]
	idx := make([]time.Time, col.Len())
	for i := range idx {
		if col.IsNull(i) {
			return t, fmt.Errorf("index column %q: row %d is empty", name, i+1)
		}
		ts, ok := table.ParseTime(col.Strings[i])
		if !ok {
			return t, fmt.Errorf("index column %q: row %d: cannot parse %q as a timestamp", name, i+1, col.Strings[i])
		}
		idx[i] = ts
	}

	out := table.Table{Name: t.Name, Index: idx}
	out.Columns = append(out.Columns, t.Columns[:pos]...)
	out.Columns = append(out.Columns, t.Columns[pos+1:]...)
	return out, nil
}
