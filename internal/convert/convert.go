// Package convert writes delimited text files into an Excel workbook, one
// worksheet per input file.
package convert

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/VisionKernel/Centerspoke/internal/logging"
	"github.com/VisionKernel/Centerspoke/internal/source"
	"github.com/VisionKernel/Centerspoke/internal/table"
)

// maxSheetName is Excel's limit on worksheet name length.
const maxSheetName = 31

// Options tune a conversion.
type Options struct {
	// Encoding is a WHATWG label applied to every input. Empty means UTF-8.
	Encoding string
	// Workers bounds concurrent reads. Zero means GOMAXPROCS.
	Workers int
}

// ToExcel reads every input (.csv, .txt or .tsv, optionally compressed) and
// writes outPath with one sheet per input, in argument order. Numeric cells
// are written as numbers; missing values are left empty.
func ToExcel(ctx context.Context, inputs []string, outPath string, opts Options) error {
	if len(inputs) == 0 {
		return fmt.Errorf("convert: no input files")
	}
	for _, in := range inputs {
		if f, _ := source.Detect(in); f != source.FormatCSV && f != source.FormatTSV {
			return fmt.Errorf("convert %s: only .csv and .txt inputs are supported: %w", in, table.ErrUnsupportedFormat)
		}
	}

	tables := make([]table.Table, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			t, err := source.Load(gctx, in, source.Options{Encoding: opts.Encoding})
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with "Sheet1"; the first input takes it over.
	names := SheetNames(inputs)
	if err := f.SetSheetName("Sheet1", names[0]); err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	for i, t := range tables {
		if i > 0 {
			if _, err := f.NewSheet(names[i]); err != nil {
				return fmt.Errorf("convert %s: %w", inputs[i], err)
			}
		}
		if err := writeSheet(f, names[i], t); err != nil {
			return fmt.Errorf("convert %s: %w", inputs[i], err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("convert: save %s: %w", outPath, err)
	}
	logging.FromContext(ctx).Info("convert: workbook written", "path", outPath, "sheets", len(names))
	return nil
}

func writeSheet(f *excelize.File, name string, t table.Table) error {
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return err
	}

	header := make([]any, len(t.Columns))
	for j, c := range t.Columns {
		header[j] = c.Name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	row := make([]any, len(t.Columns))
	for i := 0; i < t.Rows(); i++ {
		for j, c := range t.Columns {
			row[j] = cellValue(c, i)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// cellValue returns nil for a missing entry, an int64 or float64 for numeric
// text, and the text itself otherwise.
func cellValue(c table.Column, i int) any {
	if c.IsNull(i) {
		return nil
	}
	s := c.Text(i)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !strings.ContainsAny(s, "nNiI") {
		return v
	}
	return s
}

// SheetNames derives a unique, Excel-safe worksheet name per input from the
// file base name.
func SheetNames(inputs []string) []string {
	out := make([]string, len(inputs))
	seen := map[string]bool{}
	for i, in := range inputs {
		base := sanitize(source.TableNameFor(in))
		name := truncate(base, maxSheetName)
		for n := 2; seen[strings.ToLower(name)]; n++ {
			suffix := "_" + strconv.Itoa(n)
			name = truncate(base, maxSheetName-len(suffix)) + suffix
		}
		seen[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, s)
	s = strings.Trim(s, "'")
	if s == "" {
		return "sheet"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
