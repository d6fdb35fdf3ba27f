package source

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/VisionKernel/Centerspoke/internal/table"
)

// readExcel loads one worksheet. An empty sheet name selects the first sheet
// in the workbook.
//
// Cells are read as displayed, except cells styled with a date or time number
// format, which are read from their serial value and rendered in
// table.CanonicalLayout. A column made only of such cells loads as DateTime.
func readExcel(r io.Reader, sheet string) (table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return table.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return table.Table{}, fmt.Errorf("workbook has no sheets")
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return table.Table{}, fmt.Errorf("sheet %q not found (have %v)", sheet, sheets)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return table.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return table.Table{}, fmt.Errorf("sheet %q is empty: no header row", sheet)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return table.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	dc := newDateCells(f, sheet)
	width := len(rows[0])
	dated := make([]int, width)
	for i := 1; i < len(rows) && i < len(raw); i++ {
		for j := 0; j < len(rows[i]) && j < len(raw[i]) && j < width; j++ {
			if s, ok := dc.convert(i, j, raw[i][j]); ok {
				rows[i][j] = s
				dated[j]++
			}
		}
	}

	t := fromRows(rows[0], rows[1:])
	for j := range t.Columns {
		c := &t.Columns[j]
		if dated[j] > 0 && dated[j] == c.Len()-c.NullCount() {
			c.Type = table.DateTime
		}
	}
	return t, nil
}

// dateCells recognises date-formatted cells of one sheet. Style lookups are
// cached by style index.
type dateCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]bool
}

func newDateCells(f *excelize.File, sheet string) *dateCells {
	dc := &dateCells{f: f, sheet: sheet, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		dc.date1904 = *props.Date1904
	}
	return dc
}

// convert returns the canonical form of the cell at zero-based (row, col)
// when it carries a date number format and a usable value.
func (dc *dateCells) convert(row, col int, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !dc.isDateStyled(row, col) {
		return "", false
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		ts, err := excelize.ExcelDateToTime(serial, dc.date1904)
		if err != nil {
			return "", false
		}
		return ts.Format(table.CanonicalLayout), true
	}
	// ISO 8601 "d" cells keep their text in raw mode.
	if ts, ok := table.ParseTime(raw); ok {
		return ts.Format(table.CanonicalLayout), true
	}
	return "", false
}

func (dc *dateCells) isDateStyled(row, col int) bool {
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return false
	}
	idx, err := dc.f.GetCellStyle(dc.sheet, ref)
	if err != nil || idx == 0 {
		return false
	}
	if v, ok := dc.styles[idx]; ok {
		return v
	}
	v := false
	if style, err := dc.f.GetStyle(idx); err == nil {
		if style.CustomNumFmt != nil {
			v = isDateFormatCode(*style.CustomNumFmt)
		} else {
			v = isDateNumFmt(style.NumFmt)
		}
	}
	dc.styles[idx] = v
	return v
}

// isDateNumFmt reports whether a built-in number format id renders a date or
// time, including the East Asian locale ids.
func isDateNumFmt(id int) bool {
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom format code contains date or
// time tokens outside quoted literals, escapes and bracketed sections.
func isDateFormatCode(code string) bool {
	// Only the first section applies to positive serials.
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	var quoted bool
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case quoted:
			quoted = ch != '"'
		case ch == '"':
			quoted = true
		case ch == '[':
			end := strings.IndexByte(code[i:], ']')
			if end < 0 {
				return false
			}
			// elapsed time such as [h]:mm:ss; colors and locales are skipped
			if inner := code[i+1 : i+end]; inner != "" && strings.Trim(strings.ToLower(inner), "hms") == "" {
				return true
			}
			i += end
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		default:
			switch ch {
			case 'y', 'Y', 'm', 'M', 'd', 'D', 'h', 'H', 's', 'S':
				return true
			}
		}
	}
	return false
}
