package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/VisionKernel/Centerspoke/internal/table"
)

const utf8BOM = "\uFEFF"

// ctxCheckEvery is how many records are read between cancellation checks.
const ctxCheckEvery = 4096

// readDelimited reads a header row and all data rows from r.
func readDelimited(ctx context.Context, r io.Reader, comma rune, encoding string) (table.Table, error) {
	r, err := decodeText(r, encoding)
	if err != nil {
		return table.Table{}, err
	}

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return table.Table{}, fmt.Errorf("empty file: no header row")
		}
		return table.Table{}, fmt.Errorf("read header: %w", err)
	}
	header = stripHeaderBOM(header)

	var rows [][]string
	for line := 2; ; line++ {
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return table.Table{}, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return table.Table{}, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, rec)
	}
	return fromRows(header, rows), nil
}

// decodeText wraps r with a decoder for the named encoding. Empty and UTF-8
// labels return r unchanged.
func decodeText(r io.Reader, label string) (io.Reader, error) {
	label = strings.TrimSpace(label)
	switch strings.ToLower(label) {
	case "", "utf-8", "utf8":
		return r, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w", label, err)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// stripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
func stripHeaderBOM(headers []string) []string {
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}
	return headers
}
