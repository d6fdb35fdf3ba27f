package source

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"

	"github.com/VisionKernel/Centerspoke/internal/table"
)

// readParquet loads a whole Parquet file. Parquet needs random access, so the
// stream is buffered in memory first.
func readParquet(ctx context.Context, r io.Reader) (table.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return table.Table{}, fmt.Errorf("read parquet data: %w", err)
	}
	if len(data) == 0 {
		return table.Table{}, fmt.Errorf("empty parquet file")
	}

	pqReader, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return table.Table{}, fmt.Errorf("parquet reader: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return table.Table{}, fmt.Errorf("arrow reader: %w", err)
	}

	tbl, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return table.Table{}, fmt.Errorf("read table: %w", err)
	}
	defer tbl.Release()

	schema := tbl.Schema()
	header := make([]string, schema.NumFields())
	for i, field := range schema.Fields() {
		header[i] = field.Name
	}
	names := table.UniqueNames(header)

	rows := int(tbl.NumRows())
	cols := make([]table.Column, len(names))
	for j, field := range schema.Fields() {
		typ := table.Text
		if isTemporal(field.Type.ID()) {
			typ = table.DateTime
		}
		cols[j] = table.Column{
			Name:    names[j],
			Type:    typ,
			Strings: make([]string, 0, rows),
			Null:    make([]bool, 0, rows),
		}
	}

	tr := array.NewTableReader(tbl, 0)
	defer tr.Release()
	for tr.Next() {
		rec := tr.Record()
		for j, arr := range rec.Columns() {
			for i := 0; i < arr.Len(); i++ {
				if arr.IsNull(i) {
					cols[j].Strings = append(cols[j].Strings, "")
					cols[j].Null = append(cols[j].Null, true)
					continue
				}
				v := arr.ValueStr(i)
				cols[j].Strings = append(cols[j].Strings, v)
				cols[j].Null = append(cols[j].Null, cols[j].Type == table.Text && IsNullToken(v))
			}
		}
	}
	if err := tr.Err(); err != nil {
		return table.Table{}, fmt.Errorf("read records: %w", err)
	}
	return table.Table{Columns: cols}, nil
}

func isTemporal(id arrow.Type) bool {
	switch id {
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return true
	}
	return false
}
