package table

import "errors"

var (
	// ErrUnsupportedFormat is returned by the loader for a file extension it
	// cannot read.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrTypeCoercion marks a column whose values could not be converted to
	// the target type. It is recovered per column by falling back to Text.
	ErrTypeCoercion = errors.New("type coercion failed")

	// ErrEmptyColumnCardinality is the distinct/row ratio of a zero-row
	// column. It is recovered by leaving the column as Text.
	ErrEmptyColumnCardinality = errors.New("cardinality of empty column")

	// ErrDownstreamWrite wraps any failure reported by the database
	// collaborator while creating or filling a table.
	ErrDownstreamWrite = errors.New("downstream write failed")
)
