package pipeline

import (
	"fmt"

	"github.com/VisionKernel/Centerspoke/internal/table"
)

// WriteError reports a failure of the database collaborator. It unwraps to
// both the driver error and table.ErrDownstreamWrite.
type WriteError struct {
	Op    string // "create" or "insert"
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *WriteError) Unwrap() []error {
	return []error{e.Err, table.ErrDownstreamWrite}
}
