package ddl

import "github.com/VisionKernel/Centerspoke/internal/table"

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., INT, FLOAT, VARCHAR(255))
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., 'anon', CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name and an ordered list of columns. The FQN may be
// dotted ("schema.table"); each part is quoted separately when needed.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// StandardTypes is the fixed semantic-type to SQL-type table. Types missing
// from the map render as FallbackType.
var StandardTypes = map[table.Type]string{
	table.Integer:  "INT",
	table.Float:    "FLOAT",
	table.DateTime: "DATETIME",
	table.Boolean:  "BOOLEAN",
}

// FallbackType is used for Text, Categorical and anything unmapped.
const FallbackType = "VARCHAR(255)"

// Statement is everything a repository needs to create and fill one table.
type Statement struct {
	Table     string
	Columns   []string
	CreateSQL string
	InsertSQL string
	Rows      [][]any
}
