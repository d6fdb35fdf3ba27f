// Package ddl turns a resolved table into SQL: column definitions, a CREATE
// TABLE statement, a parameterized INSERT and the bound row tuples.
//
// Rendering is dialect-aware but does no I/O; the output is handed verbatim
// to a storage.Repository.
//
//   - Identifiers are quoted only when NeedsQuote reports so.
//   - ColumnDef.Default is emitted as raw SQL.
//   - Column order always matches the input order.
package ddl

import (
	"fmt"
	"strings"

	"github.com/VisionKernel/Centerspoke/internal/table"
)

// FromTable builds the definition for t. Every column is nullable.
func (d Dialect) FromTable(t table.Table) TableDef {
	def := TableDef{FQN: t.Name, Columns: make([]ColumnDef, 0, len(t.Columns))}
	for _, c := range t.Columns {
		def.Columns = append(def.Columns, ColumnDef{
			Name:     c.Name,
			SQLType:  d.SQLType(c.Type),
			Nullable: true,
		})
	}
	return def
}

// BuildCreateTableSQL renders t in the Standard dialect.
func BuildCreateTableSQL(t TableDef) (string, error) {
	return Standard.CreateTable(t)
}

// CreateTable renders a CREATE TABLE statement from a TableDef.
//
// Rules:
//
//   - t.FQN must be non-empty.
//
//   - Each column must have a non-empty Name and SQLType and is rendered as
//
//     <Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
//   - Columns with PrimaryKey == true are collected into a trailing
//     PRIMARY KEY (<col1>, <col2>, ...) clause.
//
// The statement is a single line, e.g.
//
//	CREATE TABLE t (date DATETIME, price FLOAT)
func (d Dialect) CreateTable(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(d.Ident(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.Ident(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	head := "CREATE TABLE "
	if d.IfNotExists && d.Guard == nil {
		head += "IF NOT EXISTS "
	}
	stmt := head + d.QualifiedIdent(fqn) + " (" + strings.Join(cols, ", ") + ")"
	if d.Guard != nil {
		stmt = d.Guard(fqn, stmt)
	}
	return stmt, nil
}

// InsertSQL renders a one-row parameterized INSERT for the given columns.
func (d Dialect) InsertSQL(fqn string, columns []string) (string, error) {
	fqn = strings.TrimSpace(fqn)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}
	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		names[i] = d.Ident(c)
		marks[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QualifiedIdent(fqn), strings.Join(names, ", "), strings.Join(marks, ", ")), nil
}

// Emit builds the full Statement for t.
func (d Dialect) Emit(t table.Table) (Statement, error) {
	if err := t.Validate(); err != nil {
		return Statement{}, err
	}
	def := d.FromTable(t)
	create, err := d.CreateTable(def)
	if err != nil {
		return Statement{}, err
	}
	cols := t.ColumnNames()
	insert, err := d.InsertSQL(t.Name, cols)
	if err != nil {
		return Statement{}, err
	}
	rows, err := Rows(t)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		Table:     t.Name,
		Columns:   cols,
		CreateSQL: create,
		InsertSQL: insert,
		Rows:      rows,
	}, nil
}

// Emit renders t in the Standard dialect.
func Emit(t table.Table) (Statement, error) {
	return Standard.Emit(t)
}
