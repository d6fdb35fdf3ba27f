package ddl

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/VisionKernel/Centerspoke/internal/table"
)

// Dialect captures the handful of places where target engines disagree:
// type names, identifier quoting, placeholders and create-if-missing syntax.
type Dialect struct {
	Name string

	// Types overrides entries of StandardTypes.
	Types map[table.Type]string

	// Open and Close wrap an identifier that needs quoting. A Close inside
	// the identifier is doubled.
	Open, Close string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	// IfNotExists emits CREATE TABLE IF NOT EXISTS.
	IfNotExists bool

	// Guard, when set, wraps the CREATE TABLE statement instead of
	// IfNotExists. It receives the unquoted FQN.
	Guard func(fqn, stmt string) string
}

func questionMark(int) string { return "?" }

var (
	// Standard is the dialect the emitter uses when no backend is chosen.
	Standard = Dialect{Name: "standard", Open: "`", Close: "`", Placeholder: questionMark}

	MySQL = Dialect{Name: "mysql", Open: "`", Close: "`", Placeholder: questionMark, IfNotExists: true}

	Postgres = Dialect{
		Name:        "postgres",
		Types:       map[table.Type]string{table.DateTime: "TIMESTAMP"},
		Open:        `"`,
		Close:       `"`,
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		IfNotExists: true,
	}

	SQLite = Dialect{Name: "sqlite", Open: `"`, Close: `"`, Placeholder: questionMark, IfNotExists: true}

	MSSQL = Dialect{
		Name:        "mssql",
		Types:       map[table.Type]string{table.Boolean: "BIT"},
		Open:        "[",
		Close:       "]",
		Placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
		Guard: func(fqn, stmt string) string {
			return "IF OBJECT_ID(N'" + strings.ReplaceAll(fqn, "'", "''") + "', N'U') IS NULL " + stmt
		},
	}
)

// SQLType maps a semantic type to this dialect's column type.
func (d Dialect) SQLType(t table.Type) string {
	if s, ok := d.Types[t]; ok {
		return s
	}
	if s, ok := StandardTypes[t]; ok {
		return s
	}
	return FallbackType
}

var reserved = map[string]struct{}{
	"SELECT": {}, "FROM": {}, "WHERE": {}, "TABLE": {}, "ORDER": {}, "GROUP": {},
	"BY": {}, "INSERT": {}, "UPDATE": {}, "DELETE": {}, "INDEX": {}, "KEY": {},
	"PRIMARY": {}, "JOIN": {}, "CREATE": {}, "DROP": {}, "ALTER": {}, "LIMIT": {},
}

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NeedsQuote reports whether name must be quoted: it looks numeric, is not a
// plain identifier, or is a reserved word.
func NeedsQuote(name string) bool {
	if name == "" {
		return true
	}
	if _, err := strconv.ParseFloat(name, 64); err == nil {
		return true
	}
	if !plainIdent.MatchString(name) {
		return true
	}
	_, ok := reserved[strings.ToUpper(name)]
	return ok
}

// Ident quotes name when NeedsQuote says so.
func (d Dialect) Ident(name string) string {
	if !NeedsQuote(name) {
		return name
	}
	open, close := d.Open, d.Close
	if open == "" {
		open, close = `"`, `"`
	}
	return open + strings.ReplaceAll(name, close, close+close) + close
}

// QualifiedIdent quotes each dotted part of fqn separately.
func (d Dialect) QualifiedIdent(fqn string) string {
	parts := strings.Split(fqn, ".")
	for i, p := range parts {
		parts[i] = d.Ident(strings.TrimSpace(p))
	}
	return strings.Join(parts, ".")
}

func (d Dialect) placeholder(n int) string {
	if d.Placeholder == nil {
		return "?"
	}
	return d.Placeholder(n)
}
