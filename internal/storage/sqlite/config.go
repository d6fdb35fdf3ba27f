// Package sqlite implements a SQLite-backed storage.Repository on the pure-Go
// modernc.org/sqlite driver. It serves local runs, dry runs against a file,
// and the integration tests of the other packages.
package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:centerspoke.db?cache=shared"
	//   "centerspoke.db"
	//   ":memory:"
	DSN string

	// Table is the target table for CopyFrom. "main.prices" is accepted.
	Table string

	Columns   []string
	BatchSize int
}
