package store

import (
	"fmt"
	"strings"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// driverForDSN picks the database/sql driver from the DSN shape. Postgres
// URLs go to pgx; everything else is handed to the sqlite driver as a file
// path (optionally in file: URI form).
func driverForDSN(dsn string) (string, dialect) {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "pgx", dialectPostgres
	}
	return "sqlite3", dialectSQLite
}

// sqliteFilePath strips the file: URI prefix and query options so the
// parent directory can be created before the driver opens the file.
func sqliteFilePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}

// insertIgnore builds the dialect-specific idempotent insert. Both dialects
// use the upsert form with an explicit conflict target: it scopes the no-op
// to the uniqueness constraint, so a NOT NULL violation still errors instead
// of being swallowed the way sqlite's INSERT OR IGNORE would swallow it.
func (s *Store) insertIgnore(table string, cols, conflictCols []string) string {
	placeholders := make([]string, len(cols))
	for i := range cols {
		if s.dialect == dialectPostgres {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		} else {
			placeholders[i] = "?"
		}
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(conflictCols, ", "),
	)
}
