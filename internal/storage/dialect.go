package storage

import (
	"fmt"
	"strings"
)

// Dialect abstracts SQL differences between SQLite and PostgreSQL.
type Dialect interface {
	// DriverName returns the driver name for sql.Open().
	DriverName() string

	// Placeholder returns the parameter placeholder for position (1-indexed).
	Placeholder(position int) string

	// BlobType is the column type for packed metric columns.
	BlobType() string

	// InitStatements run once per connection pool before migrations.
	InitStatements() []string

	// IsDuplicateKeyError reports a unique constraint violation.
	IsDuplicateKeyError(err error) bool
}

// DialectType identifies the database dialect.
type DialectType string

const (
	DialectSQLite   DialectType = "sqlite"
	DialectPostgres DialectType = "postgres"
)

// NewDialect creates a Dialect for the given type.
func NewDialect(t DialectType) (Dialect, error) {
	switch t {
	case DialectSQLite:
		return sqliteDialect{}, nil
	case DialectPostgres:
		return postgresDialect{}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", t)
}

// sqliteDialect targets modernc.org/sqlite.
type sqliteDialect struct{}

func (sqliteDialect) DriverName() string { return "sqlite" }
func (sqliteDialect) Placeholder(int) string { return "?" }
func (sqliteDialect) BlobType() string { return "BLOB" }
func (sqliteDialect) InitStatements() []string {
	return []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
}
func (sqliteDialect) IsDuplicateKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// postgresDialect targets github.com/lib/pq.
type postgresDialect struct{}

func (postgresDialect) DriverName() string { return "postgres" }
func (postgresDialect) Placeholder(pos int) string { return fmt.Sprintf("$%d", pos) }
func (postgresDialect) BlobType() string { return "BYTEA" }
func (postgresDialect) InitStatements() []string { return nil }
func (postgresDialect) IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	// 23505 is unique_violation
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "23505")
}

// rebind converts ? placeholders to the dialect's form.
//
//	input:    "SELECT * FROM results WHERE id = ? AND seed = ?"
//	Postgres: "SELECT * FROM results WHERE id = $1 AND seed = $2"
func rebind(d Dialect, query string) string {
	if _, ok := d.(sqliteDialect); ok {
		return query
	}
	var b strings.Builder
	pos := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteString(d.Placeholder(pos))
			pos++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
