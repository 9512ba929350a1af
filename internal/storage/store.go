// Package storage persists simulation results in SQLite or PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/xtding233/starforce/internal/starforce"
)

// ErrNotFound is returned when no result has the requested id.
var ErrNotFound = errors.New("result not found")

// Config selects the backing database.
type Config struct {
	Driver      DialectType
	SQLitePath  string
	PostgresDSN string
}

// Record is a stored result without its metric columns.
type Record struct {
	starforce.Meta
	Size int
}

// Store wraps the database connection.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the configured database and creates the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, err := NewDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.PostgresDSN
	if cfg.Driver == DialectSQLite {
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		dsn = cfg.SQLitePath
	}

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.DriverName(), err)
	}
	if cfg.Driver == DialectSQLite {
		// one writer keeps WAL and :memory: databases consistent
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.DriverName(), err)
	}
	for _, stmt := range d.InitStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init %q: %w", stmt, err)
		}
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	blob := s.dialect.BlobType()
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			start_level INTEGER NOT NULL,
			end_level INTEGER NOT NULL,
			item_level INTEGER NOT NULL,
			ruleset TEXT NOT NULL,
			seed BIGINT NOT NULL,
			size INTEGER NOT NULL,
			costs ` + blob + ` NOT NULL,
			attempts ` + blob + ` NOT NULL,
			booms ` + blob + ` NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_created_at ON results(created_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// Save stores r and returns its id. A result without an id gets a new UUID,
// which is also written back to r.ID.
func (s *Store) Save(ctx context.Context, r *starforce.ResultSet) (string, error) {
	if r == nil || r.Size() == 0 {
		return "", fmt.Errorf("%w: nothing to save", starforce.ErrInvalidArgument)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	var cols [3][]byte
	for i, m := range starforce.Metrics {
		xs, err := r.Values(m)
		if err != nil {
			return "", err
		}
		cols[i] = encodeColumn(xs)
	}

	q := rebind(s.dialect, `INSERT INTO results
		(id, start_level, end_level, item_level, ruleset, seed, size, costs, attempts, booms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q,
		r.ID, r.Start, r.End, r.ItemLevel, r.Ruleset, int64(r.Seed), r.Size(),
		cols[0], cols[1], cols[2], r.CreatedAt.UnixMilli())
	if err != nil {
		if s.dialect.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: result %s already exists", starforce.ErrInvalidArgument, r.ID)
		}
		return "", fmt.Errorf("save result: %w", err)
	}
	return r.ID, nil
}

// Load reads the result with id.
func (s *Store) Load(ctx context.Context, id string) (*starforce.ResultSet, error) {
	q := rebind(s.dialect, `SELECT id, start_level, end_level, item_level, ruleset, seed, size,
		costs, attempts, booms, created_at FROM results WHERE id = ?`)

	var (
		rec   Record
		seed  int64
		ms    int64
		blobs [3][]byte
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&rec.ID, &rec.Start, &rec.End, &rec.ItemLevel, &rec.Ruleset, &seed, &rec.Size,
		&blobs[0], &blobs[1], &blobs[2], &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load result: %w", err)
	}
	rec.Seed = uint64(seed)
	rec.CreatedAt = time.UnixMilli(ms).UTC()

	var cols [3][]int64
	for i := range blobs {
		if cols[i], err = decodeColumn(blobs[i], rec.Size); err != nil {
			return nil, fmt.Errorf("result %s %v: %w", id, starforce.Metrics[i], err)
		}
	}
	return starforce.NewResultSetFromColumns(rec.Meta, cols[0], cols[1], cols[2])
}

// List returns the newest results first, at most limit of them (0 means all).
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	q := `SELECT id, start_level, end_level, item_level, ruleset, seed, size, created_at
		FROM results ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, rebind(s.dialect, q), args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec  Record
			seed int64
			ms   int64
		)
		if err := rows.Scan(&rec.ID, &rec.Start, &rec.End, &rec.ItemLevel, &rec.Ruleset, &seed, &rec.Size, &ms); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		rec.Seed = uint64(seed)
		rec.CreatedAt = time.UnixMilli(ms).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the result with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, rebind(s.dialect, `DELETE FROM results WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
