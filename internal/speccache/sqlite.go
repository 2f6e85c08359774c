package speccache

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rlupton/weaver/spec"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a single-file SQLite cache, following the teacher's
// graph/store/sqlite.go: WAL mode for concurrent readers, a single
// writer, auto-migrated schema.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed cache at
// path, or ":memory:" for an ephemeral one.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("speccache: failed to open SQLite connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("speccache: failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("speccache: failed to set busy timeout: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS spec_cache (
			cache_key TEXT NOT NULL PRIMARY KEY,
			spec_json TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("speccache: failed to create spec_cache table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (spec.WeaverSpec, error) {
	var specJSON string
	err := s.db.QueryRowContext(ctx, "SELECT spec_json FROM spec_cache WHERE cache_key = ?", key).Scan(&specJSON)
	if err == sql.ErrNoRows {
		return spec.WeaverSpec{}, ErrNotFound
	}
	if err != nil {
		return spec.WeaverSpec{}, fmt.Errorf("speccache: failed to load %q: %w", key, err)
	}
	return spec.Unmarshal([]byte(specJSON))
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, key string, v spec.WeaverSpec) error {
	data, err := spec.Marshal(v)
	if err != nil {
		return fmt.Errorf("speccache: failed to marshal spec for %q: %w", key, err)
	}
	query := `
		INSERT INTO spec_cache (cache_key, spec_json)
		VALUES (?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET spec_json = excluded.spec_json
	`
	if _, err := s.db.ExecContext(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("speccache: failed to save %q: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
