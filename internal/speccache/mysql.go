package speccache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rlupton/weaver/spec"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a shared cache for production deployments running
// multiple compiler workers, following the teacher's connection-pooling
// conventions in graph/store/mysql.go.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a MySQL/MariaDB-backed cache. dsn uses the
// go-sql-driver/mysql DSN format, e.g.
// "user:pass@tcp(localhost:3306)/weaver?parseTime=true".
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("speccache: failed to open MySQL connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("speccache: failed to ping MySQL: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS spec_cache (
			cache_key VARCHAR(128) NOT NULL PRIMARY KEY,
			spec_json LONGTEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("speccache: failed to create spec_cache table: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

// Get implements Store.
func (s *MySQLStore) Get(ctx context.Context, key string) (spec.WeaverSpec, error) {
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
func (s *MySQLStore) Put(ctx context.Context, key string, v spec.WeaverSpec) error {
	data, err := spec.Marshal(v)
	if err != nil {
		return fmt.Errorf("speccache: failed to marshal spec for %q: %w", key, err)
	}
	query := `
		INSERT INTO spec_cache (cache_key, spec_json)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE spec_json = VALUES(spec_json)
	`
	if _, err := s.db.ExecContext(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("speccache: failed to save %q: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
