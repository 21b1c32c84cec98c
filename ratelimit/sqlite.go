// SQLite quota store.
//
// Information Hiding:
// - SQLite connection management hidden behind QuotaStore
// - Schema details encapsulated
// - Upsert serialized by SQLite's write lock

package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps quota counts in a SQLite database so they survive
// restarts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates a database at path.
// Creates parent directories if they don't exist.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite quota store requires a path")
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newSQLiteStore(db)
}

// NewSQLiteInMemory creates an in-memory store (useful for testing).
func NewSQLiteInMemory() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newSQLiteStore(db)
}

func newSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS quota_counts (
			client_key   TEXT NOT NULL,
			window_start INTEGER NOT NULL,
			count        INTEGER NOT NULL,
			PRIMARY KEY (client_key, window_start)
		);
		CREATE INDEX IF NOT EXISTS idx_quota_window ON quota_counts(window_start);
	`)
	return err
}

// Increment implements QuotaStore.
func (s *SQLiteStore) Increment(ctx context.Context, key string, window time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin quota transaction: %w", err)
	}
	defer tx.Rollback()

	start := window.Unix()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM quota_counts WHERE client_key = ? AND window_start < ?`,
		key, start,
	); err != nil {
		return 0, fmt.Errorf("prune quota counts: %w", err)
	}

	var count int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO quota_counts (client_key, window_start, count) VALUES (?, ?, 1)
		 ON CONFLICT(client_key, window_start) DO UPDATE SET count = count + 1
		 RETURNING count`,
		key, start,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment quota count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit quota count: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ QuotaStore = (*SQLiteStore)(nil)
