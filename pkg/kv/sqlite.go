package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteBackend stores entries in a single table of a local SQLite file.
type SQLiteBackend struct {
	db    *sql.DB
	quota int64
}

// NewSQLiteBackend opens (creating if needed) the database at dbPath.
func NewSQLiteBackend(dbPath string, quota int64) (*SQLiteBackend, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps writes serialized like a browser origin.
	db.SetMaxOpenConns(1)

	s := &SQLiteBackend{db: db, quota: quota}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

var _ Backend = (*SQLiteBackend)(nil)

// DB exposes the underlying handle so the caller can close it.
func (s *SQLiteBackend) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

func (s *SQLiteBackend) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS kv_entries (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`)
	return err
}

// Get returns the value stored under key.
func (s *SQLiteBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value under key, enforcing the quota first.
func (s *SQLiteBackend) Set(ctx context.Context, key, value string) error {
	if s.quota > 0 {
		var used int64
		err := s.db.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(LENGTH(CAST(key AS BLOB)) + LENGTH(CAST(value AS BLOB))), 0)
			FROM kv_entries WHERE key <> ?
		`, key).Scan(&used)
		if err != nil {
			return fmt.Errorf("measure usage: %w", err)
		}
		if used+entrySize(key, value) > s.quota {
			return ErrQuotaExceeded
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", key, err)
	}
	return nil
}

// Remove deletes key if present.
func (s *SQLiteBackend) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Keys lists every stored key.
func (s *SQLiteBackend) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv_entries ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
