// Package sqlite keeps scene documents in a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/zeusync/scenekit/internal/core/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the database at path. ":memory:" is accepted.
func New(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "scenes.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS scenes (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create scenes table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Driver() storage.Driver { return storage.DriverSQLite }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = s.db.QueryRowContext(ctx, `SELECT payload FROM scenes WHERE key = ?`, clean).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", clean, err)
	}
	return payload, nil
}

func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scenes(key, payload, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		clean, data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", clean, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return false, err
	}

	var n int
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM scenes WHERE key = ?`, clean).Scan(&n); err != nil {
		return false, fmt.Errorf("count %s: %w", clean, err)
	}
	return n > 0, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM scenes WHERE key = ?`, clean)
	if err != nil {
		return fmt.Errorf("delete %s: %w", clean, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.NotFound(key)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM scenes WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err = rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }
