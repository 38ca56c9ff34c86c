// Package sqlite provides a SQLite-backed store.Backend that several processes can share.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/booklyapp/bookly/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store is a key/value backend on a single SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	path   string

	mu sync.Mutex
	// cursor is the highest clock value already reported by Changes.
	cursor int64
	// own records the version of the last write this process made per key.
	own map[string]int64
}

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		path:   path,
		own:    make(map[string]int64),
	}

	// Only writes made after opening are reported as changes.
	if err := db.QueryRow(`SELECT version FROM kv_clock WHERE id = 1`).Scan(&s.cursor); err != nil {
		db.Close()
		return nil, fmt.Errorf("read clock: %w", err)
	}

	if logger != nil {
		logger.Info("SQLite database opened successfully", "path", path)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value stored at key or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value   []byte
		deleted int
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, deleted FROM kv WHERE key = ?`, key).Scan(&value, &deleted)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && deleted != 0) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set writes value at key and advances the clock in one transaction.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.write(ctx, key, value, false)
}

// Delete tombstones key so other processes observe the removal.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.write(ctx, key, nil, true)
}

func (s *Store) write(ctx context.Context, key string, value []byte, deleted bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.ErrWriteFailed.WithCause(err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var version int64
	err = tx.QueryRowContext(ctx, `UPDATE kv_clock SET version = version + 1 WHERE id = 1 RETURNING version`).Scan(&version)
	if err != nil {
		return store.ErrWriteFailed.WithCause(fmt.Errorf("advance clock: %w", err))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, deleted, version, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			deleted = excluded.deleted,
			version = excluded.version,
			updated_at = excluded.updated_at`,
		key, value, boolToInt(deleted), version, formatTime(time.Now()))
	if err != nil {
		return store.ErrWriteFailed.WithCause(fmt.Errorf("upsert %s: %w", key, err))
	}

	if err := tx.Commit(); err != nil {
		return store.ErrWriteFailed.WithCause(err)
	}

	s.mu.Lock()
	s.own[key] = version
	s.mu.Unlock()
	return nil
}

// Keys lists live keys starting with prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE deleted = 0 AND substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
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

// Changes returns keys written by other processes since the previous call.
// This process's own writes are skipped.
func (s *Store) Changes(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT key, version FROM kv WHERE version > ? ORDER BY version`, s.cursor)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var changed []string
	for rows.Next() {
		var (
			key     string
			version int64
		)
		if err := rows.Scan(&key, &version); err != nil {
			return nil, err
		}
		s.cursor = max(s.cursor, version)
		if s.own[key] == version {
			continue
		}
		changed = append(changed, key)
	}
	return changed, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

var (
	_ store.Backend    = (*Store)(nil)
	_ store.ChangeFeed = (*Store)(nil)
)
