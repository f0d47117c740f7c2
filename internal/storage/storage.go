// Package storage implements durable client storage on SQLite.
//
// Entries live in named scopes. The "local" scope never expires; the "cookie"
// scope carries an expiry and expired entries read as absent. Multi-entry
// writes and deletes run in one transaction, so keys written together are
// observed together.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	// modernc.org/sqlite registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

// Scope names a storage area.
type Scope string

const (
	// Local is persistent storage without expiry.
	Local Scope = "local"

	// Cookie is expiring storage, read by the route guard.
	Cookie Scope = "cookie"
)

// Entry is a single key/value in a scope.
// A zero Expires means the entry never expires.
type Entry struct {
	Scope   Scope
	Key     string
	Value   string
	Expires time.Time
}

// Key identifies an entry.
type Key struct {
	Scope Scope
	Name  string
}

// Store is a SQLite-backed key/value store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	// The database holds credentials.
	_ = os.Chmod(path, 0600)
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock replaces the clock used for expiry (for testing).
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS entries (
			scope TEXT NOT NULL,
			k TEXT NOT NULL,
			v TEXT NOT NULL,
			expires_unixms INTEGER,
			PRIMARY KEY(scope, k)
		);`,
	}
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	_, err := s.ensureMetaUUID(ctx, "install_id")
	return err
}

// InstallID returns a random id generated when the database was created.
func (s *Store) InstallID(ctx context.Context) (string, error) {
	return s.ensureMetaUUID(ctx, "install_id")
}

func (s *Store) ensureMetaUUID(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = ?`, key).Scan(&v)
	if err == nil && strings.TrimSpace(v) != "" {
		return v, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	v = uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO meta(k, v) VALUES(?, ?)`, key, v); err != nil {
		return "", err
	}
	return v, nil
}

// Get returns the value of key in scope. Expired entries are reported absent.
func (s *Store) Get(ctx context.Context, scope Scope, key string) (string, bool, error) {
	var (
		v       string
		expires sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT v, expires_unixms FROM entries WHERE scope = ? AND k = ?`,
		string(scope), key,
	).Scan(&v, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if expires.Valid && expires.Int64 <= s.now().UnixMilli() {
		return "", false, nil
	}
	return v, true, nil
}

// Put writes all entries in one transaction.
func (s *Store) Put(ctx context.Context, entries ...Entry) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			var expires sql.NullInt64
			if !e.Expires.IsZero() {
				expires = sql.NullInt64{Int64: e.Expires.UnixMilli(), Valid: true}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO entries(scope, k, v, expires_unixms) VALUES(?, ?, ?, ?)`,
				string(e.Scope), e.Key, e.Value, expires,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes all keys in one transaction. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...Key) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM entries WHERE scope = ? AND k = ?`,
				string(k.Scope), k.Name,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
