// Package sqlite implements the board and auth stores on an embedded SQLite
// database using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/clueboard/internal/auth"
	"github.com/JonMunkholm/clueboard/internal/board"
	"github.com/JonMunkholm/clueboard/internal/store"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// timeLayout is how clue timestamps are kept in TEXT columns.
const timeLayout = time.RFC3339Nano

// DBTX is the subset of *sql.DB and *sql.Tx the queries need.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs statements against a DBTX.
type Queries struct {
	db DBTX
}

// Store is a SQLite-backed board.Store and auth.Store.
type Store struct {
	*Queries
	db *sql.DB
}

var (
	_ board.Store = (*Store)(nil)
	_ auth.Store  = (*Store)(nil)
)

// Open opens (creating if needed) the database file at path and applies
// pending migrations.
func Open(ctx context.Context, path string, busyTimeout time.Duration) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := fmt.Sprintf(
		"%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate",
		path, busyTimeout.Milliseconds(),
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{Queries: &Queries{db: db}, db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InTx runs fn inside a write transaction.
func (s *Store) InTx(ctx context.Context, fn func(q board.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// migrate applies schema migrations based on user_version.
func migrate(ctx context.Context, db *sql.DB) error {
	version, err := userVersion(ctx, db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: initial schema
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS "user" (
		  id       INTEGER PRIMARY KEY AUTOINCREMENT,
		  username TEXT NOT NULL UNIQUE,
		  password TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS clue (
		  id          INTEGER PRIMARY KEY AUTOINCREMENT,
		  title       TEXT NOT NULL CHECK (title <> ''),
		  content     TEXT,
		  image       TEXT,
		  pos_x       REAL NOT NULL DEFAULT 0,
		  pos_y       REAL NOT NULL DEFAULT 0,
		  clue_id     TEXT NOT NULL UNIQUE,
		  "timestamp" TEXT
		);

		CREATE TABLE IF NOT EXISTS connection (
		  id        INTEGER PRIMARY KEY AUTOINCREMENT,
		  source_id INTEGER NOT NULL REFERENCES clue(id),
		  target_id INTEGER NOT NULL REFERENCES clue(id),
		  comment   TEXT,
		  UNIQUE (source_id, target_id)
		);

		CREATE INDEX IF NOT EXISTS idx_connection_target ON connection(target_id);

		CREATE TABLE IF NOT EXISTS session (
		  id         TEXT PRIMARY KEY,
		  user_id    INTEGER NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
		  created_at INTEGER NOT NULL,
		  expires_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_session_user ON session(user_id);
		`
		if _, err := db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := setUserVersion(ctx, db, 1); err != nil {
			return err
		}
	}

	return nil
}

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(ctx context.Context, db *sql.DB, version int) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNoRows
	}
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		}
	}
	return err
}

// affected returns store.ErrNoRows when res touched nothing.
func affected(res sql.Result, err error) error {
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNoRows
	}
	return nil
}
