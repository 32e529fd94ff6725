// Package postgres implements the board and auth stores on PostgreSQL through
// a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/clueboard/internal/auth"
	"github.com/JonMunkholm/clueboard/internal/board"
	"github.com/JonMunkholm/clueboard/internal/config"
	"github.com/JonMunkholm/clueboard/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs statements against a DBTX.
type Queries struct {
	db DBTX
}

// Store is a PostgreSQL-backed board.Store and auth.Store.
type Store struct {
	*Queries
	pool *pgxpool.Pool
}

var (
	_ board.Store = (*Store)(nil)
	_ auth.Store  = (*Store)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS "user" (
  id       BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS clue (
  id          BIGSERIAL PRIMARY KEY,
  title       TEXT NOT NULL CHECK (title <> ''),
  content     TEXT,
  image       TEXT,
  pos_x       DOUBLE PRECISION NOT NULL DEFAULT 0,
  pos_y       DOUBLE PRECISION NOT NULL DEFAULT 0,
  clue_id     TEXT NOT NULL UNIQUE,
  "timestamp" TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS connection (
  id        BIGSERIAL PRIMARY KEY,
  source_id BIGINT NOT NULL REFERENCES clue(id),
  target_id BIGINT NOT NULL REFERENCES clue(id),
  comment   TEXT,
  UNIQUE (source_id, target_id)
);

CREATE INDEX IF NOT EXISTS idx_connection_target ON connection(target_id);

CREATE TABLE IF NOT EXISTS session (
  id         TEXT PRIMARY KEY,
  user_id    BIGINT NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
  created_at TIMESTAMPTZ NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_user ON session(user_id);
`

// Open connects a pool with the limits from cfg and creates missing tables.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{Queries: &Queries{db: pool}, pool: pool}, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InTx runs fn inside a transaction.
func (s *Store) InTx(ctx context.Context, fn func(q board.Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNoRows
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// affected returns store.ErrNoRows when tag touched nothing.
func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNoRows
	}
	return nil
}

func rowsAffected(tag pgconn.CommandTag, err error) (int64, error) {
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}
