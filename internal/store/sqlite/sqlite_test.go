package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/clueboard/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), path, 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Backend {
		return openTest(t, filepath.Join(t.TempDir(), "board.db"))
	})
}

func TestOpen_SetsSchemaVersionAndPragmas(t *testing.T) {
	s := openTest(t, filepath.Join(t.TempDir(), "nested", "board.db"))
	ctx := context.Background()

	version, err := userVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	var journal string
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&journal))
	assert.Equal(t, "wal", journal)

	var fk int
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA foreign_keys;").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.db")
	first, err := Open(context.Background(), path, 0)
	require.NoError(t, err)
	_, err = first.CreateUser(context.Background(), "admin", "hash")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := openTest(t, path)
	u, err := second.GetUserByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, "hash", u.PasswordHash)
}
