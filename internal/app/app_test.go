package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/clueboard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.Defaults()
	cfg.Database.URL = filepath.Join(t.TempDir(), "nested", "board.db")
	cfg.Session.Secret = "app-test-secret-0123"

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	require.NoError(t, a.Store.Ping(ctx))
	require.NoError(t, a.EnsureAdmin(ctx))
	require.NoError(t, a.EnsureAdmin(ctx))

	token, _, err := a.Auth.Login(ctx, "admin", "admin")
	require.NoError(t, err)
	u, err := a.Auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Username)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.DatabaseConfig{Driver: "mysql"})
	assert.ErrorContains(t, err, `unknown database driver "mysql"`)
}
