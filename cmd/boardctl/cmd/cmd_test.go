package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/clueboard/internal/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	err := root.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(dir, "board.db"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func TestImportListExport(t *testing.T) {
	dir := setupEnv(t)

	src := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(src, []byte(`{
		"clues": [{"id": 1, "title": "Map"}, {"id": 2, "title": "Key", "pos_x": 3}],
		"connections": [{"source_id": 1, "target_id": 2, "comment": "opens"}]
	}`), 0o644))

	out, err := run(t, "", "import", src)
	require.NoError(t, err)
	assert.Equal(t, "imported 2 clues (0 skipped), 1 connections (0 skipped)\n", out)

	out, err = run(t, "", "clues")
	require.NoError(t, err)
	assert.Contains(t, out, "Map")
	assert.Contains(t, out, "Key")

	out, err = run(t, "", "connections")
	require.NoError(t, err)
	assert.Contains(t, out, "opens")

	dst := filepath.Join(dir, "out.json")
	out, err = run(t, "", "export", "-o", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 2 clues and 1 connections")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	var doc board.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Clues, 2)
	assert.Equal(t, "opens", *doc.Connections[0].Comment)
}

func TestReset(t *testing.T) {
	dir := setupEnv(t)
	src := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"clues": [{"title": "A"}], "connections": []}`), 0o644))
	_, err := run(t, "", "import", src)
	require.NoError(t, err)

	_, err = run(t, "", "reset")
	assert.ErrorContains(t, err, "--yes")

	out, err := run(t, "", "reset", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "removed 1 clues and 0 connections\n", out)
}

func TestPasswd(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "n3w-secret\n", "passwd", "admin")
	require.NoError(t, err)
	assert.Equal(t, "password changed for admin\n", out)

	_, err = run(t, "x\n", "passwd", "nobody")
	assert.Error(t, err)

	_, err = run(t, "", "passwd", "admin")
	assert.ErrorContains(t, err, "no password")
}

func TestEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOG_LEVEL", "error")
	t.Cleanup(func() { os.Unsetenv("DATABASE_URL") })
	env := filepath.Join(dir, "board.env")
	require.NoError(t, os.WriteFile(env, []byte("DATABASE_URL="+filepath.Join(dir, "env.db")+"\n"), 0o644))

	_, err := run(t, "", "--env-file", env, "clues")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "env.db"))
	assert.NoError(t, err)
}
