package admin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/clueboard/internal/board"
	"github.com/JonMunkholm/clueboard/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetBoard(t *testing.T) {
	ctx := context.Background()
	st, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "board.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := board.NewService(st)
	a, err := svc.CreateClue(ctx, board.ClueInput{Title: "a"})
	require.NoError(t, err)
	b, err := svc.CreateClue(ctx, board.ClueInput{Title: "b"})
	require.NoError(t, err)
	_, err = svc.CreateConnection(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)

	res, err := ResetBoard(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, ResetResult{Connections: 1, Clues: 2}, res)

	clues, err := svc.ListClues(ctx)
	require.NoError(t, err)
	assert.Empty(t, clues)
}
