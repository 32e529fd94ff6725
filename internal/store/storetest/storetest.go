// Package storetest is a conformance suite run against every store backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/clueboard/internal/auth"
	"github.com/JonMunkholm/clueboard/internal/board"
	"github.com/JonMunkholm/clueboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Backend is what a store has to provide.
type Backend interface {
	board.Store
	auth.Store
}

// Run exercises a backend. newBackend must return an empty store.
func Run(t *testing.T, newBackend func(t *testing.T) Backend) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s Backend)
	}{
		{"ClueRoundTrip", testClueRoundTrip},
		{"ClueMissing", testClueMissing},
		{"ListOrderedByID", testListOrderedByID},
		{"UpdateClue", testUpdateClue},
		{"DuplicateClueID", testDuplicateClueID},
		{"ConnectionUniquePair", testConnectionUniquePair},
		{"ConnectionForeignKey", testConnectionForeignKey},
		{"DeleteConnectionsForClue", testDeleteConnectionsForClue},
		{"TxRollback", testTxRollback},
		{"TxCommit", testTxCommit},
		{"Users", testUsers},
		{"Sessions", testSessions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newBackend(t))
		})
	}
}

func ptr[T any](v T) *T { return &v }

func insertClue(t *testing.T, s Backend, title, clueID string) board.Clue {
	t.Helper()
	c, err := s.InsertClue(context.Background(), board.NewClue{Title: title, ClueID: clueID})
	require.NoError(t, err)
	return c
}

func testClueRoundTrip(t *testing.T, s Backend) {
	ctx := context.Background()
	ts := time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC)

	created, err := s.InsertClue(ctx, board.NewClue{
		Title:     "Butler",
		Content:   ptr("<b>seen</b> at 9pm"),
		PosX:      12.5,
		PosY:      -3,
		ClueID:    "c-1",
		Timestamp: &ts,
	})
	require.NoError(t, err)
	assert.Positive(t, created.ID)

	got, err := s.GetClue(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Butler", got.Title)
	require.NotNil(t, got.Content)
	assert.Equal(t, "<b>seen</b> at 9pm", *got.Content)
	assert.Nil(t, got.Image)
	assert.Equal(t, 12.5, got.PosX)
	assert.Equal(t, -3.0, got.PosY)
	assert.Equal(t, "c-1", got.ClueID)
	require.NotNil(t, got.Timestamp)
	assert.True(t, ts.Equal(*got.Timestamp), "timestamp %v != %v", *got.Timestamp, ts)
}

func testClueMissing(t *testing.T, s Backend) {
	ctx := context.Background()

	_, err := s.GetClue(ctx, 4242)
	assert.ErrorIs(t, err, store.ErrNoRows)
	assert.ErrorIs(t, s.DeleteClue(ctx, 4242), store.ErrNoRows)
	assert.ErrorIs(t, s.UpdateClue(ctx, board.Clue{ID: 4242, Title: "x"}), store.ErrNoRows)
	assert.ErrorIs(t, s.DeleteConnection(ctx, 4242), store.ErrNoRows)
	assert.ErrorIs(t, s.UpdateConnectionComment(ctx, 4242, nil), store.ErrNoRows)
}

func testListOrderedByID(t *testing.T, s Backend) {
	ctx := context.Background()
	a := insertClue(t, s, "A", "a")
	b := insertClue(t, s, "B", "b")
	c := insertClue(t, s, "C", "c")

	clues, err := s.ListClues(ctx)
	require.NoError(t, err)
	require.Len(t, clues, 3)
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, []int64{clues[0].ID, clues[1].ID, clues[2].ID})

	empty, err := s.ListConnections(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testUpdateClue(t *testing.T, s Backend) {
	ctx := context.Background()
	c := insertClue(t, s, "Before", "u-1")

	c.Title = "After"
	c.Content = ptr("body")
	c.PosX = 7
	require.NoError(t, s.UpdateClue(ctx, c))

	got, err := s.GetClue(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)
	assert.Equal(t, "body", *got.Content)
	assert.Equal(t, 7.0, got.PosX)
	assert.Equal(t, "u-1", got.ClueID)
}

func testDuplicateClueID(t *testing.T, s Backend) {
	insertClue(t, s, "First", "same")
	_, err := s.InsertClue(context.Background(), board.NewClue{Title: "Second", ClueID: "same"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func testConnectionUniquePair(t *testing.T, s Backend) {
	ctx := context.Background()
	a := insertClue(t, s, "A", "a")
	b := insertClue(t, s, "B", "b")

	conn, err := s.InsertConnection(ctx, board.NewConnection{SourceID: a.ID, TargetID: b.ID, Comment: ptr("knows")})
	require.NoError(t, err)
	assert.Equal(t, "knows", *conn.Comment)

	exists, err := s.ConnectionExists(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.ConnectionExists(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.InsertConnection(ctx, board.NewConnection{SourceID: a.ID, TargetID: b.ID})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = s.InsertConnection(ctx, board.NewConnection{SourceID: b.ID, TargetID: a.ID})
	assert.NoError(t, err)
}

func testConnectionForeignKey(t *testing.T, s Backend) {
	ctx := context.Background()
	a := insertClue(t, s, "A", "a")

	_, err := s.InsertConnection(ctx, board.NewConnection{SourceID: a.ID, TargetID: a.ID + 100})
	require.Error(t, err)

	conns, err := s.ListConnections(ctx)
	require.NoError(t, err)
	assert.Empty(t, conns)
}

func testDeleteConnectionsForClue(t *testing.T, s Backend) {
	ctx := context.Background()
	a := insertClue(t, s, "A", "a")
	b := insertClue(t, s, "B", "b")
	c := insertClue(t, s, "C", "c")
	for _, pair := range [][2]int64{{a.ID, b.ID}, {c.ID, a.ID}, {b.ID, c.ID}} {
		_, err := s.InsertConnection(ctx, board.NewConnection{SourceID: pair[0], TargetID: pair[1]})
		require.NoError(t, err)
	}

	n, err := s.DeleteConnectionsForClue(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	conns, err := s.ListConnections(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, b.ID, conns[0].SourceID)
}

func testTxRollback(t *testing.T, s Backend) {
	ctx := context.Background()
	insertClue(t, s, "Keep", "keep")
	boom := errors.New("boom")

	err := s.InTx(ctx, func(q board.Queries) error {
		if _, err := q.DeleteAllClues(ctx); err != nil {
			return err
		}
		if _, err := q.InsertClue(ctx, board.NewClue{Title: "Temp", ClueID: "temp"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	clues, err := s.ListClues(ctx)
	require.NoError(t, err)
	require.Len(t, clues, 1)
	assert.Equal(t, "Keep", clues[0].Title)
}

func testTxCommit(t *testing.T, s Backend) {
	ctx := context.Background()

	err := s.InTx(ctx, func(q board.Queries) error {
		a, err := q.InsertClue(ctx, board.NewClue{Title: "A", ClueID: "a"})
		if err != nil {
			return err
		}
		_, err = q.InsertConnection(ctx, board.NewConnection{SourceID: a.ID, TargetID: a.ID})
		return err
	})
	require.NoError(t, err)

	conns, err := s.ListConnections(ctx)
	require.NoError(t, err)
	assert.Len(t, conns, 1)
}

func testUsers(t *testing.T, s Backend) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "admin", "hash-1")
	require.NoError(t, err)
	assert.Positive(t, u.ID)

	_, err = s.CreateUser(ctx, "admin", "hash-2")
	assert.ErrorIs(t, err, store.ErrDuplicate)

	require.NoError(t, s.UpdateUserPassword(ctx, u.ID, "hash-3"))
	got, err := s.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "hash-3", got.PasswordHash)

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", byID.Username)

	_, err = s.GetUserByUsername(ctx, "Admin")
	assert.ErrorIs(t, err, store.ErrNoRows)
}

func testSessions(t *testing.T, s Backend) {
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "admin", "hash")
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	live := auth.Session{ID: "live", UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	dead := auth.Session{ID: "dead", UserID: u.ID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, s.CreateSession(ctx, live))
	require.NoError(t, s.CreateSession(ctx, dead))

	got, err := s.GetSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.True(t, live.ExpiresAt.Equal(got.ExpiresAt))

	n, err := s.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = s.GetSession(ctx, "dead")
	assert.ErrorIs(t, err, store.ErrNoRows)

	require.NoError(t, s.DeleteSession(ctx, "live"))
	assert.ErrorIs(t, s.DeleteSession(ctx, "live"), store.ErrNoRows)

	require.NoError(t, s.CreateSession(ctx, auth.Session{ID: "a", UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.CreateSession(ctx, auth.Session{ID: "b", UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	n, err = s.DeleteUserSessions(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
