// Package admin provides administrative operations for board maintenance.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/clueboard/internal/board"
	"github.com/JonMunkholm/clueboard/internal/logging"
)

// ResetTimeout is the maximum duration for a board reset.
const ResetTimeout = 30 * time.Second

// ResetResult counts what a reset removed.
type ResetResult struct {
	Connections int64
	Clues       int64
}

type resetFn func(ctx context.Context, q board.Queries) error

// ResetBoard removes every connection and clue in one transaction.
// This is a destructive operation - use with caution.
func ResetBoard(ctx context.Context, st board.Store) (ResetResult, error) {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	var res ResetResult
	err := st.InTx(ctx, func(q board.Queries) error {
		return runResets(ctx, q, []resetFn{
			func(ctx context.Context, q board.Queries) (err error) {
				res.Connections, err = q.DeleteAllConnections(ctx)
				return err
			},
			func(ctx context.Context, q board.Queries) (err error) {
				res.Clues, err = q.DeleteAllClues(ctx)
				return err
			},
		})
	})
	if err != nil {
		return ResetResult{}, fmt.Errorf("reset board: %w", err)
	}

	logging.FromContext(ctx).Warn("board reset",
		"clues_removed", res.Clues,
		"connections_removed", res.Connections)
	return res, nil
}

func runResets(ctx context.Context, q board.Queries, resets []resetFn) error {
	for _, reset := range resets {
		if err := reset(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
