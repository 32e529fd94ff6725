package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JonMunkholm/clueboard/internal/apperr"
	"github.com/JonMunkholm/clueboard/internal/logging"
	"github.com/JonMunkholm/clueboard/internal/sanitize"
	"github.com/JonMunkholm/clueboard/internal/store"
)

// ConnectionInput is the body of a create request. The ids are kept raw so
// that strings and fractions can be rejected instead of coerced.
type ConnectionInput struct {
	SourceID json.RawMessage `json:"source_id" validate:"required"`
	TargetID json.RawMessage `json:"target_id" validate:"required"`
	Comment  *string         `json:"comment"`
}

// IDs returns the endpoint ids, or a VAL002 error when either is not a JSON
// integer.
func (in ConnectionInput) IDs() (source, target int64, err error) {
	source, ok := ParseID(in.SourceID)
	if !ok {
		return 0, 0, apperr.BadIdentifier("source_id must be an integer")
	}
	target, ok = ParseID(in.TargetID)
	if !ok {
		return 0, 0, apperr.BadIdentifier("target_id must be an integer")
	}
	return source, target, nil
}

// ConnectionPatch is the body of a connection update. Only the comment can
// change.
type ConnectionPatch struct {
	Comment Optional[string] `json:"comment"`
}

// ListConnections returns every connection ordered by id.
func (s *Service) ListConnections(ctx context.Context) ([]Connection, error) {
	conns, err := s.store.ListConnections(ctx)
	if err != nil {
		return nil, internal(fmt.Errorf("list connections: %w", err))
	}
	return conns, nil
}

// CreateConnection links source to target. Both clues must exist and the
// ordered pair must be new; the checks and the insert share a transaction.
func (s *Service) CreateConnection(ctx context.Context, source, target int64, comment *string) (Connection, error) {
	var created Connection
	err := s.store.InTx(ctx, func(q Queries) error {
		for _, id := range []int64{source, target} {
			if _, err := q.GetClue(ctx, id); err != nil {
				if errors.Is(err, store.ErrNoRows) {
					return apperr.ReferenceMissing("referenced clue not found")
				}
				return fmt.Errorf("get clue %d: %w", id, err)
			}
		}

		exists, err := q.ConnectionExists(ctx, source, target)
		if err != nil {
			return fmt.Errorf("check connection: %w", err)
		}
		if exists {
			return apperr.Duplicate("connection already exists")
		}

		c, err := q.InsertConnection(ctx, NewConnection{
			SourceID: source,
			TargetID: target,
			Comment:  sanitize.Text(comment),
		})
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Duplicate("connection already exists")
		}
		if err != nil {
			return fmt.Errorf("insert connection: %w", err)
		}
		created = c
		return nil
	})
	if err != nil {
		return Connection{}, internal(err)
	}

	s.metrics.ConnectionCreated(1)
	logging.FromContext(ctx).Debug("connection created", "id", created.ID, "source_id", source, "target_id", target)
	return created, nil
}

// UpdateConnection applies p. An absent comment leaves the row unchanged.
func (s *Service) UpdateConnection(ctx context.Context, id int64, p ConnectionPatch) (Connection, error) {
	var updated Connection
	err := s.store.InTx(ctx, func(q Queries) error {
		c, err := q.GetConnection(ctx, id)
		if err != nil {
			return notFound(err, "connection", id)
		}
		if !p.Comment.Set {
			updated = c
			return nil
		}

		c.Comment = sanitize.Text(p.Comment.Ptr())
		if err := q.UpdateConnectionComment(ctx, id, c.Comment); err != nil {
			return notFound(err, "connection", id)
		}
		updated = c
		return nil
	})
	if err != nil {
		return Connection{}, internal(err)
	}
	return updated, nil
}

// DeleteConnection removes connection id.
func (s *Service) DeleteConnection(ctx context.Context, id int64) error {
	if err := s.store.DeleteConnection(ctx, id); err != nil {
		return notFound(err, "connection", id)
	}
	logging.FromContext(ctx).Debug("connection deleted", "id", id)
	return nil
}
