package board

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/clueboard/internal/apperr"
	"github.com/JonMunkholm/clueboard/internal/logging"
	"github.com/JonMunkholm/clueboard/internal/sanitize"
)

// ClueInput is the body of a create request. Nil text fields are stored as
// NULL.
type ClueInput struct {
	Title     string   `json:"title" validate:"required"`
	Content   *string  `json:"content"`
	Image     *string  `json:"image"`
	PosX      *float64 `json:"pos_x"`
	PosY      *float64 `json:"pos_y"`
	Timestamp *string  `json:"timestamp"`
}

// CluePatch is the body of a partial update.
type CluePatch struct {
	Title     Optional[string]  `json:"title"`
	Content   Optional[string]  `json:"content"`
	Image     Optional[string]  `json:"image"`
	PosX      Optional[float64] `json:"pos_x"`
	PosY      Optional[float64] `json:"pos_y"`
	Timestamp Optional[string]  `json:"timestamp"`
}

// Created identifies a newly inserted clue.
type Created struct {
	ID     int64  `json:"id"`
	ClueID string `json:"clue_id"`
}

// ListClues returns every clue ordered by id.
func (s *Service) ListClues(ctx context.Context) ([]Clue, error) {
	clues, err := s.store.ListClues(ctx)
	if err != nil {
		return nil, internal(fmt.Errorf("list clues: %w", err))
	}
	return clues, nil
}

// GetClue returns one clue.
func (s *Service) GetClue(ctx context.Context, id int64) (Clue, error) {
	c, err := s.store.GetClue(ctx, id)
	if err != nil {
		return Clue{}, notFound(err, "clue", id)
	}
	return c, nil
}

// CreateClue sanitizes in and inserts it under a fresh clue_id.
func (s *Service) CreateClue(ctx context.Context, in ClueInput) (Created, error) {
	title := sanitize.String(in.Title)
	if title == "" {
		return Created{}, apperr.Validation("title is required")
	}

	nc := NewClue{
		Title:   title,
		Content: sanitize.Text(in.Content),
		Image:   sanitize.Text(in.Image),
		ClueID:  s.newID(),
	}
	if in.PosX != nil {
		nc.PosX = *in.PosX
	}
	if in.PosY != nil {
		nc.PosY = *in.PosY
	}
	if in.Timestamp != nil && *in.Timestamp != "" {
		ts, err := ParseTimestamp(*in.Timestamp)
		if err != nil {
			return Created{}, apperr.Validation(err.Error())
		}
		nc.Timestamp = &ts
	}

	c, err := s.store.InsertClue(ctx, nc)
	if err != nil {
		return Created{}, internal(fmt.Errorf("insert clue: %w", err))
	}
	s.metrics.ClueCreated(1)

	logging.FromContext(ctx).Debug("clue created", "id", c.ID, "clue_id", c.ClueID)
	return Created{ID: c.ID, ClueID: c.ClueID}, nil
}

// UpdateClue applies p to clue id. Absent fields are left alone; null clears
// content, image or timestamp.
func (s *Service) UpdateClue(ctx context.Context, id int64, p CluePatch) (Clue, error) {
	var updated Clue
	err := s.store.InTx(ctx, func(q Queries) error {
		c, err := q.GetClue(ctx, id)
		if err != nil {
			return notFound(err, "clue", id)
		}

		if p.Title.Set {
			title := ""
			if !p.Title.Null {
				title = sanitize.String(p.Title.Value)
			}
			if title == "" {
				return apperr.Validation("title cannot be empty")
			}
			c.Title = title
		}
		if p.Content.Set {
			c.Content = sanitize.Text(p.Content.Ptr())
		}
		if p.Image.Set {
			c.Image = sanitize.Text(p.Image.Ptr())
		}
		if p.PosX.Set && !p.PosX.Null {
			c.PosX = p.PosX.Value
		}
		if p.PosY.Set && !p.PosY.Null {
			c.PosY = p.PosY.Value
		}
		if p.Timestamp.Set {
			ts, err := optionalTimestamp(p.Timestamp)
			if err != nil {
				return err
			}
			c.Timestamp = ts
		}

		if err := q.UpdateClue(ctx, c); err != nil {
			return notFound(err, "clue", id)
		}
		updated = c
		return nil
	})
	if err != nil {
		return Clue{}, internal(err)
	}
	return updated, nil
}

// optionalTimestamp maps null and "" to nil and parses anything else.
func optionalTimestamp(o Optional[string]) (*time.Time, error) {
	if o.Null || o.Value == "" {
		return nil, nil
	}
	ts, err := ParseTimestamp(o.Value)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	return &ts, nil
}

// DeleteClue removes clue id and every connection that starts or ends at it
// in one transaction. It returns the number of connections removed.
func (s *Service) DeleteClue(ctx context.Context, id int64) (int64, error) {
	var cascaded int64
	err := s.store.InTx(ctx, func(q Queries) error {
		if _, err := q.GetClue(ctx, id); err != nil {
			return notFound(err, "clue", id)
		}

		n, err := q.DeleteConnectionsForClue(ctx, id)
		if err != nil {
			return fmt.Errorf("delete connections for clue %d: %w", id, err)
		}
		if err := q.DeleteClue(ctx, id); err != nil {
			return notFound(err, "clue", id)
		}
		cascaded = n
		return nil
	})
	if err != nil {
		return 0, internal(err)
	}

	s.metrics.ClueDeleted(cascaded)
	logging.FromContext(ctx).Info("clue deleted", "id", id, "connections_removed", cascaded)
	return cascaded, nil
}
