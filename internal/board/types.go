package board

import (
	"context"
	"encoding/json"
	"time"
)

// Clue is a card on the board.
type Clue struct {
	ID        int64
	Title     string
	Content   *string
	Image     *string
	PosX      float64
	PosY      float64
	ClueID    string
	Timestamp *time.Time
}

// clueJSON is the wire form shared by the listing endpoint and the export
// document.
type clueJSON struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Content   *string `json:"content"`
	Image     *string `json:"image"`
	PosX      float64 `json:"pos_x"`
	PosY      float64 `json:"pos_y"`
	ClueID    string  `json:"clue_id"`
	Timestamp *string `json:"timestamp"`
}

// MarshalJSON renders the timestamp in RFC 3339 (UTC) or null.
func (c Clue) MarshalJSON() ([]byte, error) {
	out := clueJSON{
		ID:      c.ID,
		Title:   c.Title,
		Content: c.Content,
		Image:   c.Image,
		PosX:    c.PosX,
		PosY:    c.PosY,
		ClueID:  c.ClueID,
	}
	if c.Timestamp != nil {
		ts := FormatTimestamp(*c.Timestamp)
		out.Timestamp = &ts
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the form produced by MarshalJSON.
func (c *Clue) UnmarshalJSON(b []byte) error {
	var in clueJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*c = Clue{
		ID:      in.ID,
		Title:   in.Title,
		Content: in.Content,
		Image:   in.Image,
		PosX:    in.PosX,
		PosY:    in.PosY,
		ClueID:  in.ClueID,
	}
	if in.Timestamp != nil && *in.Timestamp != "" {
		ts, err := ParseTimestamp(*in.Timestamp)
		if err != nil {
			return err
		}
		c.Timestamp = &ts
	}
	return nil
}

// Connection is a directed, commented link between two clues.
type Connection struct {
	ID       int64   `json:"id"`
	SourceID int64   `json:"source_id"`
	TargetID int64   `json:"target_id"`
	Comment  *string `json:"comment"`
}

// NewClue holds the columns of a clue about to be inserted.
type NewClue struct {
	Title     string
	Content   *string
	Image     *string
	PosX      float64
	PosY      float64
	ClueID    string
	Timestamp *time.Time
}

// NewConnection holds the columns of a connection about to be inserted.
type NewConnection struct {
	SourceID int64
	TargetID int64
	Comment  *string
}

// Queries is the row-level surface the service needs from a backend.
// Lookups, updates and deletes that match nothing return store.ErrNoRows;
// inserts that hit a unique constraint return store.ErrDuplicate. Listings
// are ordered by id.
type Queries interface {
	ListClues(ctx context.Context) ([]Clue, error)
	GetClue(ctx context.Context, id int64) (Clue, error)
	InsertClue(ctx context.Context, c NewClue) (Clue, error)
	UpdateClue(ctx context.Context, c Clue) error
	DeleteClue(ctx context.Context, id int64) error
	DeleteAllClues(ctx context.Context) (int64, error)

	ListConnections(ctx context.Context) ([]Connection, error)
	GetConnection(ctx context.Context, id int64) (Connection, error)
	ConnectionExists(ctx context.Context, sourceID, targetID int64) (bool, error)
	InsertConnection(ctx context.Context, c NewConnection) (Connection, error)
	UpdateConnectionComment(ctx context.Context, id int64, comment *string) error
	DeleteConnection(ctx context.Context, id int64) error
	DeleteConnectionsForClue(ctx context.Context, clueID int64) (int64, error)
	DeleteAllConnections(ctx context.Context) (int64, error)
}

// Store is a Queries backend that can also run a unit of work atomically.
// InTx commits only when fn returns nil; any error rolls everything back.
type Store interface {
	Queries
	InTx(ctx context.Context, fn func(q Queries) error) error
}
