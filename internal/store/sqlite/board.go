package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/JonMunkholm/clueboard/internal/board"
)

const clueColumns = `id, title, content, image, pos_x, pos_y, clue_id, "timestamp"`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClue(row rowScanner) (board.Clue, error) {
	var (
		c  board.Clue
		ts sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Title, &c.Content, &c.Image, &c.PosX, &c.PosY, &c.ClueID, &ts); err != nil {
		return board.Clue{}, err
	}
	if ts.Valid && ts.String != "" {
		t, err := time.Parse(timeLayout, ts.String)
		if err != nil {
			return board.Clue{}, fmt.Errorf("clue %d: parse timestamp: %w", c.ID, err)
		}
		c.Timestamp = &t
	}
	return c, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func (q *Queries) ListClues(ctx context.Context) ([]board.Clue, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+clueColumns+` FROM clue ORDER BY id`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	clues := []board.Clue{}
	for rows.Next() {
		c, err := scanClue(rows)
		if err != nil {
			return nil, err
		}
		clues = append(clues, c)
	}
	return clues, rows.Err()
}

func (q *Queries) GetClue(ctx context.Context, id int64) (board.Clue, error) {
	c, err := scanClue(q.db.QueryRowContext(ctx, `SELECT `+clueColumns+` FROM clue WHERE id = ?`, id))
	if err != nil {
		return board.Clue{}, translate(err)
	}
	return c, nil
}

func (q *Queries) InsertClue(ctx context.Context, nc board.NewClue) (board.Clue, error) {
	c, err := scanClue(q.db.QueryRowContext(ctx, `
		INSERT INTO clue (title, content, image, pos_x, pos_y, clue_id, "timestamp")
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING `+clueColumns,
		nc.Title, nc.Content, nc.Image, nc.PosX, nc.PosY, nc.ClueID, formatTime(nc.Timestamp),
	))
	if err != nil {
		return board.Clue{}, translate(err)
	}
	return c, nil
}

func (q *Queries) UpdateClue(ctx context.Context, c board.Clue) error {
	return affected(q.db.ExecContext(ctx, `
		UPDATE clue
		SET title = ?, content = ?, image = ?, pos_x = ?, pos_y = ?, "timestamp" = ?
		WHERE id = ?`,
		c.Title, c.Content, c.Image, c.PosX, c.PosY, formatTime(c.Timestamp), c.ID,
	))
}

func (q *Queries) DeleteClue(ctx context.Context, id int64) error {
	return affected(q.db.ExecContext(ctx, `DELETE FROM clue WHERE id = ?`, id))
}

func (q *Queries) DeleteAllClues(ctx context.Context) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx, `DELETE FROM clue`))
}

const connectionColumns = `id, source_id, target_id, comment`

func scanConnection(row rowScanner) (board.Connection, error) {
	var c board.Connection
	if err := row.Scan(&c.ID, &c.SourceID, &c.TargetID, &c.Comment); err != nil {
		return board.Connection{}, err
	}
	return c, nil
}

func (q *Queries) ListConnections(ctx context.Context) ([]board.Connection, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+connectionColumns+` FROM connection ORDER BY id`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	conns := []board.Connection{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func (q *Queries) GetConnection(ctx context.Context, id int64) (board.Connection, error) {
	c, err := scanConnection(q.db.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM connection WHERE id = ?`, id))
	if err != nil {
		return board.Connection{}, translate(err)
	}
	return c, nil
}

func (q *Queries) ConnectionExists(ctx context.Context, sourceID, targetID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM connection WHERE source_id = ? AND target_id = ?)`,
		sourceID, targetID,
	).Scan(&exists)
	if err != nil {
		return false, translate(err)
	}
	return exists, nil
}

func (q *Queries) InsertConnection(ctx context.Context, nc board.NewConnection) (board.Connection, error) {
	c, err := scanConnection(q.db.QueryRowContext(ctx, `
		INSERT INTO connection (source_id, target_id, comment)
		VALUES (?, ?, ?)
		RETURNING `+connectionColumns,
		nc.SourceID, nc.TargetID, nc.Comment,
	))
	if err != nil {
		return board.Connection{}, translate(err)
	}
	return c, nil
}

func (q *Queries) UpdateConnectionComment(ctx context.Context, id int64, comment *string) error {
	return affected(q.db.ExecContext(ctx, `UPDATE connection SET comment = ? WHERE id = ?`, comment, id))
}

func (q *Queries) DeleteConnection(ctx context.Context, id int64) error {
	return affected(q.db.ExecContext(ctx, `DELETE FROM connection WHERE id = ?`, id))
}

func (q *Queries) DeleteConnectionsForClue(ctx context.Context, clueID int64) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx,
		`DELETE FROM connection WHERE source_id = ? OR target_id = ?`, clueID, clueID))
}

func (q *Queries) DeleteAllConnections(ctx context.Context) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx, `DELETE FROM connection`))
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}
