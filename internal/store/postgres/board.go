package postgres

import (
	"context"

	"github.com/JonMunkholm/clueboard/internal/board"
	"github.com/jackc/pgx/v5"
)

const clueColumns = `id, title, content, image, pos_x, pos_y, clue_id, "timestamp"`

func scanClue(row pgx.Row) (board.Clue, error) {
	var c board.Clue
	if err := row.Scan(&c.ID, &c.Title, &c.Content, &c.Image, &c.PosX, &c.PosY, &c.ClueID, &c.Timestamp); err != nil {
		return board.Clue{}, err
	}
	if c.Timestamp != nil {
		ts := c.Timestamp.UTC()
		c.Timestamp = &ts
	}
	return c, nil
}

func (q *Queries) ListClues(ctx context.Context) ([]board.Clue, error) {
	rows, err := q.db.Query(ctx, `SELECT `+clueColumns+` FROM clue ORDER BY id`)
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
	c, err := scanClue(q.db.QueryRow(ctx, `SELECT `+clueColumns+` FROM clue WHERE id = $1`, id))
	if err != nil {
		return board.Clue{}, translate(err)
	}
	return c, nil
}

func (q *Queries) InsertClue(ctx context.Context, nc board.NewClue) (board.Clue, error) {
	c, err := scanClue(q.db.QueryRow(ctx, `
		INSERT INTO clue (title, content, image, pos_x, pos_y, clue_id, "timestamp")
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+clueColumns,
		nc.Title, nc.Content, nc.Image, nc.PosX, nc.PosY, nc.ClueID, nc.Timestamp,
	))
	if err != nil {
		return board.Clue{}, translate(err)
	}
	return c, nil
}

func (q *Queries) UpdateClue(ctx context.Context, c board.Clue) error {
	return affected(q.db.Exec(ctx, `
		UPDATE clue
		SET title = $1, content = $2, image = $3, pos_x = $4, pos_y = $5, "timestamp" = $6
		WHERE id = $7`,
		c.Title, c.Content, c.Image, c.PosX, c.PosY, c.Timestamp, c.ID,
	))
}

func (q *Queries) DeleteClue(ctx context.Context, id int64) error {
	return affected(q.db.Exec(ctx, `DELETE FROM clue WHERE id = $1`, id))
}

func (q *Queries) DeleteAllClues(ctx context.Context) (int64, error) {
	return rowsAffected(q.db.Exec(ctx, `DELETE FROM clue`))
}

const connectionColumns = `id, source_id, target_id, comment`

func scanConnection(row pgx.Row) (board.Connection, error) {
	var c board.Connection
	if err := row.Scan(&c.ID, &c.SourceID, &c.TargetID, &c.Comment); err != nil {
		return board.Connection{}, err
	}
	return c, nil
}

func (q *Queries) ListConnections(ctx context.Context) ([]board.Connection, error) {
	rows, err := q.db.Query(ctx, `SELECT `+connectionColumns+` FROM connection ORDER BY id`)
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
	c, err := scanConnection(q.db.QueryRow(ctx, `SELECT `+connectionColumns+` FROM connection WHERE id = $1`, id))
	if err != nil {
		return board.Connection{}, translate(err)
	}
	return c, nil
}

func (q *Queries) ConnectionExists(ctx context.Context, sourceID, targetID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM connection WHERE source_id = $1 AND target_id = $2)`,
		sourceID, targetID,
	).Scan(&exists)
	if err != nil {
		return false, translate(err)
	}
	return exists, nil
}

func (q *Queries) InsertConnection(ctx context.Context, nc board.NewConnection) (board.Connection, error) {
	c, err := scanConnection(q.db.QueryRow(ctx, `
		INSERT INTO connection (source_id, target_id, comment)
		VALUES ($1, $2, $3)
		RETURNING `+connectionColumns,
		nc.SourceID, nc.TargetID, nc.Comment,
	))
	if err != nil {
		return board.Connection{}, translate(err)
	}
	return c, nil
}

func (q *Queries) UpdateConnectionComment(ctx context.Context, id int64, comment *string) error {
	return affected(q.db.Exec(ctx, `UPDATE connection SET comment = $1 WHERE id = $2`, comment, id))
}

func (q *Queries) DeleteConnection(ctx context.Context, id int64) error {
	return affected(q.db.Exec(ctx, `DELETE FROM connection WHERE id = $1`, id))
}

func (q *Queries) DeleteConnectionsForClue(ctx context.Context, clueID int64) (int64, error) {
	return rowsAffected(q.db.Exec(ctx,
		`DELETE FROM connection WHERE source_id = $1 OR target_id = $1`, clueID))
}

func (q *Queries) DeleteAllConnections(ctx context.Context) (int64, error) {
	return rowsAffected(q.db.Exec(ctx, `DELETE FROM connection`))
}
