package postgres

import (
	"context"
	"time"

	"github.com/JonMunkholm/clueboard/internal/auth"
)

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (auth.User, error) {
	var u auth.User
	err := q.db.QueryRow(ctx,
		`SELECT id, username, password FROM "user" WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		return auth.User{}, translate(err)
	}
	return u, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (auth.User, error) {
	var u auth.User
	err := q.db.QueryRow(ctx,
		`SELECT id, username, password FROM "user" WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		return auth.User{}, translate(err)
	}
	return u, nil
}

func (q *Queries) CreateUser(ctx context.Context, username, passwordHash string) (auth.User, error) {
	u := auth.User{Username: username, PasswordHash: passwordHash}
	err := q.db.QueryRow(ctx,
		`INSERT INTO "user" (username, password) VALUES ($1, $2) RETURNING id`,
		username, passwordHash,
	).Scan(&u.ID)
	if err != nil {
		return auth.User{}, translate(err)
	}
	return u, nil
}

func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	return affected(q.db.Exec(ctx, `UPDATE "user" SET password = $1 WHERE id = $2`, passwordHash, id))
}

func (q *Queries) CreateSession(ctx context.Context, s auth.Session) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO session (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.UserID, s.CreatedAt, s.ExpiresAt,
	)
	return translate(err)
}

func (q *Queries) GetSession(ctx context.Context, id string) (auth.Session, error) {
	var s auth.Session
	err := q.db.QueryRow(ctx,
		`SELECT id, user_id, created_at, expires_at FROM session WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return auth.Session{}, translate(err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	return s, nil
}

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	return affected(q.db.Exec(ctx, `DELETE FROM session WHERE id = $1`, id))
}

func (q *Queries) DeleteUserSessions(ctx context.Context, userID int64) (int64, error) {
	return rowsAffected(q.db.Exec(ctx, `DELETE FROM session WHERE user_id = $1`, userID))
}

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(q.db.Exec(ctx, `DELETE FROM session WHERE expires_at <= $1`, now))
}
