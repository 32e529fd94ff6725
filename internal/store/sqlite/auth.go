package sqlite

import (
	"context"
	"time"

	"github.com/JonMunkholm/clueboard/internal/auth"
)

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (auth.User, error) {
	var u auth.User
	err := q.db.QueryRowContext(ctx,
		`SELECT id, username, password FROM "user" WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		return auth.User{}, translate(err)
	}
	return u, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (auth.User, error) {
	var u auth.User
	err := q.db.QueryRowContext(ctx,
		`SELECT id, username, password FROM "user" WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		return auth.User{}, translate(err)
	}
	return u, nil
}

func (q *Queries) CreateUser(ctx context.Context, username, passwordHash string) (auth.User, error) {
	u := auth.User{Username: username, PasswordHash: passwordHash}
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO "user" (username, password) VALUES (?, ?) RETURNING id`,
		username, passwordHash,
	).Scan(&u.ID)
	if err != nil {
		return auth.User{}, translate(err)
	}
	return u, nil
}

func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	return affected(q.db.ExecContext(ctx, `UPDATE "user" SET password = ? WHERE id = ?`, passwordHash, id))
}

func (q *Queries) CreateSession(ctx context.Context, s auth.Session) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO session (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, s.CreatedAt.Unix(), s.ExpiresAt.Unix(),
	)
	return translate(err)
}

func (q *Queries) GetSession(ctx context.Context, id string) (auth.Session, error) {
	var (
		s                  auth.Session
		created, expiresAt int64
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at FROM session WHERE id = ?`, id,
	).Scan(&s.ID, &s.UserID, &created, &expiresAt)
	if err != nil {
		return auth.Session{}, translate(err)
	}
	s.CreatedAt = time.Unix(created, 0).UTC()
	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return s, nil
}

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	return affected(q.db.ExecContext(ctx, `DELETE FROM session WHERE id = ?`, id))
}

func (q *Queries) DeleteUserSessions(ctx context.Context, userID int64) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx, `DELETE FROM session WHERE user_id = ?`, userID))
}

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(q.db.ExecContext(ctx, `DELETE FROM session WHERE expires_at <= ?`, now.Unix()))
}
