package auth

import (
	"context"
	"time"
)

// User is an account that can log in.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
}

// Session is a server-side login record. The session cookie carries its ID.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether s is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists users and sessions. Lookups that match nothing return
// store.ErrNoRows; CreateUser returns store.ErrDuplicate for a taken name.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error

	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID int64) (int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}
