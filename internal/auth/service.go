// Package auth implements the single-administrator login: password
// verification with bcrypt, server-side sessions, and the signed session
// token carried in the cookie.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/JonMunkholm/clueboard/internal/apperr"
	"github.com/JonMunkholm/clueboard/internal/logging"
	"github.com/JonMunkholm/clueboard/internal/sanitize"
	"github.com/JonMunkholm/clueboard/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Issuer is the iss claim of every session token.
const Issuer = "clueboard"

// Service authenticates the administrator and manages sessions.
type Service struct {
	store  Store
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. An empty secret is replaced by a random one,
// which means sessions do not survive a restart.
func NewService(st Store, secret string, ttl time.Duration, opts ...Option) (*Service, error) {
	s := &Service{
		store:  st,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.secret) == 0 {
		s.secret = make([]byte, 32)
		if _, err := rand.Read(s.secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		slog.Warn("SESSION_SECRET not set; using a random secret, sessions end on restart")
	}
	if s.ttl <= 0 {
		s.ttl = 24 * time.Hour
	}
	return s, nil
}

// TTL returns the session lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

func errInvalidCredentials() error {
	return apperr.Unauthenticated(apperr.CodeBadCredentials, "invalid credentials")
}

func errLoginRequired() error {
	return apperr.Unauthenticated(apperr.CodeLoginRequired, "authentication required")
}

// HashPassword hashes password with the service's bcrypt cost.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// EnsureAdmin creates the administrator account when it does not exist yet.
// It reports whether the account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	_, err := s.store.GetUserByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNoRows) {
		return false, fmt.Errorf("look up admin: %w", err)
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return false, err
	}
	if _, err := s.store.CreateUser(ctx, username, hash); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}

	logging.FromContext(ctx).Warn("created administrator account with the initial password; change it with boardctl passwd",
		"username", username)
	return true, nil
}

// Login checks the credentials and opens a session. It returns the signed
// token for the cookie together with the stored session.
func (s *Service) Login(ctx context.Context, username, password string) (string, Session, error) {
	username = sanitize.String(username)
	if username == "" || password == "" {
		return "", Session{}, apperr.Validation("username and password are required")
	}

	logger := logging.FromContext(ctx)
	if n, err := s.store.DeleteExpiredSessions(ctx, s.now()); err != nil {
		logger.Warn("failed to purge expired sessions", "error", err)
	} else if n > 0 {
		logger.Debug("purged expired sessions", "count", n)
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNoRows) {
		// Same bcrypt work as a real check.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		logger.Warn("login failed", "username", username)
		return "", Session{}, errInvalidCredentials()
	}
	if err != nil {
		return "", Session{}, apperr.Internal(fmt.Errorf("look up user: %w", err))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.Warn("login failed", "username", username)
		return "", Session{}, errInvalidCredentials()
	}

	now := s.now().UTC().Truncate(time.Second)
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return "", Session{}, apperr.Internal(fmt.Errorf("create session: %w", err))
	}

	token, err := s.sign(sess)
	if err != nil {
		return "", Session{}, apperr.Internal(err)
	}

	logger.Info("login succeeded", "username", username)
	return token, sess, nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("clueboard-dummy-password"), s.cost)
	})
	return s.dummyHash
}

func (s *Service) sign(sess Session) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   strconv.FormatInt(sess.UserID, 10),
		ID:        sess.ID,
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

func (s *Service) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Authenticate resolves a session token to its user. The token must verify
// and its session row must still exist and be unexpired.
func (s *Service) Authenticate(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, errLoginRequired()
	}
	claims, err := s.parse(token)
	if err != nil {
		logging.FromContext(ctx).Debug("rejected session token", "error", err)
		return User{}, errLoginRequired()
	}

	sess, err := s.store.GetSession(ctx, claims.ID)
	if errors.Is(err, store.ErrNoRows) {
		return User{}, errLoginRequired()
	}
	if err != nil {
		return User{}, apperr.Internal(fmt.Errorf("load session: %w", err))
	}
	if sess.Expired(s.now()) || strconv.FormatInt(sess.UserID, 10) != claims.Subject {
		return User{}, errLoginRequired()
	}

	user, err := s.store.GetUserByID(ctx, sess.UserID)
	if errors.Is(err, store.ErrNoRows) {
		return User{}, errLoginRequired()
	}
	if err != nil {
		return User{}, apperr.Internal(fmt.Errorf("load user: %w", err))
	}
	return user, nil
}

// Logout ends the session behind token. Unknown or invalid tokens are
// ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	if err := s.store.DeleteSession(ctx, claims.ID); err != nil && !errors.Is(err, store.ErrNoRows) {
		return apperr.Internal(fmt.Errorf("delete session: %w", err))
	}
	logging.FromContext(ctx).Info("logged out", "session", claims.ID)
	return nil
}

// ChangePassword sets a new password for username and ends all of its
// sessions.
func (s *Service) ChangePassword(ctx context.Context, username, password string) error {
	if password == "" {
		return apperr.Validation("password is required")
	}
	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNoRows) {
		return apperr.NotFound(fmt.Sprintf("user %q not found", username))
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("look up user: %w", err))
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.store.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return apperr.Internal(fmt.Errorf("update password: %w", err))
	}
	n, err := s.store.DeleteUserSessions(ctx, user.ID)
	if err != nil {
		return apperr.Internal(fmt.Errorf("revoke sessions: %w", err))
	}

	logging.FromContext(ctx).Info("password changed", "username", username, "sessions_revoked", n)
	return nil
}
