package auth_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/clueboard/internal/apperr"
	"github.com/JonMunkholm/clueboard/internal/auth"
	"github.com/JonMunkholm/clueboard/internal/store/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const secret = "test-secret-0123456789"

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newService(t *testing.T) (*auth.Service, *sqlite.Store, *clock) {
	t.Helper()
	st, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "auth.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := auth.NewService(st, secret, time.Hour,
		auth.WithBcryptCost(bcrypt.MinCost),
		auth.WithClock(clk.Now),
	)
	require.NoError(t, err)

	created, err := svc.EnsureAdmin(context.Background(), "admin", "admin")
	require.NoError(t, err)
	require.True(t, created)
	return svc, st, clk
}

func TestEnsureAdmin_OnlyOnce(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "admin", "other")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := st.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("admin")))
}

func TestLogin(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		code     string
	}{
		{"wrong password", "admin", "nope", apperr.CodeBadCredentials},
		{"unknown user", "root", "admin", apperr.CodeBadCredentials},
		{"case sensitive", "Admin", "admin", apperr.CodeBadCredentials},
		{"missing password", "admin", "", apperr.CodeValidation},
		{"username empty after sanitizing", "<script>x</script>", "admin", apperr.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Login(ctx, tt.username, tt.password)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, tt.code), "got %v", err)
		})
	}

	t.Run("success", func(t *testing.T) {
		token, sess, err := svc.Login(ctx, "admin", "admin")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, time.Hour, sess.ExpiresAt.Sub(sess.CreatedAt))

		user, err := svc.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "admin", user.Username)
	})
}

func TestToken_Claims(t *testing.T) {
	svc, _, _ := newService(t)

	token, sess, err := svc.Login(context.Background(), "admin", "admin")
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	assert.Equal(t, auth.Issuer, claims.Issuer)
	assert.Equal(t, sess.ID, claims.ID)
	assert.Equal(t, "1", claims.Subject)
	assert.True(t, claims.ExpiresAt.Time.Equal(sess.ExpiresAt))
}

func TestAuthenticate_Rejects(t *testing.T) {
	svc, _, clk := newService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "admin", "admin")
	require.NoError(t, err)

	other, err := auth.NewService(nil, "a-different-secret-123", time.Hour)
	require.NoError(t, err)
	_, err = other.Authenticate(ctx, token)
	assert.True(t, apperr.Is(err, apperr.CodeLoginRequired), "wrong secret")

	_, err = svc.Authenticate(ctx, "")
	assert.True(t, apperr.Is(err, apperr.CodeLoginRequired), "empty token")

	_, err = svc.Authenticate(ctx, token+"x")
	assert.True(t, apperr.Is(err, apperr.CodeLoginRequired), "tampered token")

	clk.t = clk.t.Add(2 * time.Hour)
	_, err = svc.Authenticate(ctx, token)
	assert.True(t, apperr.Is(err, apperr.CodeLoginRequired), "expired token")
}

func TestLogout_InvalidatesSession(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "admin", "admin")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.Authenticate(ctx, token)
	assert.True(t, apperr.Is(err, apperr.CodeLoginRequired))

	assert.NoError(t, svc.Logout(ctx, token), "second logout is a no-op")
	assert.NoError(t, svc.Logout(ctx, "garbage"))
}

func TestChangePassword_RevokesSessions(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "admin", "admin")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, "admin", "s3cret"))

	_, err = svc.Authenticate(ctx, token)
	assert.True(t, apperr.Is(err, apperr.CodeLoginRequired))

	_, _, err = svc.Login(ctx, "admin", "admin")
	assert.True(t, apperr.Is(err, apperr.CodeBadCredentials))
	_, _, err = svc.Login(ctx, "admin", "s3cret")
	assert.NoError(t, err)

	err = svc.ChangePassword(ctx, "nobody", "x")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestLogin_PurgesExpiredSessions(t *testing.T) {
	svc, st, clk := newService(t)
	ctx := context.Background()

	_, old, err := svc.Login(ctx, "admin", "admin")
	require.NoError(t, err)

	clk.t = clk.t.Add(3 * time.Hour)
	_, _, err = svc.Login(ctx, "admin", "admin")
	require.NoError(t, err)

	_, err = st.GetSession(ctx, old.ID)
	assert.Error(t, err)
}

func TestSweepSessions(t *testing.T) {
	svc, st, clk := newService(t)
	ctx := context.Background()

	_, sess, err := svc.Login(ctx, "admin", "admin")
	require.NoError(t, err)
	clk.t = clk.t.Add(2 * time.Hour)

	sweepCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.SweepSessions(sweepCtx, time.Hour)
	}()

	assert.Eventually(t, func() bool {
		_, err := st.GetSession(ctx, sess.ID)
		return err != nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
