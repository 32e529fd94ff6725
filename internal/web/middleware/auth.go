package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/clueboard/internal/auth"
)

// Authenticator resolves a session token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.User, error)
}

type userKey struct{}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, u auth.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the user set by RequireSession or LoadSession.
func UserFromContext(ctx context.Context) (auth.User, bool) {
	u, ok := ctx.Value(userKey{}).(auth.User)
	return u, ok
}

// SessionToken returns the value of the named cookie, or "".
func SessionToken(r *http.Request, cookieName string) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// LoadSession attaches the user to the request context when the session
// cookie is valid and lets every request through.
func LoadSession(a Authenticator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := SessionToken(r, cookieName); token != "" {
				if u, err := a.Authenticate(r.Context(), token); err == nil {
					r = r.WithContext(WithUser(r.Context(), u))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects requests without a valid session by calling deny.
// API routes pass a deny that writes 401 JSON; page routes redirect to the
// login page.
func RequireSession(a Authenticator, cookieName string, deny func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			u, err := a.Authenticate(r.Context(), SessionToken(r, cookieName))
			if err != nil {
				slog.Warn("auth: session required",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				deny(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RedirectToLogin is a deny func for browser pages.
func RedirectToLogin(path string) func(w http.ResponseWriter, r *http.Request, err error) {
	return func(w http.ResponseWriter, r *http.Request, _ error) {
		http.Redirect(w, r, path, http.StatusFound)
	}
}
