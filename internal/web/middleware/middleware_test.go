package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/clueboard/internal/auth"
	"github.com/JonMunkholm/clueboard/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{"untrusted peer ignores headers", []string{"10.0.0.0/8"}, "203.0.113.7:5555",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "203.0.113.7"},
		{"trusted proxy real ip", []string{"10.0.0.0/8"}, "10.1.2.3:80",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"trusted proxy forwarded for", []string{"127.0.0.1"}, "127.0.0.1:80",
			map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.1"}, "5.6.7.8"},
		{"invalid header keeps peer", []string{"127.0.0.1"}, "127.0.0.1:80",
			map[string]string{"X-Real-IP": "not-an-ip"}, "127.0.0.1"},
		{"bad entries skipped", []string{"nonsense", ""}, "127.0.0.1:80",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakeAuth struct{ token string }

func (f fakeAuth) Authenticate(_ context.Context, token string) (auth.User, error) {
	if token != "" && token == f.token {
		return auth.User{ID: 1, Username: "admin"}, nil
	}
	return auth.User{}, errors.New("no session")
}

func TestRequireSession(t *testing.T) {
	var denied bool
	deny := func(w http.ResponseWriter, r *http.Request, err error) {
		denied = true
		w.WriteHeader(http.StatusUnauthorized)
	}
	h := RequireSession(fakeAuth{token: "good"}, "sid", deny)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, "admin", u.Username)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/clues", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.True(t, denied)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	denied = false
	req = httptest.NewRequest(http.MethodPost, "/api/clues", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "good"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.False(t, denied)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRedirectToLogin(t *testing.T) {
	rec := httptest.NewRecorder()
	RedirectToLogin("/AdminLogin")(rec, httptest.NewRequest(http.MethodGet, "/logout", nil), nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/AdminLogin", rec.Header().Get("Location"))
}

func TestLogger_RecordsRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(Logger(m))
	r.Get("/api/clues/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/clues/17", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/clues/{id}", "418")))
}
