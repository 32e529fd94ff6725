package web

import (
	"net/http"
	"strings"
	"time"

	mw "github.com/JonMunkholm/clueboard/internal/web/middleware"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// handleLogin verifies credentials and sets the session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	token, sess, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	http.SetCookie(w, s.sessionCookie(token, sess.ExpiresAt))
	writeJSON(w, http.StatusOK, message{Message: "logged in"})
}

// handleLogout ends the session and expires the cookie. A browser that
// followed the board's link is sent back to the board.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), mw.SessionToken(r, s.cfg.Session.CookieName)); err != nil {
		s.respondError(w, r, err)
		return
	}
	c := s.sessionCookie("", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(w, c)
	if wantsHTML(r) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "logged out"})
}

// wantsHTML reports whether the request is a browser navigation rather than
// a script call.
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// handleStatus reports whether the caller holds a valid session.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	_, ok := mw.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, struct {
		LoggedIn bool `json:"logged_in"`
	}{ok})
}

func (s *Server) sessionCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cfg.Session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
