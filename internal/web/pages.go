package web

import (
	"net/http"

	"github.com/JonMunkholm/clueboard/internal/logging"
	mw "github.com/JonMunkholm/clueboard/internal/web/middleware"
	"github.com/JonMunkholm/clueboard/internal/web/templates"
	"github.com/a-h/templ"
)

// loginPagePath is where page routes send a browser without a session.
const loginPagePath = "/AdminLogin"

func (s *Server) handleBoardPage(w http.ResponseWriter, r *http.Request) {
	u, ok := mw.UserFromContext(r.Context())
	s.render(w, r, templates.Layout("Clue Board", templates.BoardPage(u.Username, ok)))
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, templates.Layout("Log in", templates.LoginForm()))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}
