package web

// errors.go maps service errors onto HTTP responses in one place.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls s.respondError(w, r, err)
//  3. The apperr.Kind decides the status; the Code travels to the client
//  4. The technical error is logged with the request ID for correlation
//  5. The client receives {"error": message, "code": code}

import (
	"net/http"

	"github.com/JonMunkholm/clueboard/internal/apperr"
	"github.com/JonMunkholm/clueboard/internal/logging"
	mw "github.com/JonMunkholm/clueboard/internal/web/middleware"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation, apperr.KindConflict,
		apperr.KindMalformedDocument, apperr.KindInvalidDocument:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its classified JSON response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal(err)
	}
	status := statusFor(e.Kind)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", e.Code,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	writeError(w, status, e.Code, e.Message)
}

// denyJSON is the RequireSession deny func for API routes. A session lookup
// that failed for another reason is reported as that error.
func (s *Server) denyJSON(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.KindUnauthenticated {
		writeError(w, http.StatusUnauthorized, apperr.CodeLoginRequired, "authentication required")
		return
	}
	s.respondError(w, r, err)
}

// denyPage redirects browser navigations without a session to the login
// page and answers script calls like denyJSON.
func (s *Server) denyPage(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.KindUnauthenticated && wantsHTML(r) {
		mw.RedirectToLogin(loginPagePath)(w, r, err)
		return
	}
	s.denyJSON(w, r, err)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}
