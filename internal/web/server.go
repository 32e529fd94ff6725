// Package web provides the HTTP server and handlers for the clue board.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/JonMunkholm/clueboard/internal/apperr"
	"github.com/JonMunkholm/clueboard/internal/auth"
	"github.com/JonMunkholm/clueboard/internal/board"
	"github.com/JonMunkholm/clueboard/internal/config"
	"github.com/JonMunkholm/clueboard/internal/limiter"
	"github.com/JonMunkholm/clueboard/internal/metrics"
	mw "github.com/JonMunkholm/clueboard/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the clue board.
type Server struct {
	board   *board.Service
	auth    *auth.Service
	store   Pinger
	cfg     *config.Config
	metrics *metrics.Collector
	router  *chi.Mux
	server  *http.Server

	// transfers bounds concurrent imports and uploads.
	transfers *limiter.Limiter

	stopOnce sync.Once
	stop     chan struct{}
}

// NewServer creates a new Server instance. m may be nil.
func NewServer(b *board.Service, a *auth.Service, store Pinger, cfg *config.Config, m *metrics.Collector) *Server {
	s := &Server{
		board:     b,
		auth:      a,
		store:     store,
		cfg:       cfg,
		metrics:   m,
		router:    chi.NewRouter(),
		transfers: limiter.New(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWait),
		stop:      make(chan struct{}),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger(s.metrics))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(s.securityHeaders)
	s.router.Use(corsHandler(s.cfg.Security.AllowedOrigins))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}

	s.router.Use(mw.LoadSession(s.auth, s.cfg.Session.CookieName))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	requireAPI := mw.RequireSession(s.auth, s.cfg.Session.CookieName, s.denyJSON)
	requirePage := mw.RequireSession(s.auth, s.cfg.Session.CookieName, s.denyPage)

	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.Server.StaticDir))))

	// Pages
	s.router.Get("/", s.handleBoardPage)
	s.router.Get(loginPagePath, s.handleLoginPage)

	// Session
	login := s.router.With()
	if s.cfg.Rate.Enabled {
		login = s.router.With(s.newRateLimiter(s.cfg.Rate.LoginPerMinute, time.Minute).middleware)
	}
	login.Post("/login", s.handleLogin)
	s.router.With(requirePage).Get("/logout", s.handleLogout)
	s.router.Get("/status", s.handleStatus)

	// Operations
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/clues", s.handleListClues)
		r.Get("/connections", s.handleListConnections)

		r.Group(func(r chi.Router) {
			r.Use(requireAPI)

			r.Post("/clues", s.handleCreateClue)
			r.Put("/clues/{id}", s.handleUpdateClue)
			r.Delete("/clues/{id}", s.handleDeleteClue)

			r.Post("/connections", s.handleCreateConnection)
			r.Put("/connections/{id}", s.handleUpdateConnection)
			r.Delete("/connections/{id}", s.handleDeleteConnection)

			r.Get("/data/export", s.handleExport)
			r.Post("/data/import", s.handleImport)

			r.Post("/upload", s.handleUpload)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background cleanup. Running
// imports and uploads are given until ctx ends to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })

	if n := s.transfers.Active(); n > 0 {
		slog.Info("waiting for transfers to complete", "active", n)
		if err := s.transfers.Drain(ctx); err != nil {
			slog.Warn("transfers did not complete in time", "error", err)
		}
	}

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// acquireTransfer takes a transfer slot; the caller must release it.
func (s *Server) acquireTransfer(r *http.Request) error {
	err := s.transfers.Acquire(r.Context())
	if errors.Is(err, limiter.ErrBusy) {
		return apperr.Busy(err.Error())
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// uploadDir is where images are written; it is served under /static/uploads.
func (s *Server) uploadDir() string {
	return filepath.Join(s.cfg.Server.StaticDir, "uploads")
}

const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net https://cdnjs.cloudflare.com; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data:; " +
	"font-src 'self'; " +
	"connect-src 'self'; " +
	"frame-src 'none'; " +
	"object-src 'none'"

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			h.Set("Content-Security-Policy", contentSecurityPolicy)
		}
		next.ServeHTTP(w, r)
	})
}

// corsHandler allows credentials only for an explicit origin list; browsers
// refuse credentialed responses for a wildcard origin anyway.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	wildcard := len(origins) == 0 || slices.Contains(origins, "*")
	if wildcard {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	now      func() time.Time
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a limiter whose cleanup loop ends on Shutdown.
func (s *Server) newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
	}
	go rl.cleanup(s.stop)
	return rl
}

// cleanup removes stale visitor entries every window until stop closes.
func (rl *rateLimiter) cleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if rl.now().Sub(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[ip]
	if !exists || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware rate limits by client IP (RemoteAddr after TrustedRealIP).
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, apperr.CodeRateLimited, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		slog.Error("json encode error", "error", err)
	}
}

// message is the body of mutation responses that return nothing else.
type message struct {
	Message string `json:"message"`
}
