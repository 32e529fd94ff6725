// Package app wires configuration, storage and services together for the
// server and the command line tool.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/clueboard/internal/auth"
	"github.com/JonMunkholm/clueboard/internal/board"
	"github.com/JonMunkholm/clueboard/internal/config"
	"github.com/JonMunkholm/clueboard/internal/metrics"
	"github.com/JonMunkholm/clueboard/internal/store/postgres"
	"github.com/JonMunkholm/clueboard/internal/store/sqlite"
)

// Store is what a storage backend provides.
type Store interface {
	board.Store
	auth.Store
	Ping(ctx context.Context) error
	Close() error
}

// App holds the opened store and the services built on it.
type App struct {
	Config  *config.Config
	Store   Store
	Metrics *metrics.Collector
	Board   *board.Service
	Auth    *auth.Service
}

// OpenStore opens the backend selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.URL, cfg.BusyTimeout)
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// New opens the store and builds the services. The caller must Close the App.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	slog.Info("store opened", "driver", cfg.Database.Driver)

	m := metrics.New()
	a, err := auth.NewService(st, cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Store:   st,
		Metrics: m,
		Board:   board.NewService(st, board.WithMetrics(m)),
		Auth:    a,
	}, nil
}

// EnsureAdmin creates the configured administrator when it does not exist.
func (a *App) EnsureAdmin(ctx context.Context) error {
	_, err := a.Auth.EnsureAdmin(ctx, a.Config.Admin.Username, a.Config.Admin.InitialPassword)
	return err
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
