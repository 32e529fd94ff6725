// Package config provides centralized configuration management for the clue
// board. It loads configuration from environment variables with sensible
// defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Session  SessionConfig
	Admin    AdminConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 15s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// StaticDir is served under /static/ (default: static)
	StaticDir string `env:"STATIC_DIR" default:"static"`
}

// Driver names accepted by DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver selects the store backend: sqlite or postgres (default: sqlite)
	Driver string `env:"DB_DRIVER" default:"sqlite"`

	// URL is a file path for sqlite or a connection string for postgres.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" default:"instance/clueboard.db"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// BusyTimeout is how long sqlite waits on a locked database (default: 5s)
	BusyTimeout time.Duration `env:"DB_BUSY_TIMEOUT" default:"5s"`
}

// UploadConfig holds image upload and board import settings.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted multipart body in bytes (default: 16MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"16777216"`

	// ImageExtensions lists the accepted image extensions (default: png,jpg,jpeg,gif)
	ImageExtensions []string `env:"UPLOAD_IMAGE_EXTENSIONS" default:"png,jpg,jpeg,gif"`

	// ImportTimeout bounds a single board import. It may not exceed
	// SERVER_REQUEST_TIMEOUT or SERVER_WRITE_TIMEOUT (default: 25s)
	ImportTimeout time.Duration `env:"UPLOAD_IMPORT_TIMEOUT" default:"25s"`

	// MaxConcurrent is how many imports and uploads may run at once (default: 2)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"2"`

	// MaxWait is how long a transfer waits for a free slot (default: 10s)
	MaxWait time.Duration `env:"UPLOAD_MAX_WAIT" default:"10s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// LoginPerMinute is the per-IP limit for POST /login (default: 10)
	LoginPerMinute int `env:"RATE_LIMIT_LOGIN" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// AllowedOrigins is the CORS origin list (default: *)
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// SessionConfig holds login session settings.
type SessionConfig struct {
	// Secret signs session tokens; a random one is generated when empty
	Secret string `env:"SESSION_SECRET"`

	// TTL is how long a session stays valid (default: 24h)
	TTL time.Duration `env:"SESSION_TTL" default:"24h"`

	// CookieName is the session cookie name (default: clueboard_session)
	CookieName string `env:"SESSION_COOKIE_NAME" default:"clueboard_session"`

	// SecureCookie sets the Secure attribute on the cookie (default: false)
	SecureCookie bool `env:"SESSION_SECURE_COOKIE" default:"false"`

	// SweepInterval is how often expired sessions are deleted (default: 1h)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"1h"`
}

// AdminConfig holds the bootstrap administrator account.
type AdminConfig struct {
	// Username of the single administrative account (default: admin)
	Username string `env:"ADMIN_USERNAME" default:"admin"`

	// InitialPassword is set only when the account is first created (default: admin)
	InitialPassword string `env:"ADMIN_INITIAL_PASSWORD" default:"admin"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
