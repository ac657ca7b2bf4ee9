// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Service  ServiceConfig
	Server   ServerConfig
	Upload   UploadConfig
	Session  SessionConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServiceConfig describes the remote cleaning service.
type ServiceConfig struct {
	// BaseURL is the service base location, e.g. https://clean.example.com (required).
	// VITE_BACKEND_URL is accepted for deployments shared with the old frontend.
	BaseURL string `env:"AIBOX_BACKEND_URL" envAlt:"VITE_BACKEND_URL" required:"true"`

	// Timeout bounds one cleaning call end to end (default: 2m)
	Timeout time.Duration `env:"AIBOX_BACKEND_TIMEOUT" default:"2m"`

	// LegacyEndpoint sends invoices to the unified /api/clean endpoint (default: false)
	LegacyEndpoint bool `env:"AIBOX_LEGACY_ENDPOINT" default:"false"`

	// MaxConcurrent caps simultaneous cleaning calls across sessions (default: 4)
	MaxConcurrent int `env:"AIBOX_MAX_CONCURRENT" default:"4"`

	// MaxWait is how long a submission waits for a free slot (default: 10s)
	MaxWait time.Duration `env:"AIBOX_MAX_WAIT" default:"10s"`
}

// ServerConfig holds HTTP server settings for the local web UI.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout must outlast a cleaning call (default: 3m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"3m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// UploadConfig holds file selection limits.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 25MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"26214400"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	// IdleTTL is how long an untouched session is kept (default: 30m)
	IdleTTL time.Duration `env:"SESSION_IDLE_TTL" default:"30m"`

	// CookieName is the session cookie name (default: aibox_session)
	CookieName string `env:"SESSION_COOKIE" default:"aibox_session"`

	// SecureCookie marks the cookie Secure, for HTTPS deployments (default: false)
	SecureCookie bool `env:"SESSION_SECURE_COOKIE" default:"false"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the sustained rate per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// Burst is the number of requests allowed at once (default: 20)
	Burst int `env:"RATE_LIMIT_BURST" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
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
