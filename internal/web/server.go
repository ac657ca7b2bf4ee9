// Package web provides the HTTP server and handlers for the cleaning UI.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/aibox/internal/config"
	"github.com/JonMunkholm/aibox/internal/core"
	webmw "github.com/JonMunkholm/aibox/internal/web/middleware"
)

// Server is the HTTP server for the cleaning UI.
type Server struct {
	cfg      *config.Config
	baseURL  string
	sessions *SessionStore
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a server whose sessions send files through cleaner.
// An empty cfg.Service.BaseURL puts every page into the misconfiguration
// view; cleaner may then be nil.
func NewServer(cfg *config.Config, cleaner core.Cleaner) *Server {
	s := &Server{
		cfg:     cfg,
		baseURL: cfg.Service.BaseURL,
		router:  chi.NewRouter(),
	}
	s.sessions = NewSessionStore(cfg.Session.IdleTTL, func(id string) *core.Session {
		return core.NewSession(id, cleaner,
			core.WithLegacyEndpoint(cfg.Service.LegacyEndpoint),
			core.WithMaxFileSize(cfg.Upload.MaxFileSize),
			core.WithLogger(slog.Default()),
		)
	})
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.requestTimeout()))

	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.Burst)
		s.router.Use(limiter.middleware)
	}
}

// requestTimeout must outlast a cleaning call; submit blocks until the
// service answers.
func (s *Server) requestTimeout() time.Duration {
	return s.cfg.Service.Timeout + 30*time.Second
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireService)
		r.Use(s.sessionMiddleware)

		// Page
		r.Get("/", s.handlePage)

		// Session mutations
		r.Post("/mode", s.handleSetMode)
		r.Post("/options", s.handleSetOptions)
		r.Post("/file", s.handleSelectFile)
		r.Post("/file/clear", s.handleClearFile)
		r.Post("/submit", s.handleSubmit)

		// API
		r.Get("/api/state", s.handleState)
	})
}

// requireService answers every request with the misconfiguration error
// while the service location is unset.
func (s *Server) requireService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.baseURL == "" {
			s.respondError(w, r, core.ErrMisconfigured, http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr, "service_configured", s.baseURL != "")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// render writes c as an HTML response.
func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("template render error", "path", r.URL.Path, "error", err)
	}
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Pages carry only inline styles; forms post back to this server
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'")

		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	slog.Warn("http error", "status", status, "message", message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, message)
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
