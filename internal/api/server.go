// Package api exposes the vault agent's HTTP surface to the popup UI and
// the page agent.
package api

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/org/credvault/internal/audit"
	"github.com/org/credvault/internal/vault"
	"github.com/rs/zerolog/log"
)

// Config holds agent server configuration.
type Config struct {
	ListenAddr  string
	TLSCertFile string
	TLSKeyFile  string
}

// Server is the agent API server.
type Server struct {
	vault   *vault.Service
	access  *audit.Log
	cfg     Config
	httpSrv *http.Server
}

// NewServer creates a Server over a wired vault service.
func NewServer(v *vault.Service, accessLog *audit.Log, cfg Config) *Server {
	return &Server{vault: v, access: accessLog, cfg: cfg}
}

// BuildRouter wires up all routes and returns a chi router.
func (s *Server) BuildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(metricsMiddleware)
	r.Use(newRateLimiter(50, 100).middleware)
	r.Use(logMiddleware)

	r.Handle("/metrics", MetricsHandler())

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/v1/sys/health", s.HealthHandler)
		r.Post("/v1/auth/login", s.LoginHandler)
		r.Get("/v1/auth/status", s.StatusHandler)
	})

	// Session-guarded routes
	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Post("/v1/auth/logout", s.LogoutHandler)

		r.Get("/v1/credentials", s.CredentialsHandler)
		r.Post("/v1/credentials/refresh", s.RefreshHandler)
		r.Post("/v1/credentials/{id}/reveal", s.RevealHandler)

		r.Post("/v1/page/fill", s.PageFillHandler)

		r.Get("/v1/sys/access-log", s.AccessLogHandler)
	})

	return r
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	handler := s.BuildRouter()

	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
		s.httpSrv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTPS agent")
		return s.httpSrv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	}

	log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTP agent")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
