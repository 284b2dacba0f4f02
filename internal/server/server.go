// SPDX-License-Identifier: MIT

// Package server assembles the HTTP surface: the MCP protocol endpoint plus
// the operational endpoints (health, readiness, metrics).
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/quellwerk/supportd/internal/health"
	"github.com/quellwerk/supportd/internal/log"
	"github.com/quellwerk/supportd/internal/mcp"
)

const shutdownTimeout = 10 * time.Second

// Config holds everything needed to build and run the HTTP server.
type Config struct {
	ListenAddr     string
	MetricsAddr    string // when set, /metrics moves to its own listener
	TrustedProxies string // comma-separated CIDRs allowed to set forwarding headers
	RateLimitRPM   int
	TracingEnabled bool
}

// Server is the assembled HTTP daemon.
type Server struct {
	http   *http.Server
	logger zerolog.Logger
}

// New builds the router and server. The protocol handler and the health
// manager come preassembled from the caller.
func New(cfg Config, protocol *mcp.Handler, healthMgr *health.Manager) *Server {
	r := chi.NewRouter()

	// Outermost safety net first, then correlation, then observability.
	r.Use(recoverer)
	if cfg.TrustedProxies != "" {
		r.Use(trustedProxy(cfg.TrustedProxies))
	}
	r.Use(requestID)
	r.Use(securityHeaders)
	r.Use(httpMetrics)
	r.Use(requestLogger)

	var protocolHandler http.Handler = protocol
	if cfg.TracingEnabled {
		protocolHandler = otelhttp.NewHandler(protocolHandler, "mcp")
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimitRPM > 0 {
			r.Use(rateLimit(cfg.RateLimitRPM))
		}
		r.Handle("/mcp", protocolHandler)
	})

	r.Get("/healthz", healthMgr.ServeHealth)
	r.Get("/readyz", healthMgr.ServeReady)
	if cfg.MetricsAddr == "" {
		r.Handle("/metrics", promhttp.Handler())
	}

	return &Server{
		http: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: log.WithComponent("server"),
	}
}

// NewMetrics builds a standalone operational listener serving /metrics and
// the health endpoints, for deployments that keep them off the public port.
func NewMetrics(addr string, healthMgr *health.Manager) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthMgr.ServeHealth)
	mux.HandleFunc("/readyz", healthMgr.ServeReady)

	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: log.WithComponent("metrics-server"),
	}
}

// Run serves until ctx is cancelled, then drains connections gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
