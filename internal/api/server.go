// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api wires the worker's admin surface: health, readiness,
// Prometheus metrics, and a diagnostic log buffer. The rule builder,
// review board, and every other operator-facing UI are external
// collaborators — this package exposes only the operability endpoints a
// long-running worker process needs.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apimw "github.com/mchestr/plex-maintenance-engine/internal/api/middleware"
	"github.com/mchestr/plex-maintenance-engine/internal/health"
	"github.com/mchestr/plex-maintenance-engine/internal/log"
	"github.com/mchestr/plex-maintenance-engine/internal/report"
)

// Config configures the admin HTTP server.
type Config struct {
	Addr               string
	AllowedOrigins     []string
	RateLimitEnabled   bool
	RateLimitGlobalRPS int
	RateLimitBurst     int
	RateLimitWhitelist []string
	TracingService     string

	// ReportWriter, when set, backs the /debug/last-scan snapshot
	// endpoint. Nil leaves that endpoint always 404.
	ReportWriter *report.Writer
}

// Server is the worker's admin HTTP surface.
type Server struct {
	httpServer *http.Server
}

// NewServer builds the admin server's router and binds it to cfg.Addr.
// It does not start listening — call Run.
func NewServer(cfg Config, healthManager *health.Manager) *Server {
	stack := apimw.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        cfg.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        cfg.TracingService,
		EnableLogging:         true,
		EnableRateLimit:       cfg.RateLimitEnabled,
		RateLimitEnabled:      cfg.RateLimitEnabled,
		RateLimitGlobalRPS:    cfg.RateLimitGlobalRPS,
		RateLimitBurst:        cfg.RateLimitBurst,
		RateLimitWhitelist:    cfg.RateLimitWhitelist,
	}

	r := chi.NewRouter()
	apimw.ApplyStack(r, stack)

	mountHealth(r, healthManager)
	mountAdmin(r, cfg.ReportWriter)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run starts the admin server and blocks until ctx is canceled, then
// performs a bounded graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.WithComponent("admin-server").Info().Msg("shutting down admin server")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
