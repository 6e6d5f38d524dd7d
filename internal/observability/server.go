// Package observability provides the dedicated HTTP server for health
// probes and Prometheus metrics, isolating administrative traffic from
// business traffic.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mveiga/cohort/internal/config"
)

// Server serves the liveness and readiness probes plus the metrics scrape
// endpoint on its own listener.
type Server struct {
	logger   *slog.Logger
	cfg      *config.ObservabilityConfig
	handler  http.Handler
	server   *http.Server
	checkers []Checker
}

// NewServer wires the probe routes. The checkers (postgres, redis) back the
// readiness probe; liveness and metrics need none.
func NewServer(logger *slog.Logger, cfg *config.ObservabilityConfig, checkers ...Checker) *Server {
	s := &Server{
		logger:   logger,
		cfg:      cfg,
		checkers: checkers,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Get(cfg.LivenessPath, s.liveness)
	r.Get(cfg.ReadinessPath, s.readiness)
	r.Method(http.MethodGet, cfg.MetricsPath, promhttp.Handler())
	s.handler = r

	return s
}

// Start binds the listener and serves in the background. Binding happens
// here rather than in the goroutine so a port clash fails startup instead
// of surfacing as a log line after the process reports healthy.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("observability listener on port %s: %w", s.cfg.Port, err)
	}

	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Timeout,
		WriteTimeout: s.cfg.Timeout,
		IdleTimeout:  s.cfg.Timeout * 3,
	}

	s.logger.Info("observability server listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("liveness_path", s.cfg.LivenessPath),
		slog.String("readiness_path", s.cfg.ReadinessPath),
		slog.String("metrics_path", s.cfg.MetricsPath),
	)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("observability server failed", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Shutdown drains in-flight probe requests. Calling it before Start is a
// no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("stopping observability server")
	return s.server.Shutdown(ctx)
}
