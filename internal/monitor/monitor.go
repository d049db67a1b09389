// Package monitor runs a small HTTP server that periodically probes server
// health and exposes liveness, readiness, and Prometheus metrics.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/opsverify/splunkq/internal/metrics"
)

// Prober performs one health probe against the remote service.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a function to the Prober interface.
type ProbeFunc func(ctx context.Context) error

// Probe calls f.
func (f ProbeFunc) Probe(ctx context.Context) error { return f(ctx) }

// Config controls the monitor server.
type Config struct {
	Port     int
	Interval time.Duration
}

// Server probes on a fixed interval and serves /healthz, /readyz, /metrics.
// Readiness tracks the most recent probe only; there is no history.
type Server struct {
	cfg    Config
	prober Prober
	router chi.Router
	logger *zap.Logger
	ready  atomic.Bool
}

// New constructs a Server with its routes registered.
func New(cfg Config, prober Prober, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}

	s := &Server{cfg: cfg, prober: prober, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())
	s.router = r
	return s
}

// Handler returns the router for use with http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run probes immediately, then on every interval tick, while serving HTTP.
// It blocks until ctx is canceled and shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("monitor listening", zap.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.probe(ctx)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown monitor server: %w", err)
			}
			return nil
		case err := <-errCh:
			return fmt.Errorf("monitor server: %w", err)
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *Server) probe(ctx context.Context) {
	err := s.prober.Probe(ctx)
	ok := err == nil
	s.ready.Store(ok)
	metrics.SetMonitorUp(ok)
	if ok {
		s.logger.Debug("probe succeeded")
		return
	}
	s.logger.Warn("probe failed", zap.Error(err))
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload) //nolint:errcheck // connection-level failure
}
