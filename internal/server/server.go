// Package server is the HTTP surface: compile and search query specs,
// expose metrics and report health.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/roach88/esq/internal/config"
	"github.com/roach88/esq/internal/executor"
	"github.com/roach88/esq/internal/metrics"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Options configures a Server. Only Logger is required.
type Options struct {
	Logger *zap.Logger
	// Runner executes searches. Nil disables /v1/search with 503.
	Runner *executor.Runner
	// DefaultIndex is used when a posted spec names no index.
	DefaultIndex string
	// Metrics records request metrics; Gatherer backs GET /metrics.
	Metrics  *metrics.HTTP
	Gatherer prometheus.Gatherer
	// Checks are run by GET /healthz, keyed by dependency name.
	Checks map[string]HealthCheck
}

// Server routes the HTTP surface.
type Server struct {
	router       chi.Router
	log          *zap.Logger
	runner       *executor.Runner
	defaultIndex string
	checks       map[string]HealthCheck
}

// New builds the router.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		router:       chi.NewRouter(),
		log:          log,
		runner:       opts.Runner,
		defaultIndex: opts.DefaultIndex,
		checks:       opts.Checks,
	}

	r := s.router
	r.Use(jsonRecoverer(log))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(log))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}

	r.Get("/healthz", s.handleHealth)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/compile", s.handleCompile)
		r.Post("/search", s.handleSearch)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on cfg.Port until ctx is cancelled, then shuts
// down gracefully within cfg.ShutdownSec.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.HTTPConfig) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.log.Info("Server stopped gracefully")
	return nil
}
