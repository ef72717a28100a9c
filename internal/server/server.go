// Package server exposes the sidecar application services over the HTTP API
// that peers, the CLI and operators consume.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ringside-dev/ringside/internal/app/capacity"
	"github.com/ringside-dev/ringside/internal/app/finish"
	"github.com/ringside-dev/ringside/internal/app/kill"
	"github.com/ringside-dev/ringside/internal/app/list"
	"github.com/ringside-dev/ringside/internal/app/logs"
	"github.com/ringside-dev/ringside/internal/app/start"
	"github.com/ringside-dev/ringside/internal/app/status"
	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/metrics"
)

// ServerConfig is the configuration for the API server.
type ServerConfig struct {
	ListenAddr      string
	Start           *start.Service
	Status          *status.Service
	Logs            *logs.Service
	Kill            *kill.Service
	Finish          *finish.Service
	List            *list.Service
	Capacity        *capacity.Service
	MetricsRecorder metrics.Recorder
	// MetricsHandler serves GET /metrics. Default: the Prometheus handler on
	// the global registry.
	MetricsHandler http.Handler
	Logger         log.Logger
}

func (c *ServerConfig) defaults() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":17440"
	}

	if c.Start == nil {
		return fmt.Errorf("start service is required")
	}

	if c.Status == nil {
		return fmt.Errorf("status service is required")
	}

	if c.Logs == nil {
		return fmt.Errorf("logs service is required")
	}

	if c.Kill == nil {
		return fmt.Errorf("kill service is required")
	}

	if c.Finish == nil {
		return fmt.Errorf("finish service is required")
	}

	if c.List == nil {
		return fmt.Errorf("list service is required")
	}

	if c.Capacity == nil {
		return fmt.Errorf("capacity service is required")
	}

	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Noop
	}

	if c.MetricsHandler == nil {
		c.MetricsHandler = promhttp.Handler()
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "server.Server"})

	return nil
}

// Server is the sidecar HTTP API server.
type Server struct {
	server         *http.Server
	start          *start.Service
	status         *status.Service
	logs           *logs.Service
	kill           *kill.Service
	finish         *finish.Service
	list           *list.Service
	capacity       *capacity.Service
	metrics        metrics.Recorder
	metricsHandler http.Handler
	logger         log.Logger
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{
		start:          cfg.Start,
		status:         cfg.Status,
		logs:           cfg.Logs,
		kill:           cfg.Kill,
		finish:         cfg.Finish,
		list:           cfg.List,
		capacity:       cfg.Capacity,
		metrics:        cfg.MetricsRecorder,
		metricsHandler: cfg.MetricsHandler,
		logger:         cfg.Logger,
	}

	s.server = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: s.routes(),
	}

	return s, nil
}

// Handler returns the routed HTTP handler. It serves the same API as Run and
// exists so tests can drive the server without a listener.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run starts the API server and blocks until ctx is cancelled. It performs a
// graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("API server listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server error: %w", err)
	case <-ctx.Done():
		s.logger.Infof("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("API server shutdown error: %w", err)
		}
		return nil
	}
}

// routes wires the handlers into a mux, each one wrapped by the middleware
// chain.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// The start route keeps {kind} as a wildcard: a literal kind segment
	// would collide with the kill and finish patterns on ServeMux precedence.
	s.handle(mux, "POST /api/v1/queries/{kind}/{queryID}", s.startQuery)
	s.handle(mux, "GET /api/v1/queries/{queryID}/status", s.queryStatus)
	s.handle(mux, "GET /api/v1/queries/{queryID}/log", s.queryLog)
	s.handle(mux, "POST /api/v1/queries/{queryID}/kill", s.killQuery)
	s.handle(mux, "POST /api/v1/queries/{queryID}/finish", s.finishQuery)
	s.handle(mux, "GET /api/v1/queries", s.runningQueries)
	s.handle(mux, "GET /api/v1/capacity", s.capacityAvailable)

	mux.HandleFunc("GET /healthz", s.healthz)
	mux.Handle("GET /metrics", s.metricsHandler)

	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	_, path, _ := strings.Cut(pattern, " ")
	mux.Handle(pattern, chain(
		recoverPanics(s.logger),
		logRequests(s.logger),
		measureRequests(s.metrics, path),
	)(h))
}
