// Package start accepts new queries: role gate, capacity admission, the
// history row and the asynchronous pipeline launch.
package start

import (
	"context"
	"fmt"
	"time"

	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/conventions"
	"github.com/ringside-dev/ringside/internal/log"
	loglogrus "github.com/ringside-dev/ringside/internal/log/logrus"
	"github.com/ringside-dev/ringside/internal/metrics"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/peer"
	"github.com/ringside-dev/ringside/internal/pipeline"
	"github.com/ringside-dev/ringside/internal/pipeline/stages"
	"github.com/ringside-dev/ringside/internal/query"
	"github.com/ringside-dev/ringside/internal/registry"
	"github.com/ringside-dev/ringside/internal/settings"
	"github.com/ringside-dev/ringside/internal/storage"
)

// ServiceConfig is the configuration for the start service.
type ServiceConfig struct {
	Settings        settings.Settings
	Registry        registry.Registry
	History         storage.Repository
	Runner          command.Runner
	Ring            peer.Ring
	Builder         pipeline.Builder
	MetricsRecorder metrics.Recorder
	Logger          log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Registry == nil {
		return fmt.Errorf("registry is required")
	}

	if c.History == nil {
		return fmt.Errorf("history repository is required")
	}

	if c.Runner == nil {
		return fmt.Errorf("command runner is required")
	}

	if c.Ring == nil {
		return fmt.Errorf("peer ring is required")
	}

	if c.Builder == nil {
		c.Builder = stages.NewBuilder()
	}

	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Noop
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Start"})

	return nil
}

// Service accepts queries and hands them to the registry.
type Service struct {
	settings settings.Settings
	registry registry.Registry
	history  storage.Repository
	runner   command.Runner
	ring     peer.Ring
	builder  pipeline.Builder
	metrics  metrics.Recorder
	logger   log.Logger
}

// NewService creates a new start service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		settings: cfg.Settings,
		registry: cfg.Registry,
		history:  cfg.History,
		runner:   cfg.Runner,
		ring:     cfg.Ring,
		builder:  cfg.Builder,
		metrics:  cfg.MetricsRecorder,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the start request parameters. Exactly the parameter
// struct matching the kind must be set.
type Request struct {
	QueryID     string
	Kind        model.QueryKind
	Coordinator *model.CoordinatorParams
	Helper      *model.HelperParams
	Demo        *model.DemoParams
}

// Response is the accepted query.
type Response struct {
	QueryID string
}

// Run gates the request on node role and capacity, records the query in the
// history and launches its pipeline in the background. It returns as soon as
// the query is admitted.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	s.logger.Debugf("Starting %s query %s", req.Kind, req.QueryID)

	if err := s.checkRole(req.Kind); err != nil {
		return nil, err
	}

	if !s.registry.CapacityAvailable() {
		return nil, fmt.Errorf("no capacity for another query: %w", model.ErrAtCapacity)
	}

	logPath := conventions.QueryLogPath(s.settings.RootDir, req.QueryID)
	queryLogger, logCloser, err := loglogrus.NewJSONFile(logPath)
	if err != nil {
		return nil, fmt.Errorf("could not open query log: %w", err)
	}

	q, err := query.NewQuery(query.QueryConfig{
		ID:              req.QueryID,
		Kind:            req.Kind,
		Coordinator:     req.Coordinator,
		Helper:          req.Helper,
		Demo:            req.Demo,
		Settings:        s.settings,
		Runner:          s.runner,
		Ring:            s.ring,
		Builder:         s.builder,
		History:         s.history,
		QueryLogger:     queryLogger,
		LogCloser:       logCloser,
		Logger:          s.logger,
		MetricsRecorder: s.metrics,
	})
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	now := time.Now().UTC()
	rec := model.QueryRecord{
		ID:        req.QueryID,
		Kind:      req.Kind,
		Status:    model.StatusStarting,
		CreatedAt: now,
		LogPath:   logPath,
	}
	if err := s.history.CreateQuery(ctx, rec); err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("could not record query: %w", err)
	}

	if err := s.registry.Start(ctx, q); err != nil {
		logCloser.Close()
		s.closeRecord(req.QueryID)
		return nil, fmt.Errorf("could not start query: %w", err)
	}

	s.logger.Infof("Accepted %s query %s", req.Kind, req.QueryID)
	return &Response{QueryID: req.QueryID}, nil
}

// checkRole rejects query kinds that don't belong on this node's ring role.
func (s *Service) checkRole(kind model.QueryKind) error {
	role := s.settings.Role()

	switch kind {
	case model.QueryKindIPACoordinator:
		if role != model.RoleCoordinator {
			return fmt.Errorf("%s queries only run on the coordinator: %w", kind, model.ErrWrongRole)
		}
	case model.QueryKindIPAHelper:
		if role != model.RoleHelper {
			return fmt.Errorf("%s queries only run on helpers: %w", kind, model.ErrWrongRole)
		}
	case model.QueryKindDemoLog:
		// Demo queries run on any node.
	default:
		return fmt.Errorf("query kind %q is not supported: %w", kind, model.ErrNotValid)
	}

	return nil
}

// closeRecord settles the history row of a query that was recorded but never
// made it into the registry.
func (s *Service) closeRecord(queryID string) {
	now := time.Now().UTC()
	err := s.history.UpdateQueryStatus(context.Background(), queryID, model.StatusCrashed, nil, &now)
	if err != nil {
		s.logger.Warningf("Could not settle history row of rejected query %s: %s", queryID, err)
	}
}
