// Package list answers which queries are running on this node.
package list

import (
	"context"
	"fmt"

	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/registry"
)

// ServiceConfig is the configuration for the list service.
type ServiceConfig struct {
	Registry registry.Registry
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Registry == nil {
		return fmt.Errorf("registry is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.List"})

	return nil
}

// Service lists running queries.
type Service struct {
	registry registry.Registry
	logger   log.Logger
}

// NewService creates a new list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		registry: cfg.Registry,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the list request parameters.
type Request struct{}

// RunningQuery is a point-in-time summary of a running query.
type RunningQuery struct {
	ID     string
	Kind   model.QueryKind
	Status model.Status
	Usage  command.Usage
}

// Run lists the queries running right now, sorted by ID.
func (s *Service) Run(ctx context.Context, req Request) ([]RunningQuery, error) {
	queries := s.registry.List()

	running := make([]RunningQuery, 0, len(queries))
	for _, q := range queries {
		running = append(running, RunningQuery{
			ID:     q.ID(),
			Kind:   q.Kind(),
			Status: q.Status(),
			Usage:  q.Usage(),
		})
	}

	s.logger.Debugf("%d queries running", len(running))
	return running, nil
}
