// Package kill stops a running query immediately.
package kill

import (
	"context"
	"fmt"

	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/registry"
)

// ServiceConfig is the configuration for the kill service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Kill"})

	return nil
}

// Service kills running queries.
type Service struct {
	registry registry.Registry
	logger   log.Logger
}

// NewService creates a new kill service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		registry: cfg.Registry,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the kill request parameters.
type Request struct {
	QueryID string
}

// Run kills a running query: its active stage's process is stopped and the
// pipeline unblocks promptly. Killing is local, the node never forwards the
// signal to its peers.
func (s *Service) Run(ctx context.Context, req Request) error {
	q, ok := s.registry.Get(req.QueryID)
	if !ok {
		return fmt.Errorf("query %s is not running: %w", req.QueryID, model.ErrNotFound)
	}

	if err := q.Kill(ctx); err != nil {
		return fmt.Errorf("could not kill query: %w", err)
	}

	s.logger.Infof("Killed query %s", req.QueryID)
	return nil
}
