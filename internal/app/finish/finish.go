// Package finish ends a running query gracefully, marking it complete.
package finish

import (
	"context"
	"fmt"

	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/registry"
)

// ServiceConfig is the configuration for the finish service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Finish"})

	return nil
}

// Service finishes running queries.
type Service struct {
	registry registry.Registry
	logger   log.Logger
}

// NewService creates a new finish service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		registry: cfg.Registry,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the finish request parameters.
type Request struct {
	QueryID string
}

// Run winds a running query down as complete. Helper queries back a server
// process that never exits on its own, this is how the coordinator tells the
// node the computation is done.
func (s *Service) Run(ctx context.Context, req Request) error {
	q, ok := s.registry.Get(req.QueryID)
	if !ok {
		return fmt.Errorf("query %s is not running: %w", req.QueryID, model.ErrNotFound)
	}

	if err := q.Finish(ctx); err != nil {
		return fmt.Errorf("could not finish query: %w", err)
	}

	s.logger.Infof("Finished query %s", req.QueryID)
	return nil
}
