// Package capacity answers whether this node can admit another query.
package capacity

import (
	"context"
	"fmt"

	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/registry"
)

// ServiceConfig is the configuration for the capacity service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Capacity"})

	return nil
}

// Service answers capacity introspection.
type Service struct {
	registry registry.Registry
	logger   log.Logger
}

// NewService creates a new capacity service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		registry: cfg.Registry,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the capacity request parameters.
type Request struct{}

// Response tells whether another query would be admitted right now.
type Response struct {
	Available bool
}

// Run answers the capacity check.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	return &Response{Available: s.registry.CapacityAvailable()}, nil
}
