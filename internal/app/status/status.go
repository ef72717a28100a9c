// Package status answers query status lookups: live queries from the
// registry, finished ones from the history, everything else NOT_FOUND.
package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/registry"
	"github.com/ringside-dev/ringside/internal/storage"
)

// ServiceConfig is the configuration for the status service.
type ServiceConfig struct {
	Registry registry.Registry
	History  storage.Repository
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Registry == nil {
		return fmt.Errorf("registry is required")
	}

	if c.History == nil {
		return fmt.Errorf("history repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Status"})

	return nil
}

// Service answers query status lookups.
type Service struct {
	registry registry.Registry
	history  storage.Repository
	logger   log.Logger
}

// NewService creates a new status service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		registry: cfg.Registry,
		history:  cfg.History,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the status request parameters.
type Request struct {
	QueryID string
}

// Response is the status answer. An unknown query ID answers NOT_FOUND
// instead of erroring: peers polling the start barrier consume that answer.
type Response struct {
	Event model.StatusEvent
	// Usage is the live resource sample. Zero unless the query is running.
	Usage command.Usage
}

// Run resolves the status of a query.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	if q, ok := s.registry.Get(req.QueryID); ok {
		return &Response{Event: q.Event(), Usage: q.Usage()}, nil
	}

	rec, err := s.history.GetQuery(ctx, req.QueryID)
	if err == nil {
		return &Response{Event: rec.Event()}, nil
	}
	if errors.Is(err, model.ErrNotFound) {
		return &Response{Event: model.StatusEvent{Status: model.StatusNotFound}}, nil
	}

	return nil, fmt.Errorf("could not read query history: %w", err)
}
