// Package reconcile settles history rows left behind by an unclean daemon
// stop. A query that was alive when the daemon died can't be running anymore,
// its row must stop claiming it is.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/storage"
)

// staleStatuses are the lifecycle statuses a dead daemon can leave behind.
var staleStatuses = []model.Status{
	model.StatusStarting,
	model.StatusCompiling,
	model.StatusWaitingToStart,
	model.StatusInProgress,
}

// ServiceConfig is the configuration for the reconcile service.
type ServiceConfig struct {
	History storage.Repository
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.History == nil {
		return fmt.Errorf("history repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Reconcile"})

	return nil
}

// Service settles stale history rows.
type Service struct {
	history storage.Repository
	logger  log.Logger
}

// NewService creates a new reconcile service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		history: cfg.History,
		logger:  cfg.Logger,
	}, nil
}

// Request represents the reconcile request parameters.
type Request struct{}

// Response lists the queries that were settled.
type Response struct {
	CrashedQueries []string
}

// Run marks every query the history still claims alive as crashed. It runs
// once at daemon boot, before the first query is admitted.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	now := time.Now().UTC()
	crashed := []string{}

	for _, status := range staleStatuses {
		recs, err := s.history.ListQueries(ctx, storage.QueryFilter{Status: status})
		if err != nil {
			return nil, fmt.Errorf("could not list %s queries: %w", status, err)
		}

		for _, rec := range recs {
			err := s.history.UpdateQueryStatus(ctx, rec.ID, model.StatusCrashed, nil, &now)
			if err != nil {
				return nil, fmt.Errorf("could not settle query %s: %w", rec.ID, err)
			}
			crashed = append(crashed, rec.ID)
		}
	}

	if len(crashed) > 0 {
		s.logger.Infof("Marked %d queries from a previous run as crashed", len(crashed))
	}

	return &Response{CrashedQueries: crashed}, nil
}
