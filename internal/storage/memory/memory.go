package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/storage"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository. History
// stored here does not survive restarts, it backs tests and ephemeral runs.
type Repository struct {
	queries map[string]model.QueryRecord
	mu      sync.RWMutex
	logger  log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		queries: make(map[string]model.QueryRecord),
		logger:  cfg.Logger,
	}, nil
}

var _ storage.Repository = &Repository{}

// CreateQuery creates a new query record in the repository.
func (r *Repository) CreateQuery(ctx context.Context, q model.QueryRecord) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("invalid query record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.queries[q.ID]; ok {
		return fmt.Errorf("query with id %s: %w", q.ID, model.ErrAlreadyExists)
	}

	r.queries[q.ID] = q
	r.logger.Debugf("Created query in repository: %s", q.ID)

	return nil
}

// GetQuery retrieves a query record by ID.
func (r *Repository) GetQuery(ctx context.Context, id string) (*model.QueryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query, ok := r.queries[id]
	if !ok {
		return nil, fmt.Errorf("query %s: %w", id, model.ErrNotFound)
	}

	// Return a copy
	queryCopy := query
	return &queryCopy, nil
}

// ListQueries returns all query records matching the filter, newest first.
func (r *Repository) ListQueries(ctx context.Context, filter storage.QueryFilter) ([]model.QueryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	queries := make([]model.QueryRecord, 0, len(r.queries))
	for _, query := range r.queries {
		if filter.Kind != "" && query.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && query.Status != filter.Status {
			continue
		}
		queries = append(queries, query)
	}

	sort.Slice(queries, func(i, j int) bool {
		if !queries[i].CreatedAt.Equal(queries[j].CreatedAt) {
			return queries[i].CreatedAt.After(queries[j].CreatedAt)
		}
		return queries[i].ID < queries[j].ID
	})

	return queries, nil
}

// UpdateQueryStatus updates the status of an existing query record. The
// timestamps are only touched when set.
func (r *Repository) UpdateQueryStatus(ctx context.Context, id string, status model.Status, startedAt, endedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query, ok := r.queries[id]
	if !ok {
		return fmt.Errorf("query %s: %w", id, model.ErrNotFound)
	}

	query.Status = status
	if startedAt != nil {
		query.StartedAt = startedAt
	}
	if endedAt != nil {
		query.EndedAt = endedAt
	}
	r.queries[id] = query
	r.logger.Debugf("Updated query status in repository: %s -> %s", id, status)

	return nil
}
