// Package memory implements the query registry in memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/metrics"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/registry"
)

// RegistryConfig is the configuration of the in-memory registry.
type RegistryConfig struct {
	// MaxConcurrentQueries is the admission ceiling.
	MaxConcurrentQueries int
	MetricsRecorder      metrics.Recorder
	Logger               log.Logger
}

func (c *RegistryConfig) defaults() error {
	if c.MaxConcurrentQueries <= 0 {
		return fmt.Errorf("max concurrent queries must be positive")
	}

	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Noop
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "registry.Registry"})

	return nil
}

// Registry tracks running queries in a map and runs each admitted query on
// its own goroutine. Admitted queries run on the registry's internal
// context, not the caller's, so they outlive the request that started them.
type Registry struct {
	max     int
	metrics metrics.Recorder
	logger  log.Logger

	mu      sync.RWMutex
	queries map[string]registry.Query
	stopped bool
	running sync.WaitGroup

	runCtx    context.Context
	cancelRun context.CancelFunc
}

// NewRegistry returns a new in-memory registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	err := cfg.defaults()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Registry{
		max:       cfg.MaxConcurrentQueries,
		metrics:   cfg.MetricsRecorder,
		logger:    cfg.Logger,
		queries:   map[string]registry.Query{},
		runCtx:    ctx,
		cancelRun: cancel,
	}, nil
}

var _ registry.Registry = &Registry{}

// Start admits the query and launches its pipeline on a new goroutine.
func (r *Registry) Start(_ context.Context, q registry.Query) error {
	r.mu.Lock()

	if r.stopped {
		r.mu.Unlock()
		return fmt.Errorf("registry is shutting down, not admitting queries")
	}

	if _, ok := r.queries[q.ID()]; ok {
		r.mu.Unlock()
		return fmt.Errorf("query %q is already running: %w", q.ID(), model.ErrAlreadyExists)
	}

	if len(r.queries) >= r.max {
		r.mu.Unlock()
		return fmt.Errorf("%d queries already running: %w", r.max, model.ErrAtCapacity)
	}

	r.queries[q.ID()] = q
	running := len(r.queries)
	r.running.Add(1)
	r.mu.Unlock()

	r.metrics.IncQueryStarted(string(q.Kind()))
	r.metrics.SetRunningQueries(running)
	r.logger.WithValues(log.Kv{"query-id": q.ID()}).Infof("Query admitted (%d/%d slots used)", running, r.max)

	go func() {
		defer r.running.Done()

		final := q.Run(r.runCtx)

		r.mu.Lock()
		delete(r.queries, q.ID())
		left := len(r.queries)
		r.mu.Unlock()

		r.metrics.IncQueryEnded(string(final))
		r.metrics.SetRunningQueries(left)
		r.logger.WithValues(log.Kv{"query-id": q.ID()}).Debugf("Query deregistered")
	}()

	return nil
}

// Get returns the running query for the ID, if any.
func (r *Registry) Get(id string) (registry.Query, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.queries[id]
	return q, ok
}

// List returns the running queries sorted by ID.
func (r *Registry) List() []registry.Query {
	r.mu.RLock()
	defer r.mu.RUnlock()

	qs := make([]registry.Query, 0, len(r.queries))
	for _, q := range r.queries {
		qs = append(qs, q)
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID() < qs[j].ID() })

	return qs
}

// CapacityAvailable tells whether a new query would be admitted right now.
func (r *Registry) CapacityAvailable() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return !r.stopped && len(r.queries) < r.max
}

// Stop rejects further admissions, cancels the running queries and waits for
// them to deregister, up to the context deadline.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.cancelRun()

	done := make(chan struct{})
	go func() {
		r.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queries still running after shutdown deadline: %w", ctx.Err())
	}
}
