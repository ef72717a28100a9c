// Package registry tracks the queries currently running on this node and
// enforces the admission capacity ceiling.
package registry

import (
	"context"

	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/model"
)

// Query is the behavior the registry needs from a runnable query. It is
// satisfied by query.Query.
type Query interface {
	ID() string
	Kind() model.QueryKind
	Status() model.Status
	Event() model.StatusEvent
	Usage() command.Usage
	Run(ctx context.Context) model.Status
	Kill(ctx context.Context) error
	Finish(ctx context.Context) error
}

// Registry is the admission gate and the live query_id -> Query mapping.
// It is the only state shared across concurrently running queries.
type Registry interface {
	// Start admits the query and launches its pipeline in the background.
	// At capacity it returns model.ErrAtCapacity, for an ID that is already
	// running model.ErrAlreadyExists. Queries deregister themselves when
	// their run ends.
	Start(ctx context.Context, q Query) error
	// Get returns the running query for the ID, if any.
	Get(id string) (Query, bool)
	// List returns the running queries sorted by ID.
	List() []Query
	// CapacityAvailable tells whether a new query would be admitted right now.
	CapacityAvailable() bool
	// Stop rejects further admissions and waits for the running queries to
	// end, up to the context deadline.
	Stop(ctx context.Context) error
}
