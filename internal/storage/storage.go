package storage

import (
	"context"
	"time"

	"github.com/ringside-dev/ringside/internal/model"
)

// QueryFilter narrows ListQueries results. Zero values match everything.
type QueryFilter struct {
	Kind   model.QueryKind
	Status model.Status
}

// Repository is the interface for query history persistence. It is what lets
// status lookups keep answering for queries that already left the registry.
type Repository interface {
	CreateQuery(ctx context.Context, q model.QueryRecord) error
	GetQuery(ctx context.Context, id string) (*model.QueryRecord, error)
	ListQueries(ctx context.Context, filter QueryFilter) ([]model.QueryRecord, error)
	UpdateQueryStatus(ctx context.Context, id string, status model.Status, startedAt, endedAt *time.Time) error
}
