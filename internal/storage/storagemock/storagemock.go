// Package storagemock has mocks for the query history repository.
package storagemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/storage"
)

// MockRepository is a mock implementation of storage.Repository.
type MockRepository struct {
	mock.Mock
}

var _ storage.Repository = &MockRepository{}

// CreateQuery mock.
func (m *MockRepository) CreateQuery(ctx context.Context, q model.QueryRecord) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

// GetQuery mock.
func (m *MockRepository) GetQuery(ctx context.Context, id string) (*model.QueryRecord, error) {
	args := m.Called(ctx, id)

	var q *model.QueryRecord
	if v := args.Get(0); v != nil {
		q = v.(*model.QueryRecord)
	}
	return q, args.Error(1)
}

// ListQueries mock.
func (m *MockRepository) ListQueries(ctx context.Context, filter storage.QueryFilter) ([]model.QueryRecord, error) {
	args := m.Called(ctx, filter)

	var qs []model.QueryRecord
	if v := args.Get(0); v != nil {
		qs = v.([]model.QueryRecord)
	}
	return qs, args.Error(1)
}

// UpdateQueryStatus mock.
func (m *MockRepository) UpdateQueryStatus(ctx context.Context, id string, status model.Status, startedAt, endedAt *time.Time) error {
	args := m.Called(ctx, id, status, startedAt, endedAt)
	return args.Error(0)
}
