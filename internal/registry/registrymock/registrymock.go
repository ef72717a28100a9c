// Package registrymock has mocks for the query registry.
package registrymock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/registry"
)

// MockRegistry is a mock implementation of registry.Registry.
type MockRegistry struct {
	mock.Mock
}

var _ registry.Registry = &MockRegistry{}

// Start mock.
func (m *MockRegistry) Start(ctx context.Context, q registry.Query) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

// Get mock.
func (m *MockRegistry) Get(id string) (registry.Query, bool) {
	args := m.Called(id)

	var q registry.Query
	if v := args.Get(0); v != nil {
		q = v.(registry.Query)
	}

	return q, args.Bool(1)
}

// List mock.
func (m *MockRegistry) List() []registry.Query {
	args := m.Called()

	var qs []registry.Query
	if v := args.Get(0); v != nil {
		qs = v.([]registry.Query)
	}

	return qs
}

// CapacityAvailable mock.
func (m *MockRegistry) CapacityAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

// Stop mock.
func (m *MockRegistry) Stop(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockQuery is a mock implementation of registry.Query.
type MockQuery struct {
	mock.Mock
}

var _ registry.Query = &MockQuery{}

// ID mock.
func (m *MockQuery) ID() string {
	args := m.Called()
	return args.String(0)
}

// Kind mock.
func (m *MockQuery) Kind() model.QueryKind {
	args := m.Called()
	return args.Get(0).(model.QueryKind)
}

// Status mock.
func (m *MockQuery) Status() model.Status {
	args := m.Called()
	return args.Get(0).(model.Status)
}

// Event mock.
func (m *MockQuery) Event() model.StatusEvent {
	args := m.Called()
	return args.Get(0).(model.StatusEvent)
}

// Usage mock.
func (m *MockQuery) Usage() command.Usage {
	args := m.Called()
	return args.Get(0).(command.Usage)
}

// Run mock.
func (m *MockQuery) Run(ctx context.Context) model.Status {
	args := m.Called(ctx)
	return args.Get(0).(model.Status)
}

// Kill mock.
func (m *MockQuery) Kill(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Finish mock.
func (m *MockQuery) Finish(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
