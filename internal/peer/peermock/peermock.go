// Package peermock has mocks for the peer ring.
package peermock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/peer"
)

// MockRing is a mock implementation of peer.Ring.
type MockRing struct {
	mock.Mock
}

var _ peer.Ring = &MockRing{}

// Status mock.
func (m *MockRing) Status(ctx context.Context, p model.Peer, queryID string) model.Status {
	args := m.Called(ctx, p, queryID)
	return args.Get(0).(model.Status)
}

// Kill mock.
func (m *MockRing) Kill(ctx context.Context, p model.Peer, queryID string) error {
	args := m.Called(ctx, p, queryID)
	return args.Error(0)
}

// Finish mock.
func (m *MockRing) Finish(ctx context.Context, p model.Peer, queryID string) error {
	args := m.Called(ctx, p, queryID)
	return args.Error(0)
}
