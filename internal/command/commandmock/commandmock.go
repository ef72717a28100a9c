// Package commandmock has mocks for the command runner and processes.
package commandmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ringside-dev/ringside/internal/command"
)

// MockRunner is a mock implementation of command.Runner.
type MockRunner struct {
	mock.Mock
}

var _ command.Runner = &MockRunner{}

// Start mock.
func (m *MockRunner) Start(ctx context.Context, cmd command.Command, sink command.LineSink) (command.Process, error) {
	args := m.Called(ctx, cmd, sink)

	var proc command.Process
	if p := args.Get(0); p != nil {
		proc = p.(command.Process)
	}
	return proc, args.Error(1)
}

// MockProcess is a mock implementation of command.Process.
type MockProcess struct {
	mock.Mock
}

var _ command.Process = &MockProcess{}

// Wait mock.
func (m *MockProcess) Wait() error {
	args := m.Called()
	return args.Error(0)
}

// Terminate mock.
func (m *MockProcess) Terminate() error {
	args := m.Called()
	return args.Error(0)
}

// Kill mock.
func (m *MockProcess) Kill() error {
	args := m.Called()
	return args.Error(0)
}

// Usage mock.
func (m *MockProcess) Usage() command.Usage {
	args := m.Called()
	return args.Get(0).(command.Usage)
}

// PID mock.
func (m *MockProcess) PID() int {
	args := m.Called()
	return args.Int(0)
}
