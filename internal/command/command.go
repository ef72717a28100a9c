// Package command runs the external processes that back query stages and
// exposes their lifecycle: start, wait, graceful and hard stop, and resource
// usage sampling.
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/ringside-dev/ringside/internal/model"
)

// Command is a fully rendered process invocation. Args are passed to the
// process as-is, nothing goes through a shell.
type Command struct {
	Bin  string
	Args []string
	Dir  string
	// OutputPath, when set, receives the process stdout verbatim (commands
	// whose stdout is data, not diagnostics). Stderr still goes to the sink.
	OutputPath string
}

// Validate validates the command.
func (c Command) Validate() error {
	if c.Bin == "" {
		return fmt.Errorf("command binary is required: %w", model.ErrNotValid)
	}
	return nil
}

// String renders the command for logging.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Bin
	}
	return c.Bin + " " + strings.Join(c.Args, " ")
}

// Usage is a point-in-time resource sample of a running process.
type Usage struct {
	CPUPercent float64
	RSSBytes   uint64
}

// LineSink receives process output one line at a time.
type LineSink func(line string)

// Process is a started command.
type Process interface {
	// Wait blocks until the process ends and output is drained. It returns
	// an error when the process exited non-zero or was signaled.
	Wait() error
	// Terminate asks the process to stop gracefully.
	Terminate() error
	// Kill stops the process immediately.
	Kill() error
	// Usage samples the current resource usage of the process. A process
	// that is gone samples as zero.
	Usage() Usage
	// PID returns the OS process ID.
	PID() int
}

// Runner starts commands.
type Runner interface {
	Start(ctx context.Context, cmd Command, sink LineSink) (Process, error)
}
