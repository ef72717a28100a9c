// Package fake has a command runner that simulates processes without
// spawning anything, so full pipelines can run on machines without the git
// and cargo toolchains.
package fake

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/log"
)

// RunnerConfig is the configuration for the fake runner.
type RunnerConfig struct {
	// HoldCommand tells which commands keep running until terminated or
	// killed instead of exiting immediately. Long lived processes (helper
	// servers) are simulated this way.
	HoldCommand func(cmd command.Command) bool
	// FailCommand makes matching commands exit with an error.
	FailCommand func(cmd command.Command) bool
	Logger      log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.HoldCommand == nil {
		c.HoldCommand = func(command.Command) bool { return false }
	}
	if c.FailCommand == nil {
		c.FailCommand = func(command.Command) bool { return false }
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "command.FakeRunner"})
	return nil
}

// Runner is a fake implementation of command.Runner.
type Runner struct {
	hold    func(cmd command.Command) bool
	fail    func(cmd command.Command) bool
	started []command.Command
	mu      sync.Mutex
	logger  log.Logger
}

// NewRunner creates a new fake runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{
		hold:   cfg.HoldCommand,
		fail:   cfg.FailCommand,
		logger: cfg.Logger,
	}, nil
}

var _ command.Runner = &Runner{}

// Start simulates spawning the command.
func (r *Runner) Start(ctx context.Context, cmd command.Command, sink command.LineSink) (command.Process, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = func(string) {}
	}

	r.mu.Lock()
	r.started = append(r.started, cmd)
	r.mu.Unlock()

	r.logger.Infof("Faking process: %s", cmd.String())
	sink(fmt.Sprintf("fake output for: %s", cmd.String()))

	// Honor the data output contract so later stages find their inputs.
	if cmd.OutputPath != "" {
		f, err := os.Create(cmd.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("could not create output file: %w", err)
		}
		_ = f.Close()
	}

	p := &fakeProcess{done: make(chan struct{})}
	switch {
	case r.fail(cmd):
		p.end(fmt.Errorf("fake process failed"))
	case r.hold(cmd):
		// Stays running until Terminate/Kill or ctx cancellation.
		go func() {
			select {
			case <-ctx.Done():
				p.end(fmt.Errorf("signal: killed"))
			case <-p.done:
			}
		}()
	default:
		p.end(nil)
	}

	return p, nil
}

// Started returns a copy of every command started so far.
func (r *Runner) Started() []command.Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmds := make([]command.Command, len(r.started))
	copy(cmds, r.started)
	return cmds
}

type fakeProcess struct {
	waitErr error
	done    chan struct{}
	endOnce sync.Once
}

func (p *fakeProcess) end(err error) {
	p.endOnce.Do(func() {
		p.waitErr = err
		close(p.done)
	})
}

func (p *fakeProcess) Wait() error {
	<-p.done
	return p.waitErr
}

// Terminate mirrors a real process dying to SIGTERM: Wait reports the signal.
func (p *fakeProcess) Terminate() error {
	p.end(fmt.Errorf("signal: terminated"))
	return nil
}

func (p *fakeProcess) Kill() error {
	p.end(fmt.Errorf("signal: killed"))
	return nil
}

func (p *fakeProcess) Usage() command.Usage {
	select {
	case <-p.done:
		return command.Usage{}
	default:
		return command.Usage{CPUPercent: 1.0, RSSBytes: 1 << 20}
	}
}

func (p *fakeProcess) PID() int { return 4242 }
