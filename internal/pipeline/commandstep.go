package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
)

// CommandStepConfig configures a process-backed stage.
type CommandStepConfig struct {
	Tag     StageTag
	Phase   model.Status
	Command command.Command
	Runner  command.Runner
	Logger  log.Logger
	// PreRun, when set, runs as the stage's PreRun.
	PreRun func(ctx context.Context) (skip bool, err error)
}

func (c *CommandStepConfig) defaults() error {
	if c.Tag == "" {
		return fmt.Errorf("stage tag is required: %w", model.ErrNotValid)
	}
	if c.Phase == "" {
		return fmt.Errorf("stage phase is required: %w", model.ErrNotValid)
	}
	if err := c.Command.Validate(); err != nil {
		return err
	}
	if c.Runner == nil {
		return fmt.Errorf("command runner is required: %w", model.ErrNotValid)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	return nil
}

// CommandStep is the shared base of stages backed by a single process. The
// process output is piped line by line into the query logger, except for
// data producing commands whose stdout goes to their output file.
type CommandStep struct {
	tag    StageTag
	phase  model.Status
	cmd    command.Command
	runner command.Runner
	logger log.Logger
	pre    func(ctx context.Context) (bool, error)

	mu   sync.Mutex
	proc command.Process
}

// NewCommandStep creates a new process-backed stage.
func NewCommandStep(cfg CommandStepConfig) (*CommandStep, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &CommandStep{
		tag:    cfg.Tag,
		phase:  cfg.Phase,
		cmd:    cfg.Command,
		runner: cfg.Runner,
		logger: cfg.Logger,
		pre:    cfg.PreRun,
	}, nil
}

var _ Step = &CommandStep{}

// Tag implements Step.
func (s *CommandStep) Tag() StageTag { return s.tag }

// Phase implements Step.
func (s *CommandStep) Phase() model.Status { return s.phase }

// PreRun implements Step.
func (s *CommandStep) PreRun(ctx context.Context) (bool, error) {
	if s.pre == nil {
		return false, nil
	}
	return s.pre(ctx)
}

// Run implements Step. It spawns the stage process and blocks until it ends.
func (s *CommandStep) Run(ctx context.Context) error {
	s.logger.Infof("Running command: %s", s.cmd.String())

	sink := func(line string) { s.logger.Infof("%s", line) }
	proc, err := s.runner.Start(ctx, s.cmd, sink)
	if err != nil {
		return fmt.Errorf("could not start stage process: %w", err)
	}

	s.mu.Lock()
	s.proc = proc
	s.mu.Unlock()

	if err := proc.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("stage process failed: %w", err)
	}

	return nil
}

// Terminate implements Step.
func (s *CommandStep) Terminate(ctx context.Context) error {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()

	if proc == nil {
		return nil
	}
	return proc.Terminate()
}

// Kill implements Step.
func (s *CommandStep) Kill(ctx context.Context) error {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()

	if proc == nil {
		return nil
	}
	return proc.Kill()
}

// Usage implements Step.
func (s *CommandStep) Usage() command.Usage {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()

	if proc == nil {
		return command.Usage{}
	}
	return proc.Usage()
}
