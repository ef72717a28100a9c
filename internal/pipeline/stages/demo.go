package stages

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/pipeline"
)

func newDemoLogStep(env *pipeline.Env) (pipeline.Step, error) {
	if env.Demo == nil {
		return nil, fmt.Errorf("demo-log stage requires demo params: %w", model.ErrNotValid)
	}

	return &demoLogStep{
		lines:   env.Demo.Lines,
		runtime: env.Demo.Runtime,
		logger:  env.Logger,
		stopped: make(chan struct{}),
	}, nil
}

// demoLogStep emits log lines evenly over a runtime. It has no external
// process, which makes it the cheapest way to exercise the whole query
// machinery on a box without toolchains.
type demoLogStep struct {
	lines   int
	runtime time.Duration
	logger  log.Logger

	stopOnce sync.Once
	stopped  chan struct{}
}

var _ pipeline.Step = &demoLogStep{}

// Tag implements Step.
func (s *demoLogStep) Tag() pipeline.StageTag { return pipeline.StageDemoLog }

// Phase implements Step.
func (s *demoLogStep) Phase() model.Status { return model.StatusInProgress }

// PreRun implements Step.
func (s *demoLogStep) PreRun(ctx context.Context) (bool, error) { return false, nil }

// Run implements Step.
func (s *demoLogStep) Run(ctx context.Context) error {
	interval := s.runtime / time.Duration(s.lines)

	for i := 1; i <= s.lines; i++ {
		s.logger.Infof("demo log line %d of %d", i, s.lines)

		if interval <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopped:
			return nil
		case <-time.After(interval):
		}
	}

	return nil
}

// Terminate implements Step.
func (s *demoLogStep) Terminate(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopped) })
	return nil
}

// Kill implements Step.
func (s *demoLogStep) Kill(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopped) })
	return nil
}

// Usage implements Step.
func (s *demoLogStep) Usage() command.Usage { return command.Usage{} }
