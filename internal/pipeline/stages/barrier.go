package stages

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/peer"
	"github.com/ringside-dev/ringside/internal/pipeline"
)

func newWaitForHelpersStep(env *pipeline.Env) (pipeline.Step, error) {
	if env.Ring == nil {
		return nil, fmt.Errorf("wait-for-helpers stage requires a peer ring: %w", model.ErrNotValid)
	}

	return &waitForHelpersStep{
		queryID:      env.QueryID,
		peers:        env.Settings.OtherPeers(),
		ring:         env.Ring,
		pollInterval: env.Settings.PollInterval,
		unknownWait:  env.Settings.UnknownStatusWait,
		grace:        env.Settings.StartupGrace,
		logger:       env.Logger,
		stopped:      make(chan struct{}),
	}, nil
}

// waitForHelpersStep is the start barrier: it holds the coordinator pipeline
// until every peer reports its query in progress. Peers are polled one at a
// time in identity order; a terminal answer from any peer aborts the barrier
// without polling the remaining ones.
type waitForHelpersStep struct {
	queryID      string
	peers        []model.Peer
	ring         peer.Ring
	pollInterval time.Duration
	unknownWait  time.Duration
	grace        time.Duration
	logger       log.Logger

	stopOnce sync.Once
	stopped  chan struct{}
}

var _ pipeline.Step = &waitForHelpersStep{}

// Tag implements Step.
func (s *waitForHelpersStep) Tag() pipeline.StageTag { return pipeline.StageWaitForHelpers }

// Phase implements Step.
func (s *waitForHelpersStep) Phase() model.Status { return model.StatusWaitingToStart }

// PreRun implements Step.
func (s *waitForHelpersStep) PreRun(ctx context.Context) (bool, error) { return false, nil }

// Run implements Step.
func (s *waitForHelpersStep) Run(ctx context.Context) error {
	for _, p := range s.peers {
		if err := s.waitForPeer(ctx, p); err != nil {
			return err
		}
	}

	// All peers are ready: hold the grace period so their processes settle
	// before the coordinator starts driving them.
	s.logger.Infof("All %d peers ready, holding %s before start", len(s.peers), s.grace)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return fmt.Errorf("barrier stopped while holding start grace")
	case <-time.After(s.grace):
	}

	return nil
}

// waitForPeer polls a single peer until it is ready or hopeless.
func (s *waitForHelpersStep) waitForPeer(ctx context.Context, p model.Peer) error {
	var unknownFor time.Duration

	for {
		switch st := s.ring.Status(ctx, p, s.queryID); st {
		case model.StatusInProgress:
			s.logger.Infof("Peer %d is ready", p.Identity)
			return nil

		case model.StatusKilled, model.StatusCrashed, model.StatusNotFound, model.StatusComplete:
			return fmt.Errorf("peer %d reported %s before start", p.Identity, st)

		case model.StatusUnknown:
			// Unknown answers cover the gap between remote registration and
			// poll visibility. They're tolerated only up to a budget so a
			// dead peer doesn't hold the barrier forever.
			if unknownFor >= s.unknownWait {
				return fmt.Errorf("peer %d status unknown for %s, giving up", p.Identity, unknownFor)
			}
			unknownFor += s.pollInterval

		default:
			// STARTING, COMPILING, WAITING_TO_START: still on its way.
			s.logger.Debugf("Peer %d reported %s, waiting", p.Identity, st)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopped:
			return fmt.Errorf("barrier stopped while waiting for peer %d", p.Identity)
		case <-time.After(s.pollInterval):
		}
	}
}

// Terminate implements Step. The barrier has no backing process, stopping it
// just unblocks the poll loop.
func (s *waitForHelpersStep) Terminate(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopped) })
	return nil
}

// Kill implements Step.
func (s *waitForHelpersStep) Kill(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopped) })
	return nil
}

// Usage implements Step.
func (s *waitForHelpersStep) Usage() command.Usage { return command.Usage{} }
