// Package query has the query aggregate: one running pipeline plus the
// lifecycle state machine around it (status, kill/finish intents, peer
// fan-out and history updates).
package query

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/metrics"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/peer"
	"github.com/ringside-dev/ringside/internal/pipeline"
	"github.com/ringside-dev/ringside/internal/pipeline/stages"
	"github.com/ringside-dev/ringside/internal/settings"
	"github.com/ringside-dev/ringside/internal/storage"
)

// QueryConfig is the configuration to create a query.
type QueryConfig struct {
	ID   string
	Kind model.QueryKind

	// Parameters of the query kind. Exactly the matching one must be set.
	Coordinator *model.CoordinatorParams
	Helper      *model.HelperParams
	Demo        *model.DemoParams

	Settings settings.Settings
	Runner   command.Runner
	Ring     peer.Ring
	Builder  pipeline.Builder
	History  storage.Repository

	// QueryLogger is the per-query logger backing the query log file. Its
	// lines are what the log endpoint serves.
	QueryLogger log.Logger
	// LogCloser, when set, is closed once the query ends (the log file).
	LogCloser io.Closer
	// Logger is the daemon logger.
	Logger          log.Logger
	MetricsRecorder metrics.Recorder
}

func (c *QueryConfig) defaults() error {
	if c.ID == "" {
		return fmt.Errorf("query id is required: %w", model.ErrNotValid)
	}

	switch c.Kind {
	case model.QueryKindIPACoordinator:
		if c.Coordinator == nil {
			return fmt.Errorf("coordinator parameters are required: %w", model.ErrNotValid)
		}
		if err := c.Coordinator.Validate(); err != nil {
			return err
		}
	case model.QueryKindIPAHelper:
		if c.Helper == nil {
			return fmt.Errorf("helper parameters are required: %w", model.ErrNotValid)
		}
		if err := c.Helper.Validate(); err != nil {
			return err
		}
	case model.QueryKindDemoLog:
		if c.Demo == nil {
			return fmt.Errorf("demo parameters are required: %w", model.ErrNotValid)
		}
		if err := c.Demo.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown query kind %q: %w", c.Kind, model.ErrNotValid)
	}

	if c.Runner == nil {
		return fmt.Errorf("command runner is required: %w", model.ErrNotValid)
	}
	if c.Ring == nil {
		return fmt.Errorf("peer ring is required: %w", model.ErrNotValid)
	}
	if c.Builder == nil {
		return fmt.Errorf("stage builder is required: %w", model.ErrNotValid)
	}
	if c.History == nil {
		return fmt.Errorf("history repository is required: %w", model.ErrNotValid)
	}
	if c.QueryLogger == nil {
		c.QueryLogger = log.Noop
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "query.Query", "query-id": c.ID})
	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Noop
	}

	return nil
}

// Query drives one query through its pipeline. It is safe for concurrent use:
// Run executes on the registry's goroutine while Kill, Finish, Status and
// Usage are called from API handlers.
type Query struct {
	id       string
	kind     model.QueryKind
	env      *pipeline.Env
	builder  pipeline.Builder
	ring     peer.Ring
	history  storage.Repository
	settings settings.Settings
	qlogger  log.Logger
	closer   io.Closer
	logger   log.Logger
	metrics  metrics.Recorder

	mu        sync.Mutex
	current   pipeline.Step
	status    model.Status
	startedAt *time.Time
	endedAt   *time.Time
	killed    bool
	finished  bool
	cancel    context.CancelFunc
}

// NewQuery creates a new query ready to run.
func NewQuery(cfg QueryConfig) (*Query, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Query{
		id:      cfg.ID,
		kind:    cfg.Kind,
		builder: cfg.Builder,
		ring:    cfg.Ring,
		history: cfg.History,
		env: &pipeline.Env{
			QueryID:     cfg.ID,
			Settings:    cfg.Settings,
			Runner:      cfg.Runner,
			Ring:        cfg.Ring,
			Logger:      cfg.QueryLogger,
			Coordinator: cfg.Coordinator,
			Helper:      cfg.Helper,
			Demo:        cfg.Demo,
		},
		settings: cfg.Settings,
		qlogger:  cfg.QueryLogger,
		closer:   cfg.LogCloser,
		logger:   cfg.Logger,
		metrics:  cfg.MetricsRecorder,
		status:   model.StatusStarting,
	}, nil
}

// ID returns the query ID.
func (q *Query) ID() string { return q.id }

// Kind returns the query kind.
func (q *Query) Kind() model.QueryKind { return q.kind }

// Status returns the current lifecycle status.
func (q *Query) Status() model.Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.status
}

// Event returns the current status payload.
func (q *Query) Event() model.StatusEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	return model.StatusEvent{Status: q.status, StartedAt: q.startedAt, EndedAt: q.endedAt}
}

// Usage samples the resource usage of the active stage's process.
func (q *Query) Usage() command.Usage {
	q.mu.Lock()
	current := q.current
	terminal := q.status.IsTerminal()
	q.mu.Unlock()

	if current == nil || terminal {
		return command.Usage{}
	}
	return current.Usage()
}

// Run walks the pipeline until it ends and settles the final status. It
// blocks for the whole query lifetime and returns the final status.
func (q *Query) Run(ctx context.Context) model.Status {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	q.mu.Lock()
	q.cancel = cancel
	q.mu.Unlock()

	if q.closer != nil {
		defer func() {
			if err := q.closer.Close(); err != nil {
				q.logger.Warningf("Could not close query log: %s", err)
			}
		}()
	}

	err := q.run(ctx)

	q.mu.Lock()
	killed, finished := q.killed, q.finished
	q.mu.Unlock()

	var final model.Status
	switch {
	case killed:
		final = model.StatusKilled
	case finished:
		final = model.StatusComplete
	case err != nil:
		final = model.StatusCrashed
	default:
		final = model.StatusComplete
	}

	if final == model.StatusCrashed {
		q.qlogger.Errorf("Query crashed: %s", err)
		q.logger.Errorf("Query crashed: %s", err)
		q.fanOutKill(ctx)
	}
	if final == model.StatusComplete && q.kind == model.QueryKindIPACoordinator {
		q.fanOutFinish(ctx)
	}

	now := time.Now().UTC()
	q.mu.Lock()
	q.status = final
	q.endedAt = &now
	q.current = nil
	q.mu.Unlock()

	// The run context may already be canceled, history still has to hear
	// about the final status.
	q.persist(context.Background(), final, nil, &now)
	q.qlogger.Infof("Query ended with status %s", final)
	q.logger.Infof("Query ended with status %s", final)

	return final
}

func (q *Query) run(ctx context.Context) error {
	tags, err := stages.Pipeline(q.kind)
	if err != nil {
		return err
	}

	total := len(tags)
	for i, tag := range tags {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.mu.Lock()
		killed, finished := q.killed, q.finished
		q.mu.Unlock()
		if killed {
			return fmt.Errorf("query killed before stage %s", tag)
		}
		if finished {
			return nil
		}

		step, err := q.builder.Build(tag, q.env)
		if err != nil {
			return fmt.Errorf("could not build stage %s: %w", tag, err)
		}

		q.qlogger.Infof("[%d/%d] %s", i+1, total, q.describeStage(tag))
		q.setCurrent(ctx, step)

		skip, err := step.PreRun(ctx)
		if err != nil {
			q.metrics.IncStageFailure(string(tag))
			return fmt.Errorf("stage %s could not prepare: %w", tag, err)
		}
		if skip {
			q.qlogger.Infof("Stage %s skipped", tag)
			continue
		}

		if err := step.Run(ctx); err != nil {
			q.metrics.IncStageFailure(string(tag))
			return fmt.Errorf("stage %s failed: %w", tag, err)
		}
	}

	return nil
}

// setCurrent makes the step the active one and moves the reported status to
// its phase, persisting the transition.
func (q *Query) setCurrent(ctx context.Context, step pipeline.Step) {
	phase := step.Phase()

	q.mu.Lock()
	q.current = step
	changed := q.status != phase
	q.status = phase

	var startedAt *time.Time
	if phase == model.StatusInProgress && q.startedAt == nil {
		now := time.Now().UTC()
		q.startedAt = &now
		startedAt = &now
	}
	q.mu.Unlock()

	if changed {
		q.persist(ctx, phase, startedAt, nil)
	}
}

// Kill stops the query immediately. The active stage's process is killed and
// the final status becomes KILLED. Killing an already ended query is a no-op.
func (q *Query) Kill(ctx context.Context) error {
	q.mu.Lock()
	if q.status.IsTerminal() {
		q.mu.Unlock()
		return nil
	}
	q.killed = true
	step := q.current
	cancel := q.cancel
	q.mu.Unlock()

	q.qlogger.Infof("Kill requested")
	if step != nil {
		if err := step.Kill(ctx); err != nil {
			q.logger.Warningf("Could not kill active stage: %s", err)
		}
	}
	if cancel != nil {
		cancel()
	}

	return nil
}

// Finish ends the query as completed. The active stage's process is asked to
// stop gracefully and the final status becomes COMPLETE. This is how helper
// launch processes, which never exit on their own, are wound down once the
// coordinator is done. Finishing an already ended query is a no-op.
func (q *Query) Finish(ctx context.Context) error {
	q.mu.Lock()
	if q.status.IsTerminal() {
		q.mu.Unlock()
		return nil
	}
	q.finished = true
	step := q.current
	q.mu.Unlock()

	q.qlogger.Infof("Finish requested")
	if step != nil {
		if err := step.Terminate(ctx); err != nil {
			q.logger.Warningf("Could not terminate active stage: %s", err)
		}
	}

	return nil
}

// fanOutKill tells every other peer to kill its half of the query. One
// attempt per peer, failures are logged and never block the remaining peers.
func (q *Query) fanOutKill(ctx context.Context) {
	for _, p := range q.settings.OtherPeers() {
		if err := q.ring.Kill(ctx, p, q.id); err != nil {
			q.qlogger.Warningf("Could not request kill on peer %d: %s", p.Identity, err)
			continue
		}
		q.qlogger.Infof("Requested kill on peer %d", p.Identity)
	}
}

// fanOutFinish tells every other peer the query is done so they can wind
// down their helper processes.
func (q *Query) fanOutFinish(ctx context.Context) {
	for _, p := range q.settings.OtherPeers() {
		if err := q.ring.Finish(ctx, p, q.id); err != nil {
			q.qlogger.Warningf("Could not request finish on peer %d: %s", p.Identity, err)
			continue
		}
		q.qlogger.Infof("Requested finish on peer %d", p.Identity)
	}
}

func (q *Query) persist(ctx context.Context, status model.Status, startedAt, endedAt *time.Time) {
	if err := q.history.UpdateQueryStatus(ctx, q.id, status, startedAt, endedAt); err != nil {
		q.logger.Warningf("Could not update query history: %s", err)
	}
}

func (q *Query) describeStage(tag pipeline.StageTag) string {
	switch tag {
	case pipeline.StageClone:
		return fmt.Sprintf("Cloning %s", q.settings.RepoURL)
	case pipeline.StagePRRemote:
		return "Configuring pull request remote"
	case pipeline.StageFetch:
		return "Fetching repository updates"
	case pipeline.StageCheckout:
		return fmt.Sprintf("Checking out %s", q.env.CommitHash())
	case pipeline.StageCompileCoordinator:
		return fmt.Sprintf("Compiling report collector (build %s)", q.env.BuildID())
	case pipeline.StageCompileHelper:
		return fmt.Sprintf("Compiling helper (build %s)", q.env.BuildID())
	case pipeline.StageGenerateInput:
		return fmt.Sprintf("Generating %d input events", q.env.Coordinator.Size)
	case pipeline.StageWaitForHelpers:
		return "Waiting for helpers to start"
	case pipeline.StageLaunchCoordinator:
		return "Launching report collector"
	case pipeline.StageLaunchHelper:
		return "Launching helper server"
	case pipeline.StageDemoLog:
		return "Emitting demo log lines"
	default:
		return string(tag)
	}
}
