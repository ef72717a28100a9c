// Package pipeline has the stage engine queries run on: the Step contract,
// the stage tags pipelines are declared with and the environment stages are
// built from. Stages run strictly in sequence, a stage only starts after the
// previous one completed or was skipped.
package pipeline

import (
	"context"
	"fmt"

	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/peer"
	"github.com/ringside-dev/ringside/internal/settings"
)

// StageTag identifies a stage variant. Pipelines are ordered lists of tags.
type StageTag string

const (
	StageClone              StageTag = "clone"
	StagePRRemote           StageTag = "pr-remote"
	StageFetch              StageTag = "fetch"
	StageCheckout           StageTag = "checkout"
	StageCompileCoordinator StageTag = "compile-coordinator"
	StageCompileHelper      StageTag = "compile-helper"
	StageGenerateInput      StageTag = "generate-input"
	StageWaitForHelpers     StageTag = "wait-for-helpers"
	StageLaunchCoordinator  StageTag = "launch-coordinator"
	StageLaunchHelper       StageTag = "launch-helper"
	StageDemoLog            StageTag = "demo-log"
)

// Step is one stage of a query pipeline.
type Step interface {
	// Tag identifies the stage variant.
	Tag() StageTag
	// Phase is the query status this stage declares while it is active.
	Phase() model.Status
	// PreRun prepares the stage and tells whether Run should be skipped.
	PreRun(ctx context.Context) (skip bool, err error)
	// Run executes the stage and blocks until it ends. It must honor ctx
	// cancellation promptly.
	Run(ctx context.Context) error
	// Terminate asks the stage's backing process (if any) to stop gracefully.
	Terminate(ctx context.Context) error
	// Kill stops the stage's backing process (if any) immediately.
	Kill(ctx context.Context) error
	// Usage samples the resource usage of the stage's backing process.
	// Stages without one sample as zero.
	Usage() command.Usage
}

// Builder builds the concrete step of a stage tag.
type Builder interface {
	Build(tag StageTag, env *Env) (Step, error)
}

// Env is everything stages are built from. It is passed explicitly so steps
// never reach for ambient configuration.
type Env struct {
	QueryID  string
	Settings settings.Settings
	Runner   command.Runner
	Ring     peer.Ring
	// Logger is the per-query logger backing the query log file.
	Logger log.Logger

	// Parameters of the query kind. Only the matching one is set.
	Coordinator *model.CoordinatorParams
	Helper      *model.HelperParams
	Demo        *model.DemoParams
}

// Validate validates the stage environment.
func (e *Env) Validate() error {
	if e.QueryID == "" {
		return fmt.Errorf("query id is required: %w", model.ErrNotValid)
	}
	if e.Runner == nil {
		return fmt.Errorf("command runner is required: %w", model.ErrNotValid)
	}
	if e.Logger == nil {
		e.Logger = log.Noop
	}
	return nil
}

// CommitHash returns the source commit the query builds, whichever kind it is.
func (e *Env) CommitHash() string {
	switch {
	case e.Coordinator != nil:
		return e.Coordinator.CommitHash
	case e.Helper != nil:
		return e.Helper.CommitHash
	default:
		return ""
	}
}

// BuildID returns the compiled artifact key of the query, whichever kind it is.
func (e *Env) BuildID() string {
	switch {
	case e.Coordinator != nil:
		return e.Coordinator.BuildID()
	case e.Helper != nil:
		return e.Helper.BuildID()
	default:
		return ""
	}
}
