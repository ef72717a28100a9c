// Package stages has the closed set of stage variants query pipelines are
// made of, and the ordered stage lists of every query kind.
package stages

import (
	"fmt"

	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/pipeline"
)

// Pipeline returns the ordered stage tags of a query kind.
func Pipeline(kind model.QueryKind) ([]pipeline.StageTag, error) {
	switch kind {
	case model.QueryKindIPACoordinator:
		return []pipeline.StageTag{
			pipeline.StageClone,
			pipeline.StagePRRemote,
			pipeline.StageFetch,
			pipeline.StageCheckout,
			pipeline.StageCompileCoordinator,
			pipeline.StageGenerateInput,
			pipeline.StageWaitForHelpers,
			pipeline.StageLaunchCoordinator,
		}, nil
	case model.QueryKindIPAHelper:
		return []pipeline.StageTag{
			pipeline.StageClone,
			pipeline.StagePRRemote,
			pipeline.StageFetch,
			pipeline.StageCheckout,
			pipeline.StageCompileHelper,
			pipeline.StageLaunchHelper,
		}, nil
	case model.QueryKindDemoLog:
		return []pipeline.StageTag{
			pipeline.StageDemoLog,
		}, nil
	default:
		return nil, fmt.Errorf("query kind %q has no pipeline: %w", kind, model.ErrNotValid)
	}
}

// Builder builds the stage variants.
type Builder struct{}

// NewBuilder creates a new stage builder.
func NewBuilder() *Builder {
	return &Builder{}
}

var _ pipeline.Builder = &Builder{}

// Build implements pipeline.Builder.
func (b *Builder) Build(tag pipeline.StageTag, env *pipeline.Env) (pipeline.Step, error) {
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stage env: %w", err)
	}

	switch tag {
	case pipeline.StageClone:
		return newCloneStep(env)
	case pipeline.StagePRRemote:
		return newPRRemoteStep(env)
	case pipeline.StageFetch:
		return newFetchStep(env)
	case pipeline.StageCheckout:
		return newCheckoutStep(env)
	case pipeline.StageCompileCoordinator:
		return newCompileCoordinatorStep(env)
	case pipeline.StageCompileHelper:
		return newCompileHelperStep(env)
	case pipeline.StageGenerateInput:
		return newGenerateInputStep(env)
	case pipeline.StageWaitForHelpers:
		return newWaitForHelpersStep(env)
	case pipeline.StageLaunchCoordinator:
		return newLaunchCoordinatorStep(env)
	case pipeline.StageLaunchHelper:
		return newLaunchHelperStep(env)
	case pipeline.StageDemoLog:
		return newDemoLogStep(env)
	default:
		return nil, fmt.Errorf("unknown stage %q: %w", tag, model.ErrNotValid)
	}
}
