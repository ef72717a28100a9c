package stages

import (
	"context"
	"fmt"
	"os"

	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/conventions"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/pipeline"
)

// prRemoteRefspec makes PR heads fetchable so queries can pin commits from
// unmerged pull requests.
const prRemoteRefspec = "+refs/pull/*/head:refs/remotes/origin/pr/*"

func newCloneStep(env *pipeline.Env) (pipeline.Step, error) {
	repoPath := conventions.RepoPath(env.Settings.RootDir)

	return pipeline.NewCommandStep(pipeline.CommandStepConfig{
		Tag:   pipeline.StageClone,
		Phase: model.StatusStarting,
		Command: command.Command{
			Bin:  "git",
			Args: []string{"clone", env.Settings.RepoURL, repoPath},
		},
		Runner: env.Runner,
		Logger: env.Logger,
		PreRun: func(ctx context.Context) (bool, error) {
			// An existing checkout makes cloning a no-op.
			if _, err := os.Stat(repoPath); err == nil {
				return true, nil
			}
			return false, nil
		},
	})
}

func newPRRemoteStep(env *pipeline.Env) (pipeline.Step, error) {
	repoPath := conventions.RepoPath(env.Settings.RootDir)

	return pipeline.NewCommandStep(pipeline.CommandStepConfig{
		Tag:   pipeline.StagePRRemote,
		Phase: model.StatusStarting,
		Command: command.Command{
			Bin:  "git",
			Args: []string{"-C", repoPath, "config", "--add", "remote.origin.fetch", prRemoteRefspec},
		},
		Runner: env.Runner,
		Logger: env.Logger,
	})
}

func newFetchStep(env *pipeline.Env) (pipeline.Step, error) {
	repoPath := conventions.RepoPath(env.Settings.RootDir)

	return pipeline.NewCommandStep(pipeline.CommandStepConfig{
		Tag:   pipeline.StageFetch,
		Phase: model.StatusStarting,
		Command: command.Command{
			Bin:  "git",
			Args: []string{"-C", repoPath, "fetch", "--all"},
		},
		Runner: env.Runner,
		Logger: env.Logger,
	})
}

func newCheckoutStep(env *pipeline.Env) (pipeline.Step, error) {
	commit := env.CommitHash()
	if commit == "" {
		return nil, fmt.Errorf("checkout stage requires a commit hash: %w", model.ErrNotValid)
	}

	repoPath := conventions.RepoPath(env.Settings.RootDir)

	return pipeline.NewCommandStep(pipeline.CommandStepConfig{
		Tag:   pipeline.StageCheckout,
		Phase: model.StatusStarting,
		Command: command.Command{
			Bin:  "git",
			Args: []string{"-C", repoPath, "checkout", "-f", commit},
		},
		Runner: env.Runner,
		Logger: env.Logger,
	})
}
