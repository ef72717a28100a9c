package stages

import (
	"fmt"
	"strconv"

	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/conventions"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/pipeline"
)

func newLaunchCoordinatorStep(env *pipeline.Env) (pipeline.Step, error) {
	if env.Coordinator == nil {
		return nil, fmt.Errorf("launch-coordinator stage requires coordinator params: %w", model.ErrNotValid)
	}

	root := env.Settings.RootDir
	configDir := env.Settings.ConfigDir
	p := env.Coordinator
	collector := conventions.BinaryPath(root, p.BuildID(), conventions.ReportCollectorBin)

	return pipeline.NewCommandStep(pipeline.CommandStepConfig{
		Tag:   pipeline.StageLaunchCoordinator,
		Phase: model.StatusInProgress,
		Command: command.Command{
			Bin: collector,
			Args: []string{
				"--network", conventions.NetworkPath(configDir),
				"--input-file", conventions.InputFilePath(root, p.Size),
				p.Protocol(),
				"--max-breakdown-key", strconv.Itoa(p.MaxBreakdownKey),
				"--per-user-credit-cap", strconv.Itoa(p.PerUserCreditCap),
				"--plaintext-match-keys",
			},
		},
		Runner: env.Runner,
		Logger: env.Logger,
	})
}

func newLaunchHelperStep(env *pipeline.Env) (pipeline.Step, error) {
	if env.Helper == nil {
		return nil, fmt.Errorf("launch-helper stage requires helper params: %w", model.ErrNotValid)
	}

	root := env.Settings.RootDir
	configDir := env.Settings.ConfigDir
	identity := env.Settings.Identity
	helperBin := conventions.BinaryPath(root, env.Helper.BuildID(), conventions.HelperBin)

	return pipeline.NewCommandStep(pipeline.CommandStepConfig{
		Tag:   pipeline.StageLaunchHelper,
		Phase: model.StatusInProgress,
		Command: command.Command{
			Bin: helperBin,
			Args: []string{
				"--network", conventions.NetworkPath(configDir),
				"--identity", strconv.Itoa(identity),
				"--tls-cert", conventions.TLSCertPath(configDir, identity),
				"--tls-key", conventions.TLSKeyPath(configDir, identity),
				"--port", strconv.Itoa(env.Settings.HelperPort),
				"--mk-public-key", conventions.MatchKeyPublicPath(configDir, identity),
				"--mk-private-key", conventions.MatchKeyPrivatePath(configDir, identity),
			},
		},
		Runner: env.Runner,
		Logger: env.Logger,
	})
}
