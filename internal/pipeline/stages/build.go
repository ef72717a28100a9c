package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/conventions"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/pipeline"
)

// coordinatorFeatures are the cargo features of the report collector build.
const coordinatorFeatures = "clap cli test-fixture"

func newCompileCoordinatorStep(env *pipeline.Env) (pipeline.Step, error) {
	if env.Coordinator == nil {
		return nil, fmt.Errorf("compile-coordinator stage requires coordinator params: %w", model.ErrNotValid)
	}

	root := env.Settings.RootDir

	return pipeline.NewCommandStep(pipeline.CommandStepConfig{
		Tag:   pipeline.StageCompileCoordinator,
		Phase: model.StatusCompiling,
		Command: command.Command{
			Bin: "cargo",
			Args: []string{
				"build",
				"--bin", conventions.ReportCollectorBin,
				"--manifest-path=" + conventions.ManifestPath(root),
				"--features=" + coordinatorFeatures,
				"--target-dir=" + conventions.TargetPath(root, env.Coordinator.BuildID()),
				"--release",
			},
		},
		Runner: env.Runner,
		Logger: env.Logger,
	})
}

func newCompileHelperStep(env *pipeline.Env) (pipeline.Step, error) {
	if env.Helper == nil {
		return nil, fmt.Errorf("compile-helper stage requires helper params: %w", model.ErrNotValid)
	}

	root := env.Settings.RootDir
	features := strings.Join(env.Helper.CargoFeatures(), " ")

	return pipeline.NewCommandStep(pipeline.CommandStepConfig{
		Tag:   pipeline.StageCompileHelper,
		Phase: model.StatusCompiling,
		Command: command.Command{
			Bin: "cargo",
			Args: []string{
				"build",
				"--bin", conventions.HelperBin,
				"--manifest-path=" + conventions.ManifestPath(root),
				"--features=" + features,
				"--no-default-features",
				"--target-dir=" + conventions.TargetPath(root, env.Helper.BuildID()),
				"--release",
			},
		},
		Runner: env.Runner,
		Logger: env.Logger,
	})
}

func newGenerateInputStep(env *pipeline.Env) (pipeline.Step, error) {
	if env.Coordinator == nil {
		return nil, fmt.Errorf("generate-input stage requires coordinator params: %w", model.ErrNotValid)
	}

	root := env.Settings.RootDir
	p := env.Coordinator
	collector := conventions.BinaryPath(root, p.BuildID(), conventions.ReportCollectorBin)
	outputPath := conventions.InputFilePath(root, p.Size)

	return pipeline.NewCommandStep(pipeline.CommandStepConfig{
		Tag:   pipeline.StageGenerateInput,
		Phase: model.StatusCompiling,
		Command: command.Command{
			Bin: collector,
			Args: []string{
				"gen-ipa-inputs",
				"-n", strconv.Itoa(p.Size),
				"--max-breakdown-key", strconv.Itoa(p.MaxBreakdownKey),
				"--report-filter", "all",
				"--max-trigger-value", strconv.Itoa(p.MaxTriggerValue),
				"--seed", "123",
			},
			OutputPath: outputPath,
		},
		Runner: env.Runner,
		Logger: env.Logger,
		PreRun: func(ctx context.Context) (bool, error) {
			if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
				return false, fmt.Errorf("could not create input dir: %w", err)
			}
			return false, nil
		},
	})
}
