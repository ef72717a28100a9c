package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/pkg/client"
)

// StartHelperCommand starts an IPA helper query on the node.
type StartHelperCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	queryID           string
	commitHash        string
	gateType          string
	stallDetection    bool
	multiThreading    bool
	disableMetrics    bool
	revealAggregation bool
}

// NewStartHelperCommand returns the start ipa-helper command.
func NewStartHelperCommand(rootCmd *RootCommand, startCmd *kingpin.CmdClause) *StartHelperCommand {
	c := &StartHelperCommand{rootCmd: rootCmd}

	c.Cmd = startCmd.Command("ipa-helper", "Start an IPA helper query (helper nodes only).")
	c.Cmd.Flag("query-id", "Query ID (generated when empty).").StringVar(&c.queryID)
	c.Cmd.Flag("commit-hash", "Source commit to build and run.").Required().StringVar(&c.commitHash)
	c.Cmd.Flag("gate-type", "MPC circuit gate type.").Default(string(model.GateTypeCompact)).EnumVar(&c.gateType, string(model.GateTypeCompact), string(model.GateTypeDescriptive))
	c.Cmd.Flag("stall-detection", "Enable stall detection.").BoolVar(&c.stallDetection)
	c.Cmd.Flag("multi-threading", "Enable multi-threading.").BoolVar(&c.multiThreading)
	c.Cmd.Flag("disable-metrics", "Disable the helper metrics collection.").BoolVar(&c.disableMetrics)
	c.Cmd.Flag("reveal-aggregation", "Reveal the aggregated result to the helpers.").BoolVar(&c.revealAggregation)

	return c
}

func (c StartHelperCommand) Name() string { return c.Cmd.FullCommand() }

func (c StartHelperCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.apiClient()
	if err != nil {
		return err
	}

	queryID := c.queryID
	if queryID == "" {
		queryID = newQueryID()
	}

	acceptedID, err := cl.StartHelperQuery(ctx, queryID, client.HelperQueryRequest{
		CommitHash:        c.commitHash,
		GateType:          c.gateType,
		StallDetection:    c.stallDetection,
		MultiThreading:    c.multiThreading,
		DisableMetrics:    c.disableMetrics,
		RevealAggregation: c.revealAggregation,
	})
	if err != nil {
		return fmt.Errorf("could not start query: %w", err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Query %s accepted\n", acceptedID)

	return nil
}
