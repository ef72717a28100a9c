package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/ringside-dev/ringside/pkg/client"
)

// StartCoordinatorCommand starts an IPA coordinator query on the node.
type StartCoordinatorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	queryID           string
	commitHash        string
	size              int
	maxBreakdownKey   int
	maxTriggerValue   int
	perUserCreditCap  int
	maliciousSecurity bool
}

// NewStartCoordinatorCommand returns the start ipa-coordinator command.
func NewStartCoordinatorCommand(rootCmd *RootCommand, startCmd *kingpin.CmdClause) *StartCoordinatorCommand {
	c := &StartCoordinatorCommand{rootCmd: rootCmd}

	c.Cmd = startCmd.Command("ipa-coordinator", "Start an IPA coordinator query (coordinator node only).")
	c.Cmd.Flag("query-id", "Query ID (generated when empty).").StringVar(&c.queryID)
	c.Cmd.Flag("commit-hash", "Source commit to build and run.").Required().StringVar(&c.commitHash)
	c.Cmd.Flag("size", "Number of synthetic input events to generate.").Default("1000").IntVar(&c.size)
	c.Cmd.Flag("max-breakdown-key", "Highest breakdown key in the input.").Default("5").IntVar(&c.maxBreakdownKey)
	c.Cmd.Flag("max-trigger-value", "Highest trigger value in the input.").Default("7").IntVar(&c.maxTriggerValue)
	c.Cmd.Flag("per-user-credit-cap", "Per-user contribution cap.").Default("8").IntVar(&c.perUserCreditCap)
	c.Cmd.Flag("malicious-security", "Run the maliciously secure protocol.").BoolVar(&c.maliciousSecurity)

	return c
}

func (c StartCoordinatorCommand) Name() string { return c.Cmd.FullCommand() }

func (c StartCoordinatorCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.apiClient()
	if err != nil {
		return err
	}

	queryID := c.queryID
	if queryID == "" {
		queryID = newQueryID()
	}

	acceptedID, err := cl.StartCoordinatorQuery(ctx, queryID, client.CoordinatorQueryRequest{
		CommitHash:        c.commitHash,
		Size:              c.size,
		MaxBreakdownKey:   c.maxBreakdownKey,
		MaxTriggerValue:   c.maxTriggerValue,
		PerUserCreditCap:  c.perUserCreditCap,
		MaliciousSecurity: c.maliciousSecurity,
	})
	if err != nil {
		return fmt.Errorf("could not start query: %w", err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Query %s accepted\n", acceptedID)

	return nil
}
