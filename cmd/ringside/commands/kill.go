package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

// KillCommand terminates a running query.
type KillCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	queryID string
}

// NewKillCommand returns the kill command.
func NewKillCommand(rootCmd *RootCommand, app *kingpin.Application) *KillCommand {
	c := &KillCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("kill", "Kill a running query on the node.")
	c.Cmd.Arg("query-id", "Query ID.").Required().StringVar(&c.queryID)

	return c
}

func (c KillCommand) Name() string { return c.Cmd.FullCommand() }

func (c KillCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.apiClient()
	if err != nil {
		return err
	}

	if err := cl.Kill(ctx, c.queryID); err != nil {
		return fmt.Errorf("could not kill query: %w", err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Query %s killed\n", c.queryID)

	return nil
}
