package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

// FinishCommand signals a running query that the protocol run is over and it
// can stop gracefully.
type FinishCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	queryID string
}

// NewFinishCommand returns the finish command.
func NewFinishCommand(rootCmd *RootCommand, app *kingpin.Application) *FinishCommand {
	c := &FinishCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("finish", "Signal a running query to stop gracefully.")
	c.Cmd.Arg("query-id", "Query ID.").Required().StringVar(&c.queryID)

	return c
}

func (c FinishCommand) Name() string { return c.Cmd.FullCommand() }

func (c FinishCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.apiClient()
	if err != nil {
		return err
	}

	if err := cl.Finish(ctx, c.queryID); err != nil {
		return fmt.Errorf("could not finish query: %w", err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Query %s finishing\n", c.queryID)

	return nil
}
