package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/alecthomas/kingpin/v2"
)

// LogsCommand dumps the build and run log of a query.
type LogsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	queryID string
}

// NewLogsCommand returns the logs command.
func NewLogsCommand(rootCmd *RootCommand, app *kingpin.Application) *LogsCommand {
	c := &LogsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("logs", "Dump the log of a query.")
	c.Cmd.Arg("query-id", "Query ID.").Required().StringVar(&c.queryID)

	return c
}

func (c LogsCommand) Name() string { return c.Cmd.FullCommand() }

func (c LogsCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.apiClient()
	if err != nil {
		return err
	}

	rc, err := cl.Logs(ctx, c.queryID)
	if err != nil {
		return fmt.Errorf("could not get query log: %w", err)
	}
	defer rc.Close()

	if _, err := io.Copy(c.rootCmd.Stdout, rc); err != nil {
		return fmt.Errorf("could not dump query log: %w", err)
	}

	return nil
}
