package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/ringside-dev/ringside/pkg/client"
)

// StartDemoCommand starts a demo-log query, useful to exercise a node
// without a real MPC run.
type StartDemoCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	queryID        string
	lines          int
	runtimeSeconds int
}

// NewStartDemoCommand returns the start demo-log command.
func NewStartDemoCommand(rootCmd *RootCommand, startCmd *kingpin.CmdClause) *StartDemoCommand {
	c := &StartDemoCommand{rootCmd: rootCmd}

	c.Cmd = startCmd.Command("demo-log", "Start a demo query that only writes log lines.")
	c.Cmd.Flag("query-id", "Query ID (generated when empty).").StringVar(&c.queryID)
	c.Cmd.Flag("lines", "Number of log lines to write.").Default("10").IntVar(&c.lines)
	c.Cmd.Flag("runtime-seconds", "Seconds the query stays running.").Default("10").IntVar(&c.runtimeSeconds)

	return c
}

func (c StartDemoCommand) Name() string { return c.Cmd.FullCommand() }

func (c StartDemoCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.apiClient()
	if err != nil {
		return err
	}

	queryID := c.queryID
	if queryID == "" {
		queryID = newQueryID()
	}

	acceptedID, err := cl.StartDemoQuery(ctx, queryID, client.DemoQueryRequest{
		Lines:          c.lines,
		RuntimeSeconds: c.runtimeSeconds,
	})
	if err != nil {
		return fmt.Errorf("could not start query: %w", err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Query %s accepted\n", acceptedID)

	return nil
}
