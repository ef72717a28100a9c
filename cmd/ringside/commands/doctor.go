package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/ringside-dev/ringside/internal/app/doctor"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/printer"
)

// DoctorCommand runs the node preflight checks.
type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("doctor", "Check the node is ready to run queries.")
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	sts, err := loadSettings(ctx, c.rootCmd.ConfigPath)
	if err != nil {
		return err
	}

	svc, err := doctor.NewService(doctor.ServiceConfig{
		Settings: sts,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create doctor service: %w", err)
	}

	resp, err := svc.Run(ctx, doctor.Request{})
	if err != nil {
		return fmt.Errorf("could not run preflight checks: %w", err)
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintChecks(resp.Results); err != nil {
		return fmt.Errorf("could not print checks: %w", err)
	}

	if model.HasErrors(resp.Results) {
		_, _, errs := model.CountByStatus(resp.Results)
		return fmt.Errorf("%d preflight checks failed", errs)
	}

	return nil
}
