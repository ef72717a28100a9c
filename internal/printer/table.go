package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/pkg/client"
)

// TablePrinter prints query information in a human-readable text format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintQueryStatus prints the detailed status of a query.
func (t *TablePrinter) PrintQueryStatus(queryID string, status client.QueryStatus) error {
	fmt.Fprintf(t.writer, "Query:     %s\n", queryID)
	fmt.Fprintf(t.writer, "Status:    %s\n", status.Status)

	if status.StartedAt != nil {
		fmt.Fprintf(t.writer, "Started:   %s\n", FormatTimestamp(*status.StartedAt))
	}

	if status.EndedAt != nil {
		fmt.Fprintf(t.writer, "Ended:     %s\n", FormatTimestamp(*status.EndedAt))
	}

	if status.StartedAt != nil && status.EndedAt != nil {
		fmt.Fprintf(t.writer, "Duration:  %s\n", FormatDuration(status.EndedAt.Sub(*status.StartedAt)))
	}

	// Usage is only sampled while the query runs.
	if status.CPUPercent > 0 {
		fmt.Fprintf(t.writer, "CPU:       %.1f%%\n", status.CPUPercent)
	}

	if status.MemoryRSSBytes > 0 {
		fmt.Fprintf(t.writer, "Memory:    %s\n", FormatBytes(status.MemoryRSSBytes))
	}

	return nil
}

// PrintRunningQueries prints the running query IDs, one per line.
func (t *TablePrinter) PrintRunningQueries(ids []string) error {
	for _, id := range ids {
		fmt.Fprintln(t.writer, id)
	}

	return nil
}

// PrintChecks prints preflight check results in a table format with a
// status summary line.
func (t *TablePrinter) PrintChecks(checks []model.CheckResult) error {
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)

	// Print header.
	fmt.Fprintln(tw, "CHECK\tSTATUS\tDETAIL")

	// Print rows.
	for _, c := range checks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, strings.ToUpper(string(c.Status)), c.Message)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	ok, warnings, errs := model.CountByStatus(checks)
	fmt.Fprintf(t.writer, "\n%d ok, %d warnings, %d errors\n", ok, warnings, errs)

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
