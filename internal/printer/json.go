package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/pkg/client"
)

// JSONPrinter prints query information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// queryStatusOutput represents the full query status output.
type queryStatusOutput struct {
	QueryID        string     `json:"query_id"`
	Status         string     `json:"status"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	CPUPercent     float64    `json:"cpu_percent,omitempty"`
	MemoryRSSBytes uint64     `json:"memory_rss_bytes,omitempty"`
}

// checkOutput represents a single preflight check result output.
type checkOutput struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintQueryStatus prints the detailed query status in JSON format.
func (j *JSONPrinter) PrintQueryStatus(queryID string, status client.QueryStatus) error {
	output := queryStatusOutput{
		QueryID:        queryID,
		Status:         string(status.Status),
		CPUPercent:     status.CPUPercent,
		MemoryRSSBytes: status.MemoryRSSBytes,
	}

	if status.StartedAt != nil {
		utcTime := status.StartedAt.UTC()
		output.StartedAt = &utcTime
	}

	if status.EndedAt != nil {
		utcTime := status.EndedAt.UTC()
		output.EndedAt = &utcTime
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// PrintRunningQueries prints the running query IDs as a JSON array.
func (j *JSONPrinter) PrintRunningQueries(ids []string) error {
	if ids == nil {
		ids = []string{}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(ids)
}

// PrintChecks prints preflight check results as a JSON array.
func (j *JSONPrinter) PrintChecks(checks []model.CheckResult) error {
	items := make([]checkOutput, len(checks))
	for i, c := range checks {
		items[i] = checkOutput{
			ID:      c.ID,
			Status:  string(c.Status),
			Message: c.Message,
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
