package printer_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/printer"
	"github.com/ringside-dev/ringside/pkg/client"
)

func statusFixture() client.QueryStatus {
	startedAt := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	endedAt := startedAt.Add(90 * time.Second)
	return client.QueryStatus{
		Status:         model.StatusComplete,
		StartedAt:      &startedAt,
		EndedAt:        &endedAt,
		CPUPercent:     42.5,
		MemoryRSSBytes: 3 * 1024 * 1024,
	}
}

func checksFixture() []model.CheckResult {
	return []model.CheckResult{
		{ID: "git_available", Status: model.CheckStatusOK, Message: "git 2.47.0"},
		{ID: "peer_1_reachable", Status: model.CheckStatusWarning, Message: "peer 1 not reachable"},
		{ID: "network_config", Status: model.CheckStatusError, Message: "network.toml missing"},
	}
}

func TestTablePrinterPrintQueryStatus(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintQueryStatus("test-id", statusFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Query:     test-id")
	assert.Contains(t, out, "Status:    COMPLETE")
	assert.Contains(t, out, "Started:   2026-01-30 10:00:00 UTC")
	assert.Contains(t, out, "Ended:     2026-01-30 10:01:30 UTC")
	assert.Contains(t, out, "Duration:  1m30s")
	assert.Contains(t, out, "CPU:       42.5%")
	assert.Contains(t, out, "Memory:    3.0 MB")
}

func TestJSONPrinterPrintQueryStatus(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintQueryStatus("test-id", statusFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"query_id": "test-id"`)
	assert.Contains(t, out, `"status": "COMPLETE"`)
	assert.Contains(t, out, `"started_at": "2026-01-30T10:00:00Z"`)
	assert.Contains(t, out, `"memory_rss_bytes": 3145728`)
}

func TestTablePrinterPrintRunningQueries(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintRunningQueries([]string{"query-a", "query-b"})
	require.NoError(t, err)

	assert.Equal(t, "query-a\nquery-b\n", buf.String())
}

func TestJSONPrinterPrintRunningQueries(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintRunningQueries(nil)
	require.NoError(t, err)

	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestTablePrinterPrintChecks(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintChecks(checksFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "CHECK")
	assert.Contains(t, out, "git_available")
	assert.Contains(t, out, "WARNING")
	assert.Contains(t, out, "network.toml missing")
	assert.Contains(t, out, "1 ok, 1 warnings, 1 errors")
}

func TestJSONPrinterPrintChecks(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintChecks(checksFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"id": "git_available"`)
	assert.Contains(t, out, `"status": "warning"`)
	assert.Contains(t, out, `"message": "network.toml missing"`)
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}
