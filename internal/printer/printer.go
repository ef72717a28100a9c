package printer

import (
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/pkg/client"
)

// Printer knows how to print query and node information in different formats.
type Printer interface {
	PrintQueryStatus(queryID string, status client.QueryStatus) error
	PrintRunningQueries(ids []string) error
	PrintChecks(checks []model.CheckResult) error
	PrintMessage(msg string) error
}
