package model

import (
	"fmt"
	"time"
)

// Status represents the lifecycle status of a query as reported to peers.
// The values are the wire tokens exchanged between sidecars, so they must
// stay stable across versions.
type Status string

const (
	// StatusStarting indicates source preparation (clone/fetch/checkout).
	StatusStarting Status = "STARTING"
	// StatusCompiling indicates binaries are being built or inputs generated.
	StatusCompiling Status = "COMPILING"
	// StatusWaitingToStart indicates the query is holding at the start barrier.
	StatusWaitingToStart Status = "WAITING_TO_START"
	// StatusInProgress indicates the query's main process is running.
	StatusInProgress Status = "IN_PROGRESS"
	// StatusComplete indicates the query finished successfully.
	StatusComplete Status = "COMPLETE"
	// StatusKilled indicates the query was stopped by an external request.
	StatusKilled Status = "KILLED"
	// StatusCrashed indicates a stage failed and the query was aborted.
	StatusCrashed Status = "CRASHED"
	// StatusNotFound indicates the queried ID is unknown to the answering node.
	StatusNotFound Status = "NOT_FOUND"
	// StatusUnknown indicates the status could not be determined. Pollers
	// treat it as transient (e.g. the gap between remote registration and
	// poll visibility), never as a terminal failure.
	StatusUnknown Status = "UNKNOWN"
)

var knownStatuses = map[Status]struct{}{
	StatusStarting:       {},
	StatusCompiling:      {},
	StatusWaitingToStart: {},
	StatusInProgress:     {},
	StatusComplete:       {},
	StatusKilled:         {},
	StatusCrashed:        {},
	StatusNotFound:       {},
	StatusUnknown:        {},
}

// ParseStatus maps a wire token to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := knownStatuses[st]; !ok {
		return StatusUnknown, fmt.Errorf("unknown status %q: %w", s, ErrNotValid)
	}
	return st, nil
}

// IsTerminal returns true when the status marks an ended lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusKilled || s == StatusCrashed
}

// IsFailure returns true for statuses that end a lifecycle abnormally.
func (s Status) IsFailure() bool {
	return s == StatusKilled || s == StatusCrashed
}

// StatusEvent is the status payload answered to status lookups.
type StatusEvent struct {
	Status    Status
	StartedAt *time.Time
	EndedAt   *time.Time
}
