package model

import (
	"fmt"
	"time"
)

// QueryKind identifies which pipeline a query runs.
type QueryKind string

const (
	// QueryKindIPACoordinator runs the full coordinator pipeline (build,
	// input generation, start barrier, report collector).
	QueryKindIPACoordinator QueryKind = "ipa-coordinator"
	// QueryKindIPAHelper runs the helper pipeline (build, helper server).
	QueryKindIPAHelper QueryKind = "ipa-helper"
	// QueryKindDemoLog runs a log-emitting query with no external processes,
	// used to exercise the query infrastructure.
	QueryKindDemoLog QueryKind = "demo-log"
)

// GateType selects the circuit gate implementation compiled into the helper.
type GateType string

const (
	GateTypeCompact     GateType = "compact-gate"
	GateTypeDescriptive GateType = "descriptive-gate"
)

// CoordinatorParams are the inputs of an ipa-coordinator query.
type CoordinatorParams struct {
	CommitHash        string
	Size              int
	MaxBreakdownKey   int
	MaxTriggerValue   int
	PerUserCreditCap  int
	MaliciousSecurity bool
}

// Validate validates the coordinator query parameters.
func (p CoordinatorParams) Validate() error {
	if p.CommitHash == "" {
		return fmt.Errorf("commit hash is required: %w", ErrNotValid)
	}
	if p.Size <= 0 {
		return fmt.Errorf("size must be positive: %w", ErrNotValid)
	}
	if p.MaxBreakdownKey <= 0 {
		return fmt.Errorf("max breakdown key must be positive: %w", ErrNotValid)
	}
	if p.MaxTriggerValue <= 0 {
		return fmt.Errorf("max trigger value must be positive: %w", ErrNotValid)
	}
	if p.PerUserCreditCap <= 0 {
		return fmt.Errorf("per user credit cap must be positive: %w", ErrNotValid)
	}
	return nil
}

// Protocol returns the report collector test protocol selected by the
// security model.
func (p CoordinatorParams) Protocol() string {
	if p.MaliciousSecurity {
		return "malicious-oprf-ipa-test"
	}
	return "semi-honest-oprf-ipa-test"
}

// BuildID keys the compiled artifact directory for this query's binaries.
func (p CoordinatorParams) BuildID() string {
	return p.CommitHash
}

// HelperParams are the inputs of an ipa-helper query.
type HelperParams struct {
	CommitHash        string
	GateType          GateType
	StallDetection    bool
	MultiThreading    bool
	DisableMetrics    bool
	RevealAggregation bool
}

// Validate validates the helper query parameters.
func (p HelperParams) Validate() error {
	if p.CommitHash == "" {
		return fmt.Errorf("commit hash is required: %w", ErrNotValid)
	}
	if p.GateType != GateTypeCompact && p.GateType != GateTypeDescriptive {
		return fmt.Errorf("gate type %q is not supported: %w", p.GateType, ErrNotValid)
	}
	return nil
}

// CargoFeatures returns the cargo feature tokens for the helper build.
// The order is canonical: the same toggles always produce the same string,
// and flipping one toggle changes exactly one token.
func (p HelperParams) CargoFeatures() []string {
	feats := []string{"web-app", "real-world-infra", string(p.GateType)}
	if p.StallDetection {
		feats = append(feats, "stall-detection")
	}
	if p.MultiThreading {
		feats = append(feats, "multi-threading")
	}
	if p.RevealAggregation {
		feats = append(feats, "reveal-aggregation")
	}
	if p.DisableMetrics {
		feats = append(feats, "disable-metrics")
	}
	return feats
}

// BuildID keys the compiled artifact directory for this helper build. The
// token order differs from CargoFeatures and must not change: it names
// directories of already compiled binaries.
func (p HelperParams) BuildID() string {
	id := fmt.Sprintf("%s_%s", p.CommitHash, p.GateType)
	if p.StallDetection {
		id += "_stall-detection"
	}
	if p.MultiThreading {
		id += "_multi-threading"
	}
	if p.DisableMetrics {
		id += "_disable-metrics"
	}
	if p.RevealAggregation {
		id += "_reveal-aggregation"
	}
	return id
}

// DemoParams are the inputs of a demo-log query.
type DemoParams struct {
	Lines   int
	Runtime time.Duration
}

// Validate validates the demo query parameters.
func (p DemoParams) Validate() error {
	if p.Lines <= 0 {
		return fmt.Errorf("lines must be positive: %w", ErrNotValid)
	}
	if p.Runtime < 0 {
		return fmt.Errorf("runtime can't be negative: %w", ErrNotValid)
	}
	return nil
}

// QueryRecord is the persisted view of a query lifecycle, kept so status
// lookups keep answering after the live query is gone.
type QueryRecord struct {
	ID        string
	Kind      QueryKind
	Status    Status
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
	LogPath   string
}

// Validate validates the query record.
func (q QueryRecord) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("query id is required: %w", ErrNotValid)
	}
	if q.Kind == "" {
		return fmt.Errorf("query kind is required: %w", ErrNotValid)
	}
	if _, ok := knownStatuses[q.Status]; !ok {
		return fmt.Errorf("status %q is not valid: %w", q.Status, ErrNotValid)
	}
	return nil
}

// Event returns the status payload for this record.
func (q QueryRecord) Event() StatusEvent {
	return StatusEvent{Status: q.Status, StartedAt: q.StartedAt, EndedAt: q.EndedAt}
}
