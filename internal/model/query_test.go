package model_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringside-dev/ringside/internal/model"
)

func TestCoordinatorParamsValidate(t *testing.T) {
	tests := map[string]struct {
		params model.CoordinatorParams
		expErr bool
	}{
		"Valid params should not fail": {
			params: model.CoordinatorParams{
				CommitHash:       "abc123",
				Size:             1000,
				MaxBreakdownKey:  3,
				MaxTriggerValue:  7,
				PerUserCreditCap: 8,
			},
			expErr: false,
		},

		"Missing commit hash should fail": {
			params: model.CoordinatorParams{
				Size:             1000,
				MaxBreakdownKey:  3,
				MaxTriggerValue:  7,
				PerUserCreditCap: 8,
			},
			expErr: true,
		},

		"Zero size should fail": {
			params: model.CoordinatorParams{
				CommitHash:       "abc123",
				MaxBreakdownKey:  3,
				MaxTriggerValue:  7,
				PerUserCreditCap: 8,
			},
			expErr: true,
		},

		"Zero breakdown key bound should fail": {
			params: model.CoordinatorParams{
				CommitHash:       "abc123",
				Size:             1000,
				MaxTriggerValue:  7,
				PerUserCreditCap: 8,
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := test.params.Validate()

			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotValid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCoordinatorParamsProtocol(t *testing.T) {
	tests := map[string]struct {
		params      model.CoordinatorParams
		expProtocol string
	}{
		"Malicious security should select the malicious protocol": {
			params:      model.CoordinatorParams{MaliciousSecurity: true},
			expProtocol: "malicious-oprf-ipa-test",
		},

		"Default security should select the semi-honest protocol": {
			params:      model.CoordinatorParams{MaliciousSecurity: false},
			expProtocol: "semi-honest-oprf-ipa-test",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expProtocol, test.params.Protocol())
		})
	}
}

func TestHelperParamsCargoFeatures(t *testing.T) {
	base := model.HelperParams{
		CommitHash: "abc123",
		GateType:   model.GateTypeCompact,
	}

	tests := map[string]struct {
		params      model.HelperParams
		expFeatures string
	}{
		"No toggles should produce the base feature set": {
			params:      base,
			expFeatures: "web-app real-world-infra compact-gate",
		},

		"Descriptive gate should swap only the gate token": {
			params: model.HelperParams{
				CommitHash: "abc123",
				GateType:   model.GateTypeDescriptive,
			},
			expFeatures: "web-app real-world-infra descriptive-gate",
		},

		"Stall detection should append its token": {
			params: model.HelperParams{
				CommitHash:     "abc123",
				GateType:       model.GateTypeCompact,
				StallDetection: true,
			},
			expFeatures: "web-app real-world-infra compact-gate stall-detection",
		},

		"All toggles should keep the canonical order": {
			params: model.HelperParams{
				CommitHash:        "abc123",
				GateType:          model.GateTypeCompact,
				StallDetection:    true,
				MultiThreading:    true,
				DisableMetrics:    true,
				RevealAggregation: true,
			},
			expFeatures: "web-app real-world-infra compact-gate stall-detection multi-threading reveal-aggregation disable-metrics",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := strings.Join(test.params.CargoFeatures(), " ")
			assert.Equal(t, test.expFeatures, got)
		})
	}
}

func TestHelperParamsCargoFeaturesDeterminism(t *testing.T) {
	require := require.New(t)

	// Flipping a single toggle must change exactly one token.
	off := model.HelperParams{CommitHash: "abc123", GateType: model.GateTypeCompact}
	on := off
	on.MultiThreading = true

	offFeats := off.CargoFeatures()
	onFeats := on.CargoFeatures()

	require.Len(onFeats, len(offFeats)+1)
	require.Equal(offFeats, onFeats[:len(offFeats)])
	require.Equal("multi-threading", onFeats[len(onFeats)-1])
}

func TestHelperParamsBuildID(t *testing.T) {
	tests := map[string]struct {
		params model.HelperParams
		expID  string
	}{
		"Base build should be keyed by commit and gate": {
			params: model.HelperParams{CommitHash: "abc123", GateType: model.GateTypeCompact},
			expID:  "abc123_compact-gate",
		},

		"Toggles should append in artifact key order": {
			params: model.HelperParams{
				CommitHash:        "abc123",
				GateType:          model.GateTypeCompact,
				StallDetection:    true,
				MultiThreading:    true,
				DisableMetrics:    true,
				RevealAggregation: true,
			},
			expID: "abc123_compact-gate_stall-detection_multi-threading_disable-metrics_reveal-aggregation",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expID, test.params.BuildID())
		})
	}
}

func TestStatusClassification(t *testing.T) {
	tests := map[string]struct {
		status      model.Status
		expTerminal bool
		expFailure  bool
	}{
		"Starting is neither terminal nor a failure": {
			status: model.StatusStarting,
		},
		"In progress is neither terminal nor a failure": {
			status: model.StatusInProgress,
		},
		"Complete is terminal but not a failure": {
			status:      model.StatusComplete,
			expTerminal: true,
		},
		"Killed is a terminal failure": {
			status:      model.StatusKilled,
			expTerminal: true,
			expFailure:  true,
		},
		"Crashed is a terminal failure": {
			status:      model.StatusCrashed,
			expTerminal: true,
			expFailure:  true,
		},
		"Unknown is transient": {
			status: model.StatusUnknown,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expTerminal, test.status.IsTerminal())
			assert.Equal(t, test.expFailure, test.status.IsFailure())
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := map[string]struct {
		token     string
		expStatus model.Status
		expErr    bool
	}{
		"A known token should parse": {
			token:     "WAITING_TO_START",
			expStatus: model.StatusWaitingToStart,
		},

		"An unknown token should fail and map to unknown": {
			token:     "meh",
			expStatus: model.StatusUnknown,
			expErr:    true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			st, err := model.ParseStatus(test.token)

			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotValid)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, test.expStatus, st)
		})
	}
}
