package start_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ringside-dev/ringside/internal/app/start"
	"github.com/ringside-dev/ringside/internal/command/commandmock"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/peer/peermock"
	"github.com/ringside-dev/ringside/internal/registry/registrymock"
	"github.com/ringside-dev/ringside/internal/settings"
	"github.com/ringside-dev/ringside/internal/storage/storagemock"
)

func testSettings(t *testing.T, identity int) settings.Settings {
	return settings.Settings{
		Identity:             identity,
		RootDir:              t.TempDir(),
		ConfigDir:            t.TempDir(),
		RepoURL:              "https://example.com/ipa.git",
		HelperPort:           7432,
		MaxConcurrentQueries: 1,
		Peers: []model.Peer{
			{Identity: 0, URL: "http://sidecar0:17440"},
			{Identity: 1, URL: "http://sidecar1:17440"},
			{Identity: 2, URL: "http://sidecar2:17440"},
		},
	}
}

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config func() start.ServiceConfig
		expErr bool
	}{
		"A config with all the dependencies should be valid.": {
			config: func() start.ServiceConfig {
				return start.ServiceConfig{
					Registry: &registrymock.MockRegistry{},
					History:  &storagemock.MockRepository{},
					Runner:   &commandmock.MockRunner{},
					Ring:     &peermock.MockRing{},
				}
			},
		},

		"A missing registry should fail.": {
			config: func() start.ServiceConfig {
				return start.ServiceConfig{
					History: &storagemock.MockRepository{},
					Runner:  &commandmock.MockRunner{},
					Ring:    &peermock.MockRing{},
				}
			},
			expErr: true,
		},

		"A missing history repository should fail.": {
			config: func() start.ServiceConfig {
				return start.ServiceConfig{
					Registry: &registrymock.MockRegistry{},
					Runner:   &commandmock.MockRunner{},
					Ring:     &peermock.MockRing{},
				}
			},
			expErr: true,
		},

		"A missing command runner should fail.": {
			config: func() start.ServiceConfig {
				return start.ServiceConfig{
					Registry: &registrymock.MockRegistry{},
					History:  &storagemock.MockRepository{},
					Ring:     &peermock.MockRing{},
				}
			},
			expErr: true,
		},

		"A missing peer ring should fail.": {
			config: func() start.ServiceConfig {
				return start.ServiceConfig{
					Registry: &registrymock.MockRegistry{},
					History:  &storagemock.MockRepository{},
					Runner:   &commandmock.MockRunner{},
				}
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			svc, err := start.NewService(test.config())

			if test.expErr {
				require.Error(err)
			} else {
				require.NoError(err)
				require.NotNil(svc)
			}
		})
	}
}

func TestServiceRun(t *testing.T) {
	demoReq := start.Request{
		QueryID: "test-id",
		Kind:    model.QueryKindDemoLog,
		Demo:    &model.DemoParams{Lines: 3},
	}

	tests := map[string]struct {
		identity int
		req      start.Request
		mock     func(reg *registrymock.MockRegistry, repo *storagemock.MockRepository)
		expErr   error
	}{
		"A demo query should be admitted and recorded.": {
			identity: 1,
			req:      demoReq,
			mock: func(reg *registrymock.MockRegistry, repo *storagemock.MockRepository) {
				reg.On("CapacityAvailable").Once().Return(true)
				repo.On("CreateQuery", mock.Anything, mock.MatchedBy(func(rec model.QueryRecord) bool {
					return rec.ID == "test-id" && rec.Kind == model.QueryKindDemoLog &&
						rec.Status == model.StatusStarting && rec.LogPath != ""
				})).Once().Return(nil)
				reg.On("Start", mock.Anything, mock.Anything).Once().Return(nil)
			},
		},

		"A coordinator query on the coordinator node should be admitted.": {
			identity: 0,
			req: start.Request{
				QueryID: "test-id",
				Kind:    model.QueryKindIPACoordinator,
				Coordinator: &model.CoordinatorParams{
					CommitHash:       "deadbeef",
					Size:             1000,
					MaxBreakdownKey:  3,
					MaxTriggerValue:  7,
					PerUserCreditCap: 8,
				},
			},
			mock: func(reg *registrymock.MockRegistry, repo *storagemock.MockRepository) {
				reg.On("CapacityAvailable").Once().Return(true)
				repo.On("CreateQuery", mock.Anything, mock.Anything).Once().Return(nil)
				reg.On("Start", mock.Anything, mock.Anything).Once().Return(nil)
			},
		},

		"A coordinator query on a helper node should be refused.": {
			identity: 1,
			req: start.Request{
				QueryID: "test-id",
				Kind:    model.QueryKindIPACoordinator,
				Coordinator: &model.CoordinatorParams{
					CommitHash:       "deadbeef",
					Size:             1000,
					MaxBreakdownKey:  3,
					MaxTriggerValue:  7,
					PerUserCreditCap: 8,
				},
			},
			mock:   func(reg *registrymock.MockRegistry, repo *storagemock.MockRepository) {},
			expErr: model.ErrWrongRole,
		},

		"A helper query on the coordinator node should be refused.": {
			identity: 0,
			req: start.Request{
				QueryID: "test-id",
				Kind:    model.QueryKindIPAHelper,
				Helper:  &model.HelperParams{CommitHash: "deadbeef", GateType: model.GateTypeCompact},
			},
			mock:   func(reg *registrymock.MockRegistry, repo *storagemock.MockRepository) {},
			expErr: model.ErrWrongRole,
		},

		"An unknown query kind should be refused.": {
			identity: 1,
			req:      start.Request{QueryID: "test-id", Kind: "bogus"},
			mock:     func(reg *registrymock.MockRegistry, repo *storagemock.MockRepository) {},
			expErr:   model.ErrNotValid,
		},

		"Without capacity the query should be refused before recording anything.": {
			identity: 1,
			req:      demoReq,
			mock: func(reg *registrymock.MockRegistry, repo *storagemock.MockRepository) {
				reg.On("CapacityAvailable").Once().Return(false)
			},
			expErr: model.ErrAtCapacity,
		},

		"Invalid parameters should be refused before recording anything.": {
			identity: 1,
			req: start.Request{
				QueryID: "test-id",
				Kind:    model.QueryKindDemoLog,
				Demo:    &model.DemoParams{Lines: 0},
			},
			mock: func(reg *registrymock.MockRegistry, repo *storagemock.MockRepository) {
				reg.On("CapacityAvailable").Once().Return(true)
			},
			expErr: model.ErrNotValid,
		},

		"A query ID that was already used should be refused.": {
			identity: 1,
			req:      demoReq,
			mock: func(reg *registrymock.MockRegistry, repo *storagemock.MockRepository) {
				reg.On("CapacityAvailable").Once().Return(true)
				repo.On("CreateQuery", mock.Anything, mock.Anything).Once().Return(model.ErrAlreadyExists)
			},
			expErr: model.ErrAlreadyExists,
		},

		"A registry refusal after recording should settle the history row.": {
			identity: 1,
			req:      demoReq,
			mock: func(reg *registrymock.MockRegistry, repo *storagemock.MockRepository) {
				reg.On("CapacityAvailable").Once().Return(true)
				repo.On("CreateQuery", mock.Anything, mock.Anything).Once().Return(nil)
				reg.On("Start", mock.Anything, mock.Anything).Once().Return(model.ErrAtCapacity)
				repo.On("UpdateQueryStatus", mock.Anything, "test-id", model.StatusCrashed, mock.Anything, mock.Anything).Once().Return(nil)
			},
			expErr: model.ErrAtCapacity,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mReg := &registrymock.MockRegistry{}
			mRepo := &storagemock.MockRepository{}
			test.mock(mReg, mRepo)

			svc, err := start.NewService(start.ServiceConfig{
				Settings: testSettings(t, test.identity),
				Registry: mReg,
				History:  mRepo,
				Runner:   &commandmock.MockRunner{},
				Ring:     &peermock.MockRing{},
			})
			require.NoError(err)

			resp, err := svc.Run(context.TODO(), test.req)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
			} else {
				assert.NoError(err)
				assert.Equal(&start.Response{QueryID: "test-id"}, resp)
			}

			mReg.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}
