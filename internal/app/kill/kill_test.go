package kill_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ringside-dev/ringside/internal/app/kill"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/registry/registrymock"
)

func TestServiceRun(t *testing.T) {
	tests := map[string]struct {
		mock     func(reg *registrymock.MockRegistry)
		req      kill.Request
		expErr   bool
		expErrIs error
	}{
		"Killing a running query should signal it.": {
			mock: func(reg *registrymock.MockRegistry) {
				q := &registrymock.MockQuery{}
				q.On("Kill", mock.Anything).Once().Return(nil)
				reg.On("Get", "test-id").Once().Return(q, true)
			},
			req: kill.Request{QueryID: "test-id"},
		},

		"Killing a query that is not running should fail.": {
			mock: func(reg *registrymock.MockRegistry) {
				reg.On("Get", "unknown").Once().Return(nil, false)
			},
			req:      kill.Request{QueryID: "unknown"},
			expErr:   true,
			expErrIs: model.ErrNotFound,
		},

		"A kill failure should propagate.": {
			mock: func(reg *registrymock.MockRegistry) {
				q := &registrymock.MockQuery{}
				q.On("Kill", mock.Anything).Once().Return(fmt.Errorf("something broke"))
				reg.On("Get", "test-id").Once().Return(q, true)
			},
			req:    kill.Request{QueryID: "test-id"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mReg := &registrymock.MockRegistry{}
			test.mock(mReg)

			svc, err := kill.NewService(kill.ServiceConfig{Registry: mReg})
			require.NoError(err)

			err = svc.Run(context.TODO(), test.req)

			if test.expErr {
				assert.Error(err)
				if test.expErrIs != nil {
					assert.ErrorIs(err, test.expErrIs)
				}
			} else {
				assert.NoError(err)
			}

			mReg.AssertExpectations(t)
		})
	}
}
