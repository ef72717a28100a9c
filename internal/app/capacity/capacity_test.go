package capacity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringside-dev/ringside/internal/app/capacity"
	"github.com/ringside-dev/ringside/internal/registry/registrymock"
)

func TestServiceRun(t *testing.T) {
	tests := map[string]struct {
		available bool
	}{
		"A node with a free slot should answer available.": {available: true},

		"A node at capacity should answer unavailable.": {available: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mReg := &registrymock.MockRegistry{}
			mReg.On("CapacityAvailable").Once().Return(test.available)

			svc, err := capacity.NewService(capacity.ServiceConfig{Registry: mReg})
			require.NoError(err)

			resp, err := svc.Run(context.TODO(), capacity.Request{})

			require.NoError(err)
			assert.Equal(test.available, resp.Available)
			mReg.AssertExpectations(t)
		})
	}
}
