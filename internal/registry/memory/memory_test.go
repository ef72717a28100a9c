package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/registry/memory"
	"github.com/ringside-dev/ringside/internal/registry/registrymock"
)

// heldQuery returns a mock query whose run blocks until release is closed.
func heldQuery(id string, final model.Status, release chan struct{}) *registrymock.MockQuery {
	q := &registrymock.MockQuery{}
	q.On("ID").Return(id)
	q.On("Kind").Return(model.QueryKindDemoLog)
	q.On("Run", mock.Anything).Run(func(_ mock.Arguments) { <-release }).Return(final).Once()
	return q
}

func newRegistry(t *testing.T, max int) *memory.Registry {
	r, err := memory.NewRegistry(memory.RegistryConfig{MaxConcurrentQueries: max})
	require.NoError(t, err)
	return r
}

func TestNewRegistryValidation(t *testing.T) {
	tests := map[string]struct {
		config memory.RegistryConfig
		expErr bool
	}{
		"A positive capacity ceiling should be accepted.": {
			config: memory.RegistryConfig{MaxConcurrentQueries: 3},
		},

		"A zero capacity ceiling should be rejected.": {
			config: memory.RegistryConfig{},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			_, err := memory.NewRegistry(test.config)

			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
		})
	}
}

func TestRegistryRunsAdmittedQuery(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	r := newRegistry(t, 1)
	release := make(chan struct{})
	q := heldQuery("test-id", model.StatusComplete, release)

	err := r.Start(context.TODO(), q)
	require.NoError(err)

	got, ok := r.Get("test-id")
	require.True(ok)
	assert.Equal("test-id", got.ID())
	assert.False(r.CapacityAvailable())

	close(release)

	require.Eventually(func() bool {
		_, ok := r.Get("test-id")
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(r.CapacityAvailable())
	q.AssertExpectations(t)
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	r := newRegistry(t, 2)
	release := make(chan struct{})
	defer close(release)

	require.NoError(r.Start(context.TODO(), heldQuery("test-id", model.StatusComplete, release)))

	err := r.Start(context.TODO(), heldQuery("test-id", model.StatusComplete, release))
	assert.ErrorIs(err, model.ErrAlreadyExists)
}

func TestRegistryRejectsAtCapacity(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	r := newRegistry(t, 1)
	release := make(chan struct{})

	require.NoError(r.Start(context.TODO(), heldQuery("first", model.StatusComplete, release)))

	err := r.Start(context.TODO(), heldQuery("second", model.StatusComplete, release))
	require.ErrorIs(err, model.ErrAtCapacity)

	// The slot frees once the running query ends.
	close(release)
	require.Eventually(r.CapacityAvailable, 2*time.Second, 5*time.Millisecond)

	err = r.Start(context.TODO(), heldQuery("second", model.StatusComplete, make(chan struct{})))
	assert.NoError(err)
}

func TestRegistryListSortsByID(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	r := newRegistry(t, 3)
	release := make(chan struct{})
	defer close(release)

	for _, id := range []string{"charlie", "alpha", "bravo"} {
		require.NoError(r.Start(context.TODO(), heldQuery(id, model.StatusComplete, release)))
	}

	ids := []string{}
	for _, q := range r.List() {
		ids = append(ids, q.ID())
	}

	assert.Equal([]string{"alpha", "bravo", "charlie"}, ids)
	assert.False(r.CapacityAvailable())
}

func TestRegistryStopCancelsRunningQueries(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	r := newRegistry(t, 1)

	q := &registrymock.MockQuery{}
	q.On("ID").Return("test-id")
	q.On("Kind").Return(model.QueryKindDemoLog)
	q.On("Run", mock.Anything).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		<-ctx.Done()
	}).Return(model.StatusKilled).Once()

	require.NoError(r.Start(context.TODO(), q))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := r.Stop(ctx)
	require.NoError(err)

	err = r.Start(context.TODO(), heldQuery("another", model.StatusComplete, make(chan struct{})))
	assert.Error(err)
	assert.False(r.CapacityAvailable())
	q.AssertExpectations(t)
}

func TestRegistryStopDeadline(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	r := newRegistry(t, 1)
	release := make(chan struct{})
	defer close(release)

	require.NoError(r.Start(context.TODO(), heldQuery("stuck", model.StatusComplete, release)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := r.Stop(ctx)

	assert.Error(err)
}

func TestRegistryConcurrentAdmission(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	const max = 4
	const attempts = 16

	r := newRegistry(t, max)
	release := make(chan struct{})

	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := heldQuery(fmt.Sprintf("query-%02d", i), model.StatusComplete, release)
			errs <- r.Start(context.TODO(), q)
		}(i)
	}
	wg.Wait()
	close(errs)

	admitted, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			admitted++
		default:
			require.ErrorIs(err, model.ErrAtCapacity)
			rejected++
		}
	}

	assert.Equal(max, admitted)
	assert.Equal(attempts-max, rejected)
	assert.Len(r.List(), max)

	close(release)
	require.Eventually(func() bool { return len(r.List()) == 0 }, 2*time.Second, 5*time.Millisecond)
}
