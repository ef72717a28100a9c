package integration

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/pkg/client"
)

func TestDemoQueryLifecycle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	node := newTestNode(t, 1)
	ctx := context.Background()

	// The node starts healthy with free capacity and nothing running.
	require.NoError(node.client.Healthy(ctx))
	available, err := node.client.CapacityAvailable(ctx)
	require.NoError(err)
	assert.True(available)
	running, err := node.client.RunningQueries(ctx)
	require.NoError(err)
	assert.Empty(running)

	// Start a demo query that ends on its own.
	acceptedID, err := node.client.StartDemoQuery(ctx, "lifecycle-test", client.DemoQueryRequest{
		Lines:          3,
		RuntimeSeconds: 0,
	})
	require.NoError(err)
	assert.Equal("lifecycle-test", acceptedID)

	// It should complete with both lifecycle timestamps set.
	qs := node.waitStatus(t, "lifecycle-test", model.StatusComplete)
	require.NotNil(qs.StartedAt)
	require.NotNil(qs.EndedAt)
	assert.False(qs.EndedAt.Before(*qs.StartedAt))

	// The log should have the reformatted pipeline and demo lines.
	rc, err := node.client.Logs(ctx, "lifecycle-test")
	require.NoError(err)
	defer rc.Close()
	logData, err := io.ReadAll(rc)
	require.NoError(err)
	assert.Contains(string(logData), "demo log line 1 of 3")
	assert.Contains(string(logData), "Query ended with status COMPLETE")

	// The history row should be settled.
	rec, err := node.history.GetQuery(ctx, "lifecycle-test")
	require.NoError(err)
	assert.Equal(model.StatusComplete, rec.Status)
	assert.NotNil(rec.StartedAt)
	assert.NotNil(rec.EndedAt)

	// Nothing should remain in the running set.
	running, err = node.client.RunningQueries(ctx)
	require.NoError(err)
	assert.Empty(running)

	// Unknown IDs answer a NOT_FOUND payload, not an error.
	qs, err = node.client.Status(ctx, "never-existed")
	require.NoError(err)
	assert.Equal(model.StatusNotFound, qs.Status)
}

func TestDemoQueryKill(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	node := newTestNode(t, 1)
	ctx := context.Background()

	// Start a demo query that runs long enough to be killed.
	_, err := node.client.StartDemoQuery(ctx, "kill-test", client.DemoQueryRequest{
		Lines:          2,
		RuntimeSeconds: 300,
	})
	require.NoError(err)
	node.waitStatus(t, "kill-test", model.StatusInProgress)

	running, err := node.client.RunningQueries(ctx)
	require.NoError(err)
	assert.Equal([]string{"kill-test"}, running)

	require.NoError(node.client.Kill(ctx, "kill-test"))

	qs := node.waitStatus(t, "kill-test", model.StatusKilled)
	require.NotNil(qs.EndedAt)

	rec, err := node.history.GetQuery(ctx, "kill-test")
	require.NoError(err)
	assert.Equal(model.StatusKilled, rec.Status)

	// Killing an unknown query fails with not found.
	err = node.client.Kill(ctx, "never-existed")
	require.Error(err)
	assert.ErrorIs(err, model.ErrNotFound)
}

func TestDemoQueryFinish(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	node := newTestNode(t, 1)
	ctx := context.Background()

	// Start a demo query that would run for a long time, then end it
	// gracefully. Finish settles the query as completed, not killed.
	_, err := node.client.StartDemoQuery(ctx, "finish-test", client.DemoQueryRequest{
		Lines:          2,
		RuntimeSeconds: 300,
	})
	require.NoError(err)
	node.waitStatus(t, "finish-test", model.StatusInProgress)

	require.NoError(node.client.Finish(ctx, "finish-test"))

	node.waitStatus(t, "finish-test", model.StatusComplete)

	rec, err := node.history.GetQuery(ctx, "finish-test")
	require.NoError(err)
	assert.Equal(model.StatusComplete, rec.Status)
}

func TestCapacityAdmission(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	node := newTestNode(t, 1)
	ctx := context.Background()

	// Fill the single slot.
	_, err := node.client.StartDemoQuery(ctx, "occupant", client.DemoQueryRequest{
		Lines:          2,
		RuntimeSeconds: 300,
	})
	require.NoError(err)
	node.waitStatus(t, "occupant", model.StatusInProgress)

	available, err := node.client.CapacityAvailable(ctx)
	require.NoError(err)
	assert.False(available)

	// A second query must be rejected while the slot is taken.
	_, err = node.client.StartDemoQuery(ctx, "rejected", client.DemoQueryRequest{
		Lines:          2,
		RuntimeSeconds: 300,
	})
	require.Error(err)
	assert.ErrorIs(err, model.ErrAtCapacity)

	// Killing the occupant frees the slot again.
	require.NoError(node.client.Kill(ctx, "occupant"))
	node.waitStatus(t, "occupant", model.StatusKilled)

	require.Eventually(func() bool {
		available, err := node.client.CapacityAvailable(ctx)
		return err == nil && available
	}, waitTimeout, pollInterval, "capacity never freed after kill")

	_, err = node.client.StartDemoQuery(ctx, "second", client.DemoQueryRequest{
		Lines:          1,
		RuntimeSeconds: 0,
	})
	require.NoError(err)
	node.waitStatus(t, "second", model.StatusComplete)
}

func TestDuplicateQueryID(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	node := newTestNode(t, 2)
	ctx := context.Background()

	_, err := node.client.StartDemoQuery(ctx, "dup-test", client.DemoQueryRequest{
		Lines:          2,
		RuntimeSeconds: 300,
	})
	require.NoError(err)
	node.waitStatus(t, "dup-test", model.StatusInProgress)

	_, err = node.client.StartDemoQuery(ctx, "dup-test", client.DemoQueryRequest{
		Lines:          2,
		RuntimeSeconds: 300,
	})
	require.Error(err)
	assert.ErrorIs(err, model.ErrAlreadyExists)

	require.NoError(node.client.Kill(ctx, "dup-test"))
	node.waitStatus(t, "dup-test", model.StatusKilled)
}
