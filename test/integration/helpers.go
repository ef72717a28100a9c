package integration

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ringside-dev/ringside/internal/app/capacity"
	"github.com/ringside-dev/ringside/internal/app/finish"
	"github.com/ringside-dev/ringside/internal/app/kill"
	"github.com/ringside-dev/ringside/internal/app/list"
	"github.com/ringside-dev/ringside/internal/app/logs"
	"github.com/ringside-dev/ringside/internal/app/start"
	"github.com/ringside-dev/ringside/internal/app/status"
	"github.com/ringside-dev/ringside/internal/command/fake"
	"github.com/ringside-dev/ringside/internal/conventions"
	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/peer"
	registrymemory "github.com/ringside-dev/ringside/internal/registry/memory"
	"github.com/ringside-dev/ringside/internal/server"
	"github.com/ringside-dev/ringside/internal/settings"
	"github.com/ringside-dev/ringside/internal/storage"
	"github.com/ringside-dev/ringside/internal/storage/sqlite"
	"github.com/ringside-dev/ringside/pkg/client"
)

const (
	waitTimeout  = 10 * time.Second
	pollInterval = 20 * time.Millisecond
)

// testNode is a full sidecar stack (API server, services, registry, SQLite
// history) running in-process with a fake command runner.
type testNode struct {
	client  *client.Client
	history storage.Repository
	runner  *fake.Runner
}

func newTestNode(t *testing.T, maxConcurrent int) *testNode {
	require := require.New(t)

	rootDir := t.TempDir()
	sts := settings.Settings{
		Identity:             1,
		ListenAddr:           ":0",
		RootDir:              rootDir,
		ConfigDir:            rootDir,
		RepoURL:              "https://example.com/ipa.git",
		HelperPort:           7432,
		MaxConcurrentQueries: maxConcurrent,
		PollInterval:         10 * time.Millisecond,
		UnknownStatusWait:    time.Second,
		StartupGrace:         time.Millisecond,
		Peers: []model.Peer{
			{Identity: 1, URL: "http://localhost:17440"},
		},
	}

	history, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: conventions.DBPath(rootDir),
		Logger: log.Noop,
	})
	require.NoError(err)
	t.Cleanup(func() { history.Close() })

	registry, err := registrymemory.NewRegistry(registrymemory.RegistryConfig{
		MaxConcurrentQueries: maxConcurrent,
	})
	require.NoError(err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		_ = registry.Stop(ctx)
	})

	runner, err := fake.NewRunner(fake.RunnerConfig{})
	require.NoError(err)

	ring, err := peer.NewHTTPRing(peer.HTTPRingConfig{})
	require.NoError(err)

	startSvc, err := start.NewService(start.ServiceConfig{
		Settings: sts,
		Registry: registry,
		History:  history,
		Runner:   runner,
		Ring:     ring,
	})
	require.NoError(err)

	statusSvc, err := status.NewService(status.ServiceConfig{Registry: registry, History: history})
	require.NoError(err)

	logsSvc, err := logs.NewService(logs.ServiceConfig{History: history})
	require.NoError(err)

	killSvc, err := kill.NewService(kill.ServiceConfig{Registry: registry})
	require.NoError(err)

	finishSvc, err := finish.NewService(finish.ServiceConfig{Registry: registry})
	require.NoError(err)

	listSvc, err := list.NewService(list.ServiceConfig{Registry: registry})
	require.NoError(err)

	capacitySvc, err := capacity.NewService(capacity.ServiceConfig{Registry: registry})
	require.NoError(err)

	srv, err := server.NewServer(server.ServerConfig{
		Start:    startSvc,
		Status:   statusSvc,
		Logs:     logsSvc,
		Kill:     killSvc,
		Finish:   finishSvc,
		List:     listSvc,
		Capacity: capacitySvc,
	})
	require.NoError(err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cl, err := client.New(client.Config{BaseURL: ts.URL})
	require.NoError(err)

	return &testNode{client: cl, history: history, runner: runner}
}

// waitStatus polls the status endpoint until the query reaches the wanted
// status and returns the final payload.
func (n *testNode) waitStatus(t *testing.T, queryID string, want client.Status) client.QueryStatus {
	var last client.QueryStatus
	require.Eventually(t, func() bool {
		qs, err := n.client.Status(context.Background(), queryID)
		if err != nil {
			return false
		}
		last = qs
		return qs.Status == want
	}, waitTimeout, pollInterval, "query %s never reached status %s", queryID, want)

	return last
}
