package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ringside-dev/ringside/internal/app/capacity"
	"github.com/ringside-dev/ringside/internal/app/finish"
	"github.com/ringside-dev/ringside/internal/app/kill"
	"github.com/ringside-dev/ringside/internal/app/list"
	"github.com/ringside-dev/ringside/internal/app/logs"
	"github.com/ringside-dev/ringside/internal/app/reconcile"
	"github.com/ringside-dev/ringside/internal/app/start"
	"github.com/ringside-dev/ringside/internal/app/status"
	"github.com/ringside-dev/ringside/internal/command"
	"github.com/ringside-dev/ringside/internal/conventions"
	"github.com/ringside-dev/ringside/internal/metrics"
	"github.com/ringside-dev/ringside/internal/peer"
	registrymemory "github.com/ringside-dev/ringside/internal/registry/memory"
	"github.com/ringside-dev/ringside/internal/server"
	"github.com/ringside-dev/ringside/internal/storage/sqlite"
)

// queryDrainTimeout bounds how long the daemon waits for running queries to
// settle their history rows once the server has stopped.
const queryDrainTimeout = 20 * time.Second

type ServerCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewServerCommand returns the server command.
func NewServerCommand(rootCmd *RootCommand, app *kingpin.Application) *ServerCommand {
	c := &ServerCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("server", "Run the sidecar daemon: the node API and the query pipelines behind it.")

	return c
}

func (c ServerCommand) Name() string { return c.Cmd.FullCommand() }

func (c ServerCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	sts, err := loadSettings(ctx, c.rootCmd.ConfigPath)
	if err != nil {
		return err
	}

	// Query history repository.
	history, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: conventions.DBPath(sts.RootDir),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create history repository: %w", err)
	}
	defer history.Close()

	// Settle history rows left claiming to run by an unclean daemon stop.
	reconcileSvc, err := reconcile.NewService(reconcile.ServiceConfig{
		History: history,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create reconcile service: %w", err)
	}
	if _, err := reconcileSvc.Run(ctx, reconcile.Request{}); err != nil {
		return fmt.Errorf("could not reconcile query history: %w", err)
	}

	// The default Prometheus registerer feeds the /metrics handler the
	// server mounts by default.
	metricsRecorder := metrics.NewRecorder(prometheus.DefaultRegisterer)

	// Query registry.
	queryRegistry, err := registrymemory.NewRegistry(registrymemory.RegistryConfig{
		MaxConcurrentQueries: sts.MaxConcurrentQueries,
		MetricsRecorder:      metricsRecorder,
		Logger:               logger,
	})
	if err != nil {
		return fmt.Errorf("could not create query registry: %w", err)
	}

	// Process runner and peer ring view.
	runner := command.NewExecRunner(logger)
	ring, err := peer.NewHTTPRing(peer.HTTPRingConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create peer ring: %w", err)
	}

	// Application services.
	startSvc, err := start.NewService(start.ServiceConfig{
		Settings:        sts,
		Registry:        queryRegistry,
		History:         history,
		Runner:          runner,
		Ring:            ring,
		MetricsRecorder: metricsRecorder,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("could not create start service: %w", err)
	}

	statusSvc, err := status.NewService(status.ServiceConfig{
		Registry: queryRegistry,
		History:  history,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create status service: %w", err)
	}

	logsSvc, err := logs.NewService(logs.ServiceConfig{
		History: history,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create logs service: %w", err)
	}

	killSvc, err := kill.NewService(kill.ServiceConfig{
		Registry: queryRegistry,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create kill service: %w", err)
	}

	finishSvc, err := finish.NewService(finish.ServiceConfig{
		Registry: queryRegistry,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create finish service: %w", err)
	}

	listSvc, err := list.NewService(list.ServiceConfig{
		Registry: queryRegistry,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create list service: %w", err)
	}

	capacitySvc, err := capacity.NewService(capacity.ServiceConfig{
		Registry: queryRegistry,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create capacity service: %w", err)
	}

	// API server.
	srv, err := server.NewServer(server.ServerConfig{
		ListenAddr:      sts.ListenAddr,
		Start:           startSvc,
		Status:          statusSvc,
		Logs:            logsSvc,
		Kill:            killSvc,
		Finish:          finishSvc,
		List:            listSvc,
		Capacity:        capacitySvc,
		MetricsRecorder: metricsRecorder,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("could not create API server: %w", err)
	}

	logger.Infof("Node %d running as %s with %d peers", sts.Identity, sts.Role(), len(sts.OtherPeers()))

	var g run.Group

	// API server.
	{
		srvCtx, srvCancel := context.WithCancel(context.Background())
		defer srvCancel()

		g.Add(
			func() error {
				return srv.Run(srvCtx)
			},
			func(_ error) {
				srvCancel()
			},
		)
	}

	// Context cancellation (signals handled by the caller).
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				<-ctx.Done()
				return ctx.Err()
			},
			func(_ error) {
				cancel()
			},
		)
	}

	err = g.Run()

	// Drain running queries so their history rows settle before exit.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), queryDrainTimeout)
	defer drainCancel()
	if stopErr := queryRegistry.Stop(drainCtx); stopErr != nil {
		logger.Warningf("Query drain incomplete: %s", stopErr)
	}

	return err
}
