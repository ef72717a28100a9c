package commands

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/ulid/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/settings"
	"github.com/ringside-dev/ringside/pkg/client"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	ServerURL  string
	ConfigPath string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	// Register flags.
	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("server", "Base URL of the sidecar API the client commands talk to.").Envar("RINGSIDE_SERVER").Default("http://127.0.0.1:17440").StringVar(&c.ServerURL)
	app.Flag("config", "Path of the node settings file.").Envar("RINGSIDE_CONFIG").Default(defaultConfigPath()).StringVar(&c.ConfigPath)

	return c
}

// apiClient returns a sidecar API client aimed at the global server flag.
func (c *RootCommand) apiClient() (*client.Client, error) {
	cl, err := client.New(client.Config{BaseURL: c.ServerURL})
	if err != nil {
		return nil, fmt.Errorf("could not create API client: %w", err)
	}

	return cl, nil
}

func defaultConfigPath() string {
	return filepath.Join(homedir.HomeDir(), ".ringside", "ringside.yaml")
}

// loadSettings loads and validates the node settings file used by the
// commands that run on the node itself (server, doctor).
func loadSettings(ctx context.Context, path string) (settings.Settings, error) {
	dir, file := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	repo := settings.NewYAMLRepository(os.DirFS(dir))
	sts, err := repo.Get(ctx, file)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("could not load settings from %q: %w", path, err)
	}

	return sts, nil
}

// newQueryID generates a sortable unique query ID for starts that don't
// bring their own.
func newQueryID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
