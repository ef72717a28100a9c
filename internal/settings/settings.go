// Package settings loads and validates the per-node configuration: who this
// node is on the ring, where the other sidecars live and which directories
// the pipelines work in.
package settings

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ringside-dev/ringside/internal/model"
)

const (
	defaultRepoURL           = "https://github.com/private-attribution/ipa.git"
	defaultListenAddr        = ":17440"
	defaultHelperPort        = 7432
	defaultMaxConcurrent     = 1
	defaultPollInterval      = time.Second
	defaultUnknownStatusWait = 100 * time.Second
	defaultStartupGrace      = 3 * time.Second
)

// Settings is the validated node configuration.
type Settings struct {
	Identity             int
	ListenAddr           string
	RootDir              string
	ConfigDir            string
	RepoURL              string
	HelperPort           int
	MaxConcurrentQueries int
	PollInterval         time.Duration
	UnknownStatusWait    time.Duration
	StartupGrace         time.Duration
	Peers                []model.Peer
}

// Role returns this node's ring role.
func (s Settings) Role() model.Role {
	return model.RoleForIdentity(s.Identity)
}

// OtherPeers returns every ring node except this one, in identity order.
// Barriers and signal fan-outs iterate peers in exactly this order.
func (s Settings) OtherPeers() []model.Peer {
	others := make([]model.Peer, 0, len(s.Peers))
	for _, p := range s.Peers {
		if p.Identity != s.Identity {
			others = append(others, p)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i].Identity < others[j].Identity })
	return others
}

// Validate validates the node settings.
func (s Settings) Validate() error {
	if s.Identity < 0 {
		return fmt.Errorf("identity can't be negative: %w", model.ErrNotValid)
	}
	if s.RootDir == "" {
		return fmt.Errorf("root dir is required: %w", model.ErrNotValid)
	}
	if s.ConfigDir == "" {
		return fmt.Errorf("config dir is required: %w", model.ErrNotValid)
	}
	if len(s.Peers) == 0 {
		return fmt.Errorf("at least one peer is required: %w", model.ErrNotValid)
	}

	selfListed := false
	seen := map[int]struct{}{}
	for _, p := range s.Peers {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("peer %d: %w", p.Identity, err)
		}
		if _, ok := seen[p.Identity]; ok {
			return fmt.Errorf("duplicated peer identity %d: %w", p.Identity, model.ErrNotValid)
		}
		seen[p.Identity] = struct{}{}
		if p.Identity == s.Identity {
			selfListed = true
		}
	}
	if !selfListed {
		return fmt.Errorf("peers must include this node (identity %d): %w", s.Identity, model.ErrNotValid)
	}

	return nil
}

// YAMLRepository loads node settings from YAML files.
type YAMLRepository struct {
	fs fs.FS
}

// NewYAMLRepository creates a new YAML settings repository.
func NewYAMLRepository(filesystem fs.FS) *YAMLRepository {
	return &YAMLRepository{fs: filesystem}
}

// Get loads node settings from a YAML file and returns a validated model.
func (r *YAMLRepository) Get(ctx context.Context, path string) (Settings, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings file: %w", err)
	}

	if ctx.Err() != nil {
		return Settings{}, ctx.Err()
	}

	var cfg nodeSettings
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Settings{}, fmt.Errorf("parsing YAML: %w", err)
	}

	s := cfg.toModel()
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}

	return s, nil
}

// nodeSettings represents the YAML structure for node settings.
type nodeSettings struct {
	Identity                 *int         `yaml:"identity"`
	ListenAddr               string       `yaml:"listen_addr"`
	RootDir                  string       `yaml:"root_dir"`
	ConfigDir                string       `yaml:"config_dir"`
	RepoURL                  string       `yaml:"repo_url"`
	HelperPort               int          `yaml:"helper_port"`
	MaxConcurrentQueries     int          `yaml:"max_concurrent_queries"`
	PollIntervalSeconds      int          `yaml:"poll_interval_seconds"`
	UnknownStatusWaitSeconds int          `yaml:"unknown_status_wait_seconds"`
	StartupGraceSeconds      int          `yaml:"startup_grace_seconds"`
	Peers                    []peerConfig `yaml:"peers"`
}

// peerConfig represents the YAML structure for a ring peer.
type peerConfig struct {
	Identity int    `yaml:"identity"`
	URL      string `yaml:"url"`
}

func (c nodeSettings) toModel() Settings {
	s := Settings{
		ListenAddr:           c.ListenAddr,
		RootDir:              c.RootDir,
		ConfigDir:            c.ConfigDir,
		RepoURL:              c.RepoURL,
		HelperPort:           c.HelperPort,
		MaxConcurrentQueries: c.MaxConcurrentQueries,
		PollInterval:         time.Duration(c.PollIntervalSeconds) * time.Second,
		UnknownStatusWait:    time.Duration(c.UnknownStatusWaitSeconds) * time.Second,
		StartupGrace:         time.Duration(c.StartupGraceSeconds) * time.Second,
	}

	if c.Identity != nil {
		s.Identity = *c.Identity
	} else {
		s.Identity = -1 // Missing identity must not silently become the coordinator.
	}

	if s.ListenAddr == "" {
		s.ListenAddr = defaultListenAddr
	}
	if s.RepoURL == "" {
		s.RepoURL = defaultRepoURL
	}
	if s.HelperPort == 0 {
		s.HelperPort = defaultHelperPort
	}
	if s.MaxConcurrentQueries == 0 {
		s.MaxConcurrentQueries = defaultMaxConcurrent
	}
	if s.PollInterval == 0 {
		s.PollInterval = defaultPollInterval
	}
	if s.UnknownStatusWait == 0 {
		s.UnknownStatusWait = defaultUnknownStatusWait
	}
	if s.StartupGrace == 0 {
		s.StartupGrace = defaultStartupGrace
	}

	for _, p := range c.Peers {
		s.Peers = append(s.Peers, model.Peer{Identity: p.Identity, URL: p.URL})
	}

	return s
}
