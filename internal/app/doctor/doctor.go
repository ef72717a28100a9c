// Package doctor runs the preflight checks of a node: the tools and material
// every pipeline stage takes for granted.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/ringside-dev/ringside/internal/conventions"
	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/settings"
	"github.com/ringside-dev/ringside/pkg/client"
)

// peerProbeTimeout bounds each peer reachability probe.
const peerProbeTimeout = 3 * time.Second

// ServiceConfig is the configuration for the doctor service.
type ServiceConfig struct {
	Settings settings.Settings
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Doctor"})

	return nil
}

// Service runs node preflight checks.
type Service struct {
	settings settings.Settings
	logger   log.Logger
}

// NewService creates a new doctor service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		settings: cfg.Settings,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the doctor request parameters.
type Request struct{}

// Response carries the check results.
type Response struct {
	Results []model.CheckResult
}

// Run executes every preflight check and returns the results. Checks never
// abort the run, a broken node should report everything that is wrong.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	results := []model.CheckResult{
		s.checkBinary("git"),
		s.checkBinary("cargo"),
		s.checkRootDir(),
		s.checkNetworkConfig(),
	}

	if s.settings.Role() == model.RoleHelper {
		results = append(results, s.checkIdentityMaterial())
	}

	results = append(results, s.checkPeers(ctx)...)

	return &Response{Results: results}, nil
}

// checkBinary checks a build tool is resolvable from PATH.
func (s *Service) checkBinary(name string) model.CheckResult {
	id := name + "_available"

	path, err := exec.LookPath(name)
	if err != nil {
		return model.CheckResult{
			ID:      id,
			Message: fmt.Sprintf("%s not found in PATH, pipeline stages can't run without it", name),
			Status:  model.CheckStatusError,
		}
	}

	return model.CheckResult{
		ID:      id,
		Message: fmt.Sprintf("%s found at %s", name, path),
		Status:  model.CheckStatusOK,
	}
}

// checkRootDir checks the data directory exists (or can be created) and is
// writable.
func (s *Service) checkRootDir() model.CheckResult {
	root := s.settings.RootDir

	if err := os.MkdirAll(root, 0755); err != nil {
		return model.CheckResult{
			ID:      "root_dir_writable",
			Message: fmt.Sprintf("Cannot create root dir %s: %v", root, err),
			Status:  model.CheckStatusError,
		}
	}

	probe, err := os.CreateTemp(root, ".doctor-probe-*")
	if err != nil {
		return model.CheckResult{
			ID:      "root_dir_writable",
			Message: fmt.Sprintf("Root dir %s is not writable: %v", root, err),
			Status:  model.CheckStatusError,
		}
	}
	probe.Close()
	os.Remove(probe.Name())

	return model.CheckResult{
		ID:      "root_dir_writable",
		Message: fmt.Sprintf("Root dir %s is writable", root),
		Status:  model.CheckStatusOK,
	}
}

// checkNetworkConfig checks the ring topology file launch stages pass to the
// binaries.
func (s *Service) checkNetworkConfig() model.CheckResult {
	path := conventions.NetworkPath(s.settings.ConfigDir)

	if _, err := os.Stat(path); err != nil {
		return model.CheckResult{
			ID:      "network_config",
			Message: fmt.Sprintf("Network config not found at %s", path),
			Status:  model.CheckStatusError,
		}
	}

	return model.CheckResult{
		ID:      "network_config",
		Message: fmt.Sprintf("Network config present at %s", path),
		Status:  model.CheckStatusOK,
	}
}

// checkIdentityMaterial checks the TLS and match key files the helper server
// is launched with.
func (s *Service) checkIdentityMaterial() model.CheckResult {
	identity := s.settings.Identity
	confDir := s.settings.ConfigDir

	missing := []string{}
	for _, path := range []string{
		conventions.TLSCertPath(confDir, identity),
		conventions.TLSKeyPath(confDir, identity),
		conventions.MatchKeyPublicPath(confDir, identity),
		conventions.MatchKeyPrivatePath(confDir, identity),
	} {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}

	if len(missing) > 0 {
		return model.CheckResult{
			ID:      "identity_material",
			Message: fmt.Sprintf("Missing key material for identity %d: %v", identity, missing),
			Status:  model.CheckStatusError,
		}
	}

	return model.CheckResult{
		ID:      "identity_material",
		Message: fmt.Sprintf("TLS and match key material present for identity %d", identity),
		Status:  model.CheckStatusOK,
	}
}

// checkPeers probes the other sidecars' liveness endpoints. An unreachable
// peer is a warning, it may just not be up yet.
func (s *Service) checkPeers(ctx context.Context) []model.CheckResult {
	results := []model.CheckResult{}

	for _, p := range s.settings.OtherPeers() {
		id := fmt.Sprintf("peer_%d_reachable", p.Identity)

		c, err := client.New(client.Config{
			BaseURL:    p.URL,
			HTTPClient: &http.Client{Timeout: peerProbeTimeout},
		})
		if err != nil {
			results = append(results, model.CheckResult{
				ID:      id,
				Message: fmt.Sprintf("Invalid peer %d URL %q: %v", p.Identity, p.URL, err),
				Status:  model.CheckStatusError,
			})
			continue
		}

		probeCtx, cancel := context.WithTimeout(ctx, peerProbeTimeout)
		err = c.Healthy(probeCtx)
		cancel()
		if err != nil {
			results = append(results, model.CheckResult{
				ID:      id,
				Message: fmt.Sprintf("Peer %d unreachable at %s: %v", p.Identity, p.URL, err),
				Status:  model.CheckStatusWarning,
			})
			continue
		}

		results = append(results, model.CheckResult{
			ID:      id,
			Message: fmt.Sprintf("Peer %d reachable at %s", p.Identity, p.URL),
			Status:  model.CheckStatusOK,
		})
	}

	return results
}
