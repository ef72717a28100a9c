// Package peer gives query pipelines a view of the other sidecars on the
// ring: status polling for the start barrier and kill/finish signal delivery.
package peer

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/pkg/client"
)

// Ring is the consumed view of the other ring nodes.
type Ring interface {
	// Status asks a peer for the current status of a query. It never fails:
	// transport and decoding problems are answered as StatusUnknown so
	// pollers can treat them as transient.
	Status(ctx context.Context, p model.Peer, queryID string) model.Status
	// Kill asks a peer to stop a query immediately.
	Kill(ctx context.Context, p model.Peer, queryID string) error
	// Finish asks a peer to end a query gracefully.
	Finish(ctx context.Context, p model.Peer, queryID string) error
}

// HTTPRingConfig is the configuration for the HTTP ring.
type HTTPRingConfig struct {
	// HTTPClient is the client used for the per-peer API clients.
	HTTPClient *http.Client
	// CallTimeout bounds every single peer call.
	CallTimeout time.Duration
	Logger      log.Logger
}

func (c *HTTPRingConfig) defaults() error {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "peer.HTTPRing"})
	return nil
}

// HTTPRing talks to ring peers over their sidecar APIs.
type HTTPRing struct {
	httpClient  *http.Client
	callTimeout time.Duration
	logger      log.Logger

	mu      sync.Mutex
	clients map[string]*client.Client
}

// NewHTTPRing creates a new HTTP ring.
func NewHTTPRing(cfg HTTPRingConfig) (*HTTPRing, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &HTTPRing{
		httpClient:  cfg.HTTPClient,
		callTimeout: cfg.CallTimeout,
		logger:      cfg.Logger,
		clients:     map[string]*client.Client{},
	}, nil
}

var _ Ring = &HTTPRing{}

// Status implements Ring.
func (r *HTTPRing) Status(ctx context.Context, p model.Peer, queryID string) model.Status {
	c, err := r.clientFor(p)
	if err != nil {
		r.logger.Warningf("Peer %d client unavailable: %v", p.Identity, err)
		return model.StatusUnknown
	}

	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	qs, err := c.Status(ctx, queryID)
	if err != nil {
		r.logger.Debugf("Status poll on peer %d failed: %v", p.Identity, err)
		return model.StatusUnknown
	}

	return qs.Status
}

// Kill implements Ring.
func (r *HTTPRing) Kill(ctx context.Context, p model.Peer, queryID string) error {
	c, err := r.clientFor(p)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	return c.Kill(ctx, queryID)
}

// Finish implements Ring.
func (r *HTTPRing) Finish(ctx context.Context, p model.Peer, queryID string) error {
	c, err := r.clientFor(p)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	return c.Finish(ctx, queryID)
}

func (r *HTTPRing) clientFor(p model.Peer) (*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[p.URL]; ok {
		return c, nil
	}

	c, err := client.New(client.Config{BaseURL: p.URL, HTTPClient: r.httpClient})
	if err != nil {
		return nil, fmt.Errorf("could not create client for peer %d: %w", p.Identity, err)
	}
	r.clients[p.URL] = c

	return c, nil
}
