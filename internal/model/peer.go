package model

import "fmt"

// Role of a node in the MPC ring.
type Role string

const (
	// RoleCoordinator drives queries end to end and owns the start barrier.
	RoleCoordinator Role = "coordinator"
	// RoleHelper serves its ring share of the computation.
	RoleHelper Role = "helper"
)

// RoleForIdentity returns the ring role of a node identity. The coordinator
// always sits at identity 0, helpers at 1..N.
func RoleForIdentity(identity int) Role {
	if identity == 0 {
		return RoleCoordinator
	}
	return RoleHelper
}

// Peer is a sidecar node on the ring.
type Peer struct {
	Identity int
	URL      string
}

// Validate validates the peer.
func (p Peer) Validate() error {
	if p.Identity < 0 {
		return fmt.Errorf("peer identity can't be negative: %w", ErrNotValid)
	}
	if p.URL == "" {
		return fmt.Errorf("peer url is required: %w", ErrNotValid)
	}
	return nil
}

// Role returns the ring role of the peer.
func (p Peer) Role() Role {
	return RoleForIdentity(p.Identity)
}
