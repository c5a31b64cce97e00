// Package provision abstracts the backend that actually creates, replaces
// and terminates deploy units. Strategy executors consume this interface;
// the orchestrator core never talks to the backend directly.
package provision

import (
	"context"
	"errors"

	"github.com/rolloutd/rolloutd/internal/deployments"
)

// Role distinguishes what share of traffic a unit serves.
type Role string

const (
	// RoleActive units serve live traffic.
	RoleActive Role = "active"

	// RoleStandby units form the parallel blue-green environment awaiting
	// the traffic switch.
	RoleStandby Role = "standby"

	// RoleCanary units serve the canary traffic share.
	RoleCanary Role = "canary"
)

// Unit is one running instance of a target.
type Unit struct {
	ID   string
	Name string
	Role Role

	// Version is the mutation the unit currently runs.
	Version string
}

// ErrUnitNotFound means the referenced unit does not exist in the backend.
var ErrUnitNotFound = errors.New("unit not found")

// Provisioner performs the backend operations the rollout strategies are
// built from. Implementations must be safe for use from a single execution
// goroutine; cross-deployment serialization is the orchestrator's concern.
type Provisioner interface {
	// ListUnits returns all units of a target, any role.
	ListUnits(ctx context.Context, target deployments.Target) ([]Unit, error)

	// ProvisionUnit creates one new unit running version with the given role.
	ProvisionUnit(ctx context.Context, target deployments.Target, role Role, version string) (Unit, error)

	// ReplaceUnit tears down the unit and brings up a substitute running
	// version, keeping the role.
	ReplaceUnit(ctx context.Context, target deployments.Target, unitID, version string) (Unit, error)

	// TerminateUnit removes the unit.
	TerminateUnit(ctx context.Context, target deployments.Target, unitID string) error

	// SetTrafficWeight routes percent of the target's traffic to canary
	// units; 0 restores all traffic to the active set.
	SetTrafficWeight(ctx context.Context, target deployments.Target, percent int) error

	// PromoteStandby atomically switches traffic from the active set to
	// the standby set. This is the single irrevocable point of a
	// blue-green rollout.
	PromoteStandby(ctx context.Context, target deployments.Target) error
}
