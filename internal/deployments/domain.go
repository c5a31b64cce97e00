package deployments

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Environment is a deployment target tier.
type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentTesting     Environment = "testing"
	EnvironmentStaging     Environment = "staging"
	EnvironmentProduction  Environment = "production"
)

func (e Environment) Valid() bool {
	switch e {
	case EnvironmentDevelopment, EnvironmentTesting, EnvironmentStaging, EnvironmentProduction:
		return true
	}
	return false
}

// Strategy is the rollout algorithm used by a deployment.
type Strategy string

const (
	StrategyRolling   Strategy = "rolling"
	StrategyBlueGreen Strategy = "blue_green"
	StrategyCanary    Strategy = "canary"
	StrategyRecreate  Strategy = "recreate"
	StrategyRollback  Strategy = "rollback"
)

func (s Strategy) Valid() bool {
	switch s {
	case StrategyRolling, StrategyBlueGreen, StrategyCanary, StrategyRecreate, StrategyRollback:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"   // Accepted, executor not started yet
	StatusRunning   Status = "running"   // Executor is driving the rollout
	StatusCompleted Status = "completed" // Rollout finished and passed the health gate
	StatusFailed    Status = "failed"    // Rollout failed, timed out or crashed
	StatusCancelled Status = "cancelled" // Cancelled before reaching a natural terminal state
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Target identifies what a deployment rolls out against. All operations
// against the same target are serialized by the exclusivity lock.
type Target struct {
	SpecID      string
	Environment Environment
}

func (t Target) String() string {
	return t.SpecID + ":" + string(t.Environment)
}

// identifierPattern is the accepted format for the opaque mutation and
// specification identifiers supplied by the external registry.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{0,63}$`)

// ValidIdentifier reports whether s matches the external identifier format.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// CreateRequest is a request to roll out a mutation to an environment.
type CreateRequest struct {
	MutationID  string
	SpecID      string
	Environment Environment
	Strategy    Strategy
	Config      map[string]any

	// Confirmed must be true for production targets; the confirmation
	// dialog itself is the caller's concern.
	Confirmed bool

	CreatedBy string
}

// RollbackRequest reverts a prior terminal deployment by creating a new,
// causally linked one.
type RollbackRequest struct {
	DeploymentID uuid.UUID
	Reason       string
	Confirmed    bool
	CreatedBy    string
}

// Deployment is one attempt to roll out a mutation to an environment using
// a chosen strategy. Once a terminal status is recorded the record is
// immutable; a rollback is a new Deployment linked through RollbackOf.
type Deployment struct {
	ID uuid.UUID

	MutationID  string
	SpecID      string
	Environment Environment
	Strategy    Strategy
	Status      Status

	Config map[string]any

	CreatedBy   string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	// Error holds the failure message when Status is failed.
	Error string

	// RollbackOf references the deployment this one rolls back. Set only
	// when Strategy is rollback, together with a non-empty RollbackReason.
	RollbackOf     *uuid.UUID
	RollbackReason string

	// RolledBackBy is derived on read: the id of a completed rollback
	// deployment that targeted this record. The record's own Status is
	// never rewritten.
	RolledBackBy *uuid.UUID

	UpdatedAt time.Time
}

// Target returns the exclusivity-lock key of the deployment.
func (d *Deployment) Target() Target {
	return Target{SpecID: d.SpecID, Environment: d.Environment}
}

// StatusInfo is the externally polled progress projection of a deployment.
// It is derived state, never the source of truth.
type StatusInfo struct {
	DeploymentID uuid.UUID
	Status       Status

	// ProgressPercentage is in [0, 100] and non-decreasing while the
	// deployment is running.
	ProgressPercentage int

	// CurrentStep describes the active execution phase.
	CurrentStep string

	// EstimatedRemainingSeconds is a best-effort estimate; nil when no
	// estimate is available yet.
	EstimatedRemainingSeconds *int

	// ErrorMessage is present only when Status is failed.
	ErrorMessage string

	UpdatedAt time.Time
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Environment Environment
	Status      Status
	MutationID  string
}

// Validate rejects filter values outside the known enums. Rollbacks keep
// their own terminal status, so a filter for a label this system never
// records fails loudly instead of matching nothing.
func (f Filter) Validate() error {
	if f.Environment != "" && !f.Environment.Valid() {
		return fmt.Errorf("%w: unknown environment filter %q", ErrValidation, string(f.Environment))
	}
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("%w: unknown status filter %q", ErrValidation, string(f.Status))
	}
	return nil
}

// Matches reports whether the deployment satisfies every set filter field.
func (f Filter) Matches(d *Deployment) bool {
	if f.Environment != "" && d.Environment != f.Environment {
		return false
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.MutationID != "" && d.MutationID != f.MutationID {
		return false
	}
	return true
}

// Page is a pagination request. Page numbers start at 1.
type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func (p Page) normalized() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// DeploymentList is one page of deployments plus paging metadata.
type DeploymentList struct {
	Items    []Deployment
	Page     int
	PageSize int
	Total    int
}
