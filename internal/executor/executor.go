// Package executor contains the strategy executors and the runner driving
// the deployment lifecycle around them. Each rollout strategy owns only its
// phase sequence; timeouts, health gating, cancellation and persistence are
// shared concerns of the runner and the execution context.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rolloutd/rolloutd/internal/deployments"
	"github.com/rolloutd/rolloutd/internal/health"
	"github.com/rolloutd/rolloutd/internal/provision"
	"github.com/rolloutd/rolloutd/internal/status"
)

// ErrCancelled is returned from a phase boundary once cancellation intent
// has been observed.
var ErrCancelled = errors.New("execution cancelled")

// History is the read surface executors need over past deployments. The
// rollback executor uses it to locate the previous known-good record.
type History interface {
	GetByID(ctx context.Context, id uuid.UUID) (*deployments.Deployment, error)
	ListByTarget(ctx context.Context, target deployments.Target) ([]deployments.Deployment, error)
}

// Executor runs one rollout strategy from start to finish. Returning nil
// means the strategy's own phases succeeded; the runner still applies the
// final health gate before recording completion.
type Executor interface {
	Strategy() deployments.Strategy
	Execute(ctx context.Context, ex *Execution) error
}

// Execution is the per-deployment context handed to an executor.
type Execution struct {
	Deployment *deployments.Deployment
	Config     deployments.ExecutionConfig

	// Version is the mutation the units should end up running. For a
	// rollback it is the previous known-good mutation, not the
	// deployment's own MutationID.
	Version string

	Provisioner provision.Provisioner
	Gate        *health.Gate
	Tracker     *status.Tracker
	Registry    *Registry
	History     History
	Logger      *zap.Logger
}

// Boundary marks a phase boundary: it publishes the step label and
// progress, observes cancellation intent and surfaces an expired deadline.
// Executors must call it between phases and must not start a new phase when
// it errors.
func (ex *Execution) Boundary(ctx context.Context, label string, progress int) error {
	if ex.Tracker.CancelRequested() {
		return ErrCancelled
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("execution interrupted: %w", err)
	}

	ex.Tracker.Step(label)
	ex.Tracker.Progress(progress)
	ex.Logger.Info("phase boundary",
		zap.String("step", label),
		zap.Int("progress", progress),
	)

	return nil
}

// AwaitHealthy runs the health gate against the execution's target with the
// configured policy.
func (ex *Execution) AwaitHealthy(ctx context.Context) error {
	return ex.Gate.Await(
		ctx,
		ex.Deployment.SpecID,
		string(ex.Deployment.Environment),
		health.Policy{
			Interval:        ex.Config.HealthCheckInterval(),
			RequiredHealthy: ex.Config.RequiredHealthyChecks,
			MaxFailures:     ex.Config.MaxHealthCheckFailures,
		},
	)
}

// Target is shorthand for the deployment's lock key.
func (ex *Execution) Target() deployments.Target {
	return ex.Deployment.Target()
}

// Registry maps strategies to their executors.
type Registry struct {
	executors map[deployments.Strategy]Executor
}

func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[deployments.Strategy]Executor),
	}
}

// Register adds an executor; the last registration for a strategy wins.
func (r *Registry) Register(e Executor) {
	r.executors[e.Strategy()] = e
}

// Get returns the executor for the strategy.
func (r *Registry) Get(strategy deployments.Strategy) (Executor, error) {
	e, ok := r.executors[strategy]
	if !ok {
		return nil, fmt.Errorf("no executor registered for strategy %q", strategy)
	}
	return e, nil
}
