package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/rolloutd/rolloutd/internal/deployments"
)

// ErrNoKnownGood means no earlier completed deployment exists to roll the
// target back to.
var ErrNoKnownGood = errors.New("no known-good deployment to roll back to")

// Rollback re-runs the mechanics of the original deployment's strategy
// against the previous known-good mutation. Its own failure is surfaced
// like any other execution failure; a second-order rollback is never
// attempted.
type Rollback struct{}

func NewRollback() *Rollback {
	return &Rollback{}
}

// Strategy implements Executor.
func (e *Rollback) Strategy() deployments.Strategy {
	return deployments.StrategyRollback
}

// Execute implements Executor.
func (e *Rollback) Execute(ctx context.Context, ex *Execution) error {
	if ex.Deployment.RollbackOf == nil {
		return errors.New("rollback deployment carries no rollback reference")
	}

	if err := ex.Boundary(ctx, "resolving rollback target", 5); err != nil {
		return err
	}

	original, err := ex.History.GetByID(ctx, *ex.Deployment.RollbackOf)
	if err != nil {
		return fmt.Errorf("failed to load original deployment: %w", err)
	}

	knownGood, err := e.previousKnownGood(ctx, ex, original)
	if err != nil {
		return err
	}

	mechanics := original.Strategy
	if mechanics == deployments.StrategyRollback {
		// Guarded at request validation; kept as a hard stop here so the
		// executor can never recurse.
		return fmt.Errorf("original deployment %s is itself a rollback", original.ID)
	}

	delegate, err := ex.Registry.Get(mechanics)
	if err != nil {
		return err
	}

	ex.Logger.Info("rolling back",
		zap.String("original_id", original.ID.String()),
		zap.String("known_good_id", knownGood.ID.String()),
		zap.String("known_good_mutation", knownGood.MutationID),
		zap.String("mechanics", string(mechanics)),
	)

	if err := ex.Boundary(ctx, fmt.Sprintf("reverting via %s mechanics", mechanics), 10); err != nil {
		return err
	}

	// Same execution context, but the units end up on the known-good
	// mutation instead of this deployment's own reference.
	sub := *ex
	sub.Version = knownGood.MutationID

	return delegate.Execute(ctx, &sub)
}

// previousKnownGood finds the most recent completed, non-rollback
// deployment of the target that predates the original.
func (e *Rollback) previousKnownGood(
	ctx context.Context,
	ex *Execution,
	original *deployments.Deployment,
) (*deployments.Deployment, error) {
	history, err := ex.History.ListByTarget(ctx, ex.Target())
	if err != nil {
		return nil, fmt.Errorf("failed to load target history: %w", err)
	}

	knownGood, found := lo.Find(history, func(d deployments.Deployment) bool {
		return d.ID != original.ID &&
			d.Status == deployments.StatusCompleted &&
			d.Strategy != deployments.StrategyRollback &&
			d.CreatedAt.Before(original.CreatedAt)
	})
	if !found {
		return nil, fmt.Errorf("%w: target %s", ErrNoKnownGood, ex.Target())
	}

	return &knownGood, nil
}
