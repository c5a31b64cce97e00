package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/rolloutd/rolloutd/internal/deployments"
	"github.com/rolloutd/rolloutd/internal/provision"
)

// Canary routes a configured share of traffic to the new version, observes
// it behind the health gate and either promotes to 100% or aborts. An abort
// reverts the canary traffic share to 0% before the deployment fails, so
// the last pre-failure snapshot never shows canary traffic flowing.
type Canary struct{}

func NewCanary() *Canary {
	return &Canary{}
}

// Strategy implements Executor.
func (e *Canary) Strategy() deployments.Strategy {
	return deployments.StrategyCanary
}

// Execute implements Executor.
func (e *Canary) Execute(ctx context.Context, ex *Execution) error {
	percent := ex.Config.CanaryPercentage

	if err := ex.Boundary(ctx, "provisioning canary unit", 10); err != nil {
		return err
	}

	canaryUnit, err := ex.Provisioner.ProvisionUnit(ctx, ex.Target(), provision.RoleCanary, ex.Version)
	if err != nil {
		return fmt.Errorf("failed to provision canary unit: %w", err)
	}
	ex.Logger.Info("canary unit provisioned", zap.String("unit_id", canaryUnit.ID))

	label := fmt.Sprintf("routing %d%% of traffic to canary", percent)
	if err := ex.Boundary(ctx, label, 30); err != nil {
		return e.abort(ctx, ex, err)
	}
	if err := ex.Provisioner.SetTrafficWeight(ctx, ex.Target(), percent); err != nil {
		return e.abort(ctx, ex, fmt.Errorf("failed to shift canary traffic: %w", err))
	}

	if err := ex.Boundary(ctx, "observing canary", 50); err != nil {
		return e.abort(ctx, ex, err)
	}
	if err := ex.AwaitHealthy(ctx); err != nil {
		return e.abort(ctx, ex, fmt.Errorf("canary failed health gate: %w", err))
	}
	if window := ex.Config.ObservationWindow(); window > 0 {
		select {
		case <-ctx.Done():
			return e.abort(ctx, ex, fmt.Errorf("execution interrupted: %w", ctx.Err()))
		case <-time.After(window):
		}
	}

	if err := ex.Boundary(ctx, "promoting canary to 100%", 70); err != nil {
		return e.abort(ctx, ex, err)
	}

	units, err := ex.Provisioner.ListUnits(ctx, ex.Target())
	if err != nil {
		return e.abort(ctx, ex, fmt.Errorf("failed to list units: %w", err))
	}
	active := lo.Filter(units, func(u provision.Unit, _ int) bool {
		return u.Role == provision.RoleActive
	})

	for _, unit := range active {
		if _, err := ex.Provisioner.ReplaceUnit(ctx, ex.Target(), unit.ID, ex.Version); err != nil {
			return e.abort(ctx, ex, fmt.Errorf("failed to promote unit %s: %w", unit.ID, err))
		}
	}
	if len(active) == 0 {
		// Nothing served the stable share; the canary unit becomes it.
		if _, err := ex.Provisioner.ProvisionUnit(ctx, ex.Target(), provision.RoleActive, ex.Version); err != nil {
			return e.abort(ctx, ex, fmt.Errorf("failed to provision promoted unit: %w", err))
		}
	}

	if err := ex.Boundary(ctx, "retiring canary units", 90); err != nil {
		return err
	}
	if err := ex.Provisioner.SetTrafficWeight(ctx, ex.Target(), 0); err != nil {
		return fmt.Errorf("failed to retire canary units: %w", err)
	}

	return nil
}

// abort reverts canary traffic to 0% and removes canary units before
// surfacing the original failure.
func (e *Canary) abort(ctx context.Context, ex *Execution, cause error) error {
	ex.Tracker.Step("reverting canary traffic to 0%")
	ex.Logger.Warn("aborting canary rollout", zap.Error(cause))

	if err := ex.Provisioner.SetTrafficWeight(ctx, ex.Target(), 0); err != nil {
		ex.Logger.Warn("failed to revert canary traffic", zap.Error(err))
	}

	return cause
}
