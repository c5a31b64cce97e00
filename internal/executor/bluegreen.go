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

// BlueGreen provisions a parallel standby environment, health-checks it and
// then performs the atomic traffic switch. The switch is the single point
// of irrevocability; any failure before it tears the standby set down again
// and leaves the active environment untouched.
type BlueGreen struct{}

func NewBlueGreen() *BlueGreen {
	return &BlueGreen{}
}

// Strategy implements Executor.
func (e *BlueGreen) Strategy() deployments.Strategy {
	return deployments.StrategyBlueGreen
}

// Execute implements Executor.
func (e *BlueGreen) Execute(ctx context.Context, ex *Execution) error {
	if err := ex.Boundary(ctx, "provisioning standby environment", 10); err != nil {
		return err
	}

	units, err := ex.Provisioner.ListUnits(ctx, ex.Target())
	if err != nil {
		return fmt.Errorf("failed to list units: %w", err)
	}
	active := lo.Filter(units, func(u provision.Unit, _ int) bool {
		return u.Role == provision.RoleActive
	})

	standbyCount := len(active)
	if standbyCount == 0 {
		standbyCount = 1
	}

	var standby []provision.Unit
	for i := 0; i < standbyCount; i++ {
		unit, provErr := ex.Provisioner.ProvisionUnit(ctx, ex.Target(), provision.RoleStandby, ex.Version)
		if provErr != nil {
			e.teardown(ctx, ex, standby)
			return fmt.Errorf("failed to provision standby unit: %w", provErr)
		}
		standby = append(standby, unit)
	}

	if err := ex.Boundary(ctx, "health-checking standby environment", 40); err != nil {
		e.teardown(ctx, ex, standby)
		return err
	}
	if err := ex.AwaitHealthy(ctx); err != nil {
		e.teardown(ctx, ex, standby)
		return fmt.Errorf("standby environment failed health gate: %w", err)
	}

	if window := ex.Config.ObservationWindow(); window > 0 {
		if err := ex.Boundary(ctx, "observing standby environment", 60); err != nil {
			e.teardown(ctx, ex, standby)
			return err
		}
		select {
		case <-ctx.Done():
			e.teardown(ctx, ex, standby)
			return fmt.Errorf("execution interrupted: %w", ctx.Err())
		case <-time.After(window):
		}
	}

	// Past this boundary the switch happens and cannot be undone.
	if err := ex.Boundary(ctx, "switching traffic", 80); err != nil {
		e.teardown(ctx, ex, standby)
		return err
	}
	if err := ex.Provisioner.PromoteStandby(ctx, ex.Target()); err != nil {
		return fmt.Errorf("traffic switch failed: %w", err)
	}

	if err := ex.Boundary(ctx, "decommissioned old environment", 90); err != nil {
		return err
	}

	return nil
}

// teardown removes the standby set after a pre-switch failure so the
// failure is clean with zero user impact. Best-effort: the units carry the
// standby role and never received traffic.
func (e *BlueGreen) teardown(ctx context.Context, ex *Execution, standby []provision.Unit) {
	for _, unit := range standby {
		if err := ex.Provisioner.TerminateUnit(ctx, ex.Target(), unit.ID); err != nil {
			ex.Logger.Warn("failed to tear down standby unit",
				zap.String("unit_id", unit.ID),
				zap.Error(err),
			)
		}
	}
}
