package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rolloutd/rolloutd/internal/deployments"
	"github.com/rolloutd/rolloutd/internal/provision"
)

// Recreate terminates every unit of the target and provisions the new
// version from scratch. The window between termination and the first
// healthy unit is accepted downtime; with no old units preserved there is
// no partial-failure ambiguity either.
type Recreate struct{}

func NewRecreate() *Recreate {
	return &Recreate{}
}

// Strategy implements Executor.
func (e *Recreate) Strategy() deployments.Strategy {
	return deployments.StrategyRecreate
}

// Execute implements Executor.
func (e *Recreate) Execute(ctx context.Context, ex *Execution) error {
	if err := ex.Boundary(ctx, "terminating all units", 10); err != nil {
		return err
	}

	units, err := ex.Provisioner.ListUnits(ctx, ex.Target())
	if err != nil {
		return fmt.Errorf("failed to list units: %w", err)
	}

	for _, unit := range units {
		ex.Logger.Info("terminating unit", zap.String("unit_id", unit.ID))
		if err := ex.Provisioner.TerminateUnit(ctx, ex.Target(), unit.ID); err != nil {
			return fmt.Errorf("failed to terminate unit %s: %w", unit.ID, err)
		}
	}

	count := len(units)
	if count == 0 {
		count = 1
	}

	if err := ex.Boundary(ctx, "provisioning new units", 50); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		if _, err := ex.Provisioner.ProvisionUnit(ctx, ex.Target(), provision.RoleActive, ex.Version); err != nil {
			return fmt.Errorf("failed to provision unit: %w", err)
		}
	}

	if err := ex.Boundary(ctx, "health-checking new units", 80); err != nil {
		return err
	}

	return nil
}
