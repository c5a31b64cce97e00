package executor

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/rolloutd/rolloutd/internal/deployments"
	"github.com/rolloutd/rolloutd/internal/provision"
)

// Rolling replaces active units in bounded batches, gating each batch on
// health before advancing. A failure mid-roll halts further replacement and
// fails the deployment, leaving already-replaced units in place; recovery
// is an explicit rollback, never automatic.
type Rolling struct{}

func NewRolling() *Rolling {
	return &Rolling{}
}

// Strategy implements Executor.
func (e *Rolling) Strategy() deployments.Strategy {
	return deployments.StrategyRolling
}

// Execute implements Executor.
func (e *Rolling) Execute(ctx context.Context, ex *Execution) error {
	if err := ex.Boundary(ctx, "listing units", 5); err != nil {
		return err
	}

	units, err := ex.Provisioner.ListUnits(ctx, ex.Target())
	if err != nil {
		return fmt.Errorf("failed to list units: %w", err)
	}
	active := lo.Filter(units, func(u provision.Unit, _ int) bool {
		return u.Role == provision.RoleActive
	})

	// An empty target has nothing to roll over; bring up the first unit
	// and let the final gate confirm it.
	if len(active) == 0 {
		if err := ex.Boundary(ctx, "provisioning initial unit", 20); err != nil {
			return err
		}
		if _, err := ex.Provisioner.ProvisionUnit(ctx, ex.Target(), provision.RoleActive, ex.Version); err != nil {
			return fmt.Errorf("failed to provision initial unit: %w", err)
		}
		return nil
	}

	batchSize := ex.Config.MaxConcurrentUnits
	replaced := 0

	for replaced < len(active) {
		batch := active[replaced:min(replaced+batchSize, len(active))]

		label := fmt.Sprintf("replacing units %d-%d of %d",
			replaced+1, replaced+len(batch), len(active))
		// Progress spans 10..90 across the roll; the final gate owns the rest.
		progress := 10 + 80*replaced/len(active)
		if err := ex.Boundary(ctx, label, progress); err != nil {
			return err
		}

		for _, unit := range batch {
			ex.Logger.Info("draining unit", zap.String("unit_id", unit.ID))
			if _, err := ex.Provisioner.ReplaceUnit(ctx, ex.Target(), unit.ID, ex.Version); err != nil {
				return fmt.Errorf("failed to replace unit %s: %w", unit.ID, err)
			}
		}

		if err := ex.AwaitHealthy(ctx); err != nil {
			return fmt.Errorf("batch failed health gate after %d of %d units: %w",
				replaced+len(batch), len(active), err)
		}

		replaced += len(batch)
	}

	return nil
}
