package provision

import (
	"context"

	"go.uber.org/zap"

	"github.com/rolloutd/rolloutd/internal/deployments"
	"github.com/rolloutd/rolloutd/internal/health"
)

// UnitChecker derives a target's readiness signal from its backend units:
// a target with at least one unit reports healthy, an empty target reports
// unhealthy, and a backend fault degrades to unknown so it is retried
// without consuming the hard-failure budget.
type UnitChecker struct {
	provisioner Provisioner
	logger      *zap.Logger
}

func NewUnitChecker(provisioner Provisioner, logger *zap.Logger) *UnitChecker {
	return &UnitChecker{
		provisioner: provisioner,
		logger:      logger,
	}
}

var _ health.Checker = (*UnitChecker)(nil)

// Check implements health.Checker.
func (c *UnitChecker) Check(ctx context.Context, specID, environment string) (health.Result, error) {
	target := deployments.Target{
		SpecID:      specID,
		Environment: deployments.Environment(environment),
	}

	units, err := c.provisioner.ListUnits(ctx, target)
	if err != nil {
		c.logger.Warn("failed to list units for health check", zap.Error(err))
		return health.Unknown, nil
	}

	if len(units) == 0 {
		return health.Unhealthy, nil
	}

	return health.Healthy, nil
}
