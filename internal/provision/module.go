package provision

import (
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"

	"github.com/rolloutd/rolloutd/internal/health"
)

func Module() fx.Option {
	return fx.Module(
		"provision",
		logger.WithNamedLogger("provision"),
		fx.Provide(
			fx.Annotate(NewSwarmProvisioner, fx.As(new(Provisioner))),
			fx.Annotate(NewUnitChecker, fx.As(new(health.Checker))),
		),
	)
}
