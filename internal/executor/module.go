package executor

import (
	"context"

	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"executor",
		logger.WithNamedLogger("executor"),
		fx.Provide(func() *Registry {
			registry := NewRegistry()
			registry.Register(NewRolling())
			registry.Register(NewBlueGreen())
			registry.Register(NewCanary())
			registry.Register(NewRecreate())
			registry.Register(NewRollback())
			return registry
		}, fx.Private),
		fx.Provide(NewRunner),
		fx.Invoke(func(lc fx.Lifecycle, runner *Runner) {
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					runner.Stop()
					return nil
				},
			})
		}),
	)
}
