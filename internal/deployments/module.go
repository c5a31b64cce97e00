package deployments

import (
	"context"

	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"deployments",
		logger.WithNamedLogger("deployments"),
		fx.Provide(NewRepository),
		fx.Provide(NewService),
		// The recovery sweep runs before the server accepts requests so
		// stale target locks never block new deployments.
		fx.Invoke(func(lc fx.Lifecycle, svc *Service) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return svc.Recover(ctx)
				},
			})
		}),
	)
}
