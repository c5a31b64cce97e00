package status

import (
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"status",
		logger.WithNamedLogger("status"),
		fx.Provide(NewProjector),
	)
}
