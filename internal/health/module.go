package health

import (
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"health",
		logger.WithNamedLogger("health"),
		fx.Provide(NewGate),
	)
}
