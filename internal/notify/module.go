package notify

import (
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"notify",
		logger.WithNamedLogger("audit"),
		fx.Provide(func(log *zap.Logger) Notifier {
			return NewFanout(NewAuditLogger(log))
		}),
	)
}
