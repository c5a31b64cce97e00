package badgerfx

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"badgerfx",
		logger.WithNamedLogger("badgerfx"),
		fx.Provide(newLogger, fx.Private),
		fx.Provide(New),
		fx.Invoke(func(db *badger.DB, config Config, logger *zap.Logger, lifecycle fx.Lifecycle) {
			lifecycle.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					logger.Info("store opened",
						zap.String("dir", config.Dir),
						zap.Bool("in_memory", config.InMemory),
					)
					return nil
				},
				OnStop: func(_ context.Context) error {
					logger.Info("closing store")
					if err := db.Close(); err != nil {
						return fmt.Errorf("failed to close store: %w", err)
					}
					return nil
				},
			})
		}),
	)
}
