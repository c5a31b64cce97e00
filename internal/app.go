package internal

import (
	"context"

	"github.com/capcom6/go-infra-fx/validator"
	"github.com/go-core-fx/fiberfx"
	"github.com/go-core-fx/healthfx"
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/rolloutd/rolloutd/internal/config"
	"github.com/rolloutd/rolloutd/internal/deployments"
	"github.com/rolloutd/rolloutd/internal/executor"
	healthgate "github.com/rolloutd/rolloutd/internal/health"
	"github.com/rolloutd/rolloutd/internal/metrics"
	"github.com/rolloutd/rolloutd/internal/notify"
	"github.com/rolloutd/rolloutd/internal/provision"
	"github.com/rolloutd/rolloutd/internal/server"
	"github.com/rolloutd/rolloutd/internal/status"
	"github.com/rolloutd/rolloutd/pkg/badgerfx"
	"github.com/rolloutd/rolloutd/pkg/dockerfx"
	"github.com/rolloutd/rolloutd/pkg/openapifx"
)

func Run() {
	fx.New(
		// CORE MODULES
		logger.Module(),
		logger.WithFxDefaultLogger(),
		badgerfx.Module(),
		dockerfx.Module(),
		healthfx.Module(),
		fiberfx.Module(),
		validator.Module,
		openapifx.Module(),
		//
		// APP MODULES
		config.Module(),
		server.Module(),
		provision.Module(),
		//
		// BUSINESS MODULES
		fx.Provide(func() healthfx.Version { return healthfx.Version{Version: "0.0.1", ReleaseID: 1} }),
		metrics.Module(),
		notify.Module(),
		status.Module(),
		healthgate.Module(),
		executor.Module(),
		deployments.Module(),
		fx.Provide(
			func(r *executor.Runner) deployments.Dispatcher { return r },
			func(p *status.Projector) deployments.StatusSource { return p },
		),
		//
		// LIFECYCLE MANAGEMENT
		fx.Invoke(func(lc fx.Lifecycle, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					logger.Info("🚀 rolloutd application starting up")
					return nil
				},
				OnStop: func(_ context.Context) error {
					logger.Info("🛑 rolloutd application shutting down gracefully")
					return nil
				},
			})
		}),
	).Run()
}
