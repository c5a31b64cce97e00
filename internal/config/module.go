package config

import (
	"github.com/go-core-fx/fiberfx"
	"go.uber.org/fx"

	"github.com/rolloutd/rolloutd/internal/executor"
	"github.com/rolloutd/rolloutd/internal/provision"
	"github.com/rolloutd/rolloutd/pkg/badgerfx"
	"github.com/rolloutd/rolloutd/pkg/dockerfx"
	"github.com/rolloutd/rolloutd/pkg/openapifx"
)

func Module() fx.Option {
	return fx.Module(
		"config",
		fx.Provide(New),
		fx.Provide(func(cfg Config) fiberfx.Config {
			return fiberfx.Config{
				Address:     cfg.HTTP.Address,
				ProxyHeader: cfg.HTTP.ProxyHeader,
				Proxies:     cfg.HTTP.Proxies,
			}
		}),
		fx.Provide(func(cfg Config) openapifx.Config {
			return openapifx.Config{
				Enabled:    cfg.HTTP.OpenAPI.Enabled,
				PublicHost: cfg.HTTP.OpenAPI.PublicHost,
				PublicPath: cfg.HTTP.OpenAPI.PublicPath,
			}
		}),
		fx.Provide(func(cfg Config) badgerfx.Config {
			return badgerfx.Config{
				Dir: cfg.Storage.DataDir,
			}
		}),
		fx.Provide(func(cfg Config) dockerfx.Config {
			return dockerfx.Config{
				Host:       cfg.Docker.Host,
				APIVersion: cfg.Docker.APIVersion,
				Timeout:    cfg.Docker.Timeout,
				TLSEnabled: cfg.Docker.TLSEnabled,
				TLSConfig: dockerfx.TLSConfig{
					CAFile:   cfg.Docker.CAFile,
					CertFile: cfg.Docker.CertFile,
					KeyFile:  cfg.Docker.KeyFile,
				},
			}
		}),
		fx.Provide(func(cfg Config) provision.SwarmConfig {
			return provision.SwarmConfig{
				ImageTemplate: cfg.Provision.ImageTemplate,
			}
		}),
		fx.Provide(func(cfg Config) executor.Config {
			return executor.Config{
				Workers:          cfg.Executor.Workers,
				TrackerRetention: cfg.Executor.TrackerRetention,
				MaxExecutionTime: cfg.Executor.MaxExecutionTime,
			}
		}),
	)
}
