// Package fxmodule provides the Uber Fx wiring for the module host
// process: configuration, logger, and the Host façade, with its
// init/start/stop sequence driven by Fx lifecycle hooks.
package fxmodule

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/iruldev/modhost/internal/host"
	"github.com/iruldev/modhost/internal/hostconfig"
	"github.com/iruldev/modhost/internal/infra/config"
	"github.com/iruldev/modhost/internal/infra/observability"
	"github.com/iruldev/modhost/internal/lifecycle"
	"github.com/iruldev/modhost/internal/manifestio"
)

// Module provides every dependency the server entry point needs.
var Module = fx.Options(
	fx.Provide(config.Load),
	fx.Provide(observability.NewLogger),
	fx.Invoke(func(logger *slog.Logger) { slog.SetDefault(logger) }),
	fx.Provide(provideHostConfig),
	fx.Provide(provideManifestLoader),
	fx.Provide(provideHost),
	fx.Invoke(registerHostLifecycle),
)

func provideManifestLoader() lifecycle.ManifestLoader {
	return manifestio.NewLoader()
}

func provideHostConfig(cfg *config.Config) host.Config {
	return host.Config{
		EventThreadPoolSize: cfg.FrameworkEventThreadPoolSize,
		ReloadPollInterval:  cfg.FrameworkModulesReloadPollInterval,
		ModulesAutoReload:   cfg.FrameworkModulesAutoReload,
		ModulesAutoStart:    cfg.FrameworkModulesAutoStart,
		Properties:          hostconfig.FromEnviron("FRAMEWORK_"),
		IPCEnabled:          cfg.FrameworkIPCEnabled,
		IPCDefaultTimeout:   cfg.ShutdownTimeout,
		SecurityEnabled:     cfg.FrameworkSecurityEnabled,
	}
}

func provideHost(hcfg host.Config, logger *slog.Logger, ml lifecycle.ManifestLoader) *host.Host {
	return host.New(hcfg,
		host.WithLogger(logger),
		host.WithManifestLoader(ml),
	)
}

// registerHostLifecycle wires the Host façade's own CREATED->ACTIVE->
// STOPPED lifecycle into Fx's OnStart/OnStop hooks (§4.9).
func registerHostLifecycle(lc fx.Lifecycle, h *host.Host, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := h.Init(); err != nil {
				return err
			}
			logger.Info("module host active")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			timeout := cfg.ShutdownTimeout
			if timeout <= 0 {
				timeout = 30 * time.Second
			}
			if err := h.Stop(timeout); err != nil {
				logger.Error("module host stop reported errors", "error", err)
				return err
			}
			logger.Info("module host stopped")
			return nil
		},
	})
}
