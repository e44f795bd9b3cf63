// Package httpserver wires the chi router built in internal/interface/http
// into an *http.Server, started and stopped through Fx lifecycle hooks
// alongside the module host façade.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	"github.com/iruldev/modhost/internal/host"
	"github.com/iruldev/modhost/internal/infra/config"
	interfacehttp "github.com/iruldev/modhost/internal/interface/http"
	"github.com/iruldev/modhost/internal/lifecycle"
)

// Module provides the HTTP server and wires its start/stop into Fx.
var Module = fx.Options(
	fx.Provide(NewServer),
	fx.Provide(NewInternalServer),
	fx.Invoke(registerServerLifecycle),
	fx.Invoke(registerInternalServerLifecycle),
)

// NewServer builds the *http.Server around the module-host's chi router,
// applying the configured read/write/idle timeouts.
func NewServer(cfg *config.Config, h *host.Host, ml lifecycle.ManifestLoader) *http.Server {
	router := interfacehttp.NewRouter(cfg, h, ml)
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadHeaderTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		MaxHeaderBytes:    cfg.HTTPMaxHeaderBytes,
	}
}

// InternalServer wraps the operator-facing *http.Server (framework.internal.*,
// §4.9) as a distinct type so Fx can provide it alongside the public server
// without a *http.Server collision.
type InternalServer struct{ *http.Server }

// NewInternalServer builds the internal health-check server, bound to
// cfg.InternalBindAddress:cfg.InternalPort rather than the public port.
func NewInternalServer(cfg *config.Config) InternalServer {
	router := interfacehttp.NewInternalRouter()
	return InternalServer{&http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.InternalBindAddress, cfg.InternalPort),
		Handler:           router,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadHeaderTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}}
}

// registerInternalServerLifecycle starts/stops the internal server the same
// way registerServerLifecycle does for the public one, independently: a
// failure binding the internal port does not prevent the public API from
// serving traffic, only gets logged.
func registerInternalServerLifecycle(lc fx.Lifecycle, srv InternalServer, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				logger.Error("internal server failed to bind, operator endpoints unavailable", "addr", srv.Addr, "error", err)
				return nil
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("internal server exited", "error", err)
				}
			}()
			logger.Info("internal server listening", "addr", srv.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// registerServerLifecycle starts the server in a background goroutine on
// OnStart and gracefully shuts it down on OnStop, bounded by the
// configured shutdown timeout.
func registerServerLifecycle(lc fx.Lifecycle, srv *http.Server, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("httpserver: listen %s: %w", srv.Addr, err)
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server exited", "error", err)
				}
			}()
			logger.Info("http server listening", "addr", srv.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			timeout := cfg.ShutdownTimeout
			if timeout <= 0 {
				timeout = 30 * time.Second
			}
			shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			if interfacehttp.TracerShutdown != nil {
				if err := interfacehttp.TracerShutdown(shutdownCtx); err != nil {
					logger.Error("tracer shutdown failed", "error", err)
				}
			}

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown failed", "error", err)
				return err
			}
			logger.Info("http server stopped")
			return nil
		},
	})
}
