package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pushgate/pushgate/config"
	"go.uber.org/fx"
)

var Module = fx.Module("http-server",
	fx.Provide(
		NewRouter,
		func(cfg *config.Config, r *chi.Mux) *http.Server {
			return &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           r,
				ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
			}
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, srv *http.Server, logger *slog.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				ln, err := net.Listen("tcp", srv.Addr)
				if err != nil {
					return err
				}
				logger.Info("http server listening", "addr", srv.Addr)
				go func() {
					if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("http server stopped", "err", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				shCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
				defer cancel()
				return srv.Shutdown(shCtx)
			},
		})
	}),
)
