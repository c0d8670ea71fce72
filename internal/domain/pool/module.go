package pool

import (
	"context"
	"log/slog"

	"github.com/pushgate/pushgate/config"
	"go.uber.org/fx"
)

var Module = fx.Module("pool",
	fx.Provide(
		fx.Annotate(
			func(cfg *config.Config, logger *slog.Logger, observers []Observer) *Pool {
				opts := []Option{
					WithMaxConnectionsPerUser(cfg.Pool.MaxConnectionsPerUser),
					WithMaxConnectionsPerTenant(cfg.Pool.MaxConnectionsPerTenant),
					WithMaxTotalConnections(cfg.Pool.MaxTotalConnections),
					WithConnectionTimeout(cfg.Pool.ConnectionTimeout),
					WithPingInterval(cfg.Pool.PingInterval),
					WithCleanupInterval(cfg.Pool.CleanupInterval),
					WithMaxMessageQueueSize(cfg.Pool.MaxMessageQueueSize),
					WithBackpressureThreshold(cfg.Pool.BackpressureThreshold),
					WithDropRetentionRatio(cfg.Pool.DropRetentionRatio),
					WithLogger(logger),
					WithObserver(NewLogObserver(logger)),
					WithObserver(observers...),
				}
				return New(opts...)
			},
			fx.ParamTags(``, ``, `group:"pool_observers"`),
		),
	),
	fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, p *Pool) {
		cfg.OnPoolReload(func(pc config.PoolConfig) {
			p.ApplyTunables(
				WithMaxConnectionsPerUser(pc.MaxConnectionsPerUser),
				WithMaxConnectionsPerTenant(pc.MaxConnectionsPerTenant),
				WithMaxTotalConnections(pc.MaxTotalConnections),
				WithMaxMessageQueueSize(pc.MaxMessageQueueSize),
				WithBackpressureThreshold(pc.BackpressureThreshold),
				WithDropRetentionRatio(pc.DropRetentionRatio),
			)
		})

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				p.Shutdown()
				return nil
			},
		})
	}),
)
