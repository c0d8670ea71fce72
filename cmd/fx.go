package cmd

import (
	"github.com/pushgate/pushgate/config"
	infrapubsub "github.com/pushgate/pushgate/infra/pubsub"
	httpserver "github.com/pushgate/pushgate/infra/server/http"
	adapterpubsub "github.com/pushgate/pushgate/internal/adapter/pubsub"
	"github.com/pushgate/pushgate/internal/domain/pool"
	amqphandler "github.com/pushgate/pushgate/internal/handler/amqp"
	ssehandler "github.com/pushgate/pushgate/internal/handler/sse"
	wshandler "github.com/pushgate/pushgate/internal/handler/ws"
	"github.com/pushgate/pushgate/internal/service"
	"go.uber.org/fx"
)

func NewApp(cfg *config.Config) *fx.App {
	opts := []fx.Option{
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
		),
		pool.Module,
		service.Module,
		ssehandler.Module,
		wshandler.Module,
		httpserver.Module,
	}

	// The bus is optional: a gateway can run purely on its HTTP surface.
	if cfg.AMQP.Enabled {
		opts = append(opts,
			infrapubsub.Module,
			adapterpubsub.Module,
			amqphandler.Module,
		)
	}

	return fx.New(opts...)
}
