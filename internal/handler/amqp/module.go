package amqp

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	infrapubsub "github.com/pushgate/pushgate/infra/pubsub"
	"go.uber.org/fx"
)

// Module wires the inbound side of the bus. Assembled only when AMQP is
// enabled.
var Module = fx.Module("amqp-handler",
	fx.Provide(
		NewMessageHandler,
		func(logger watermill.LoggerAdapter) (*message.Router, error) {
			return message.NewRouter(message.RouterConfig{}, logger)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, router *message.Router, h *MessageHandler, provider *infrapubsub.Provider) error {
		if err := h.RegisterHandlers(router, provider); err != nil {
			return err
		}

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					// Run blocks for the router's lifetime; Close stops it.
					if err := router.Run(context.Background()); err != nil {
						h.logger.Error("amqp router stopped", "err", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return router.Close()
			},
		})
		return nil
	}),
)
