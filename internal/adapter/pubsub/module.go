package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	infrapubsub "github.com/pushgate/pushgate/infra/pubsub"
	"github.com/pushgate/pushgate/internal/domain/pool"
	"go.uber.org/fx"
)

// Module wires the outbound side of the bus. It is only assembled when AMQP
// is enabled.
var Module = fx.Module("adapter-pubsub",
	fx.Provide(
		func(p *infrapubsub.Provider) (message.Publisher, error) {
			return p.BuildPublisher()
		},
		NewEventDispatcher,
		NewLifecycleObserver,
		fx.Annotate(
			func(o *LifecycleObserver) pool.Observer { return o },
			fx.ResultTags(`group:"pool_observers"`),
		),
	),
	fx.Invoke(func(lc fx.Lifecycle, o *LifecycleObserver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				o.Stop()
				return nil
			},
		})
	}),
)
