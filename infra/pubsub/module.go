package pubsub

import "go.uber.org/fx"

var Module = fx.Module("infra-pubsub",
	fx.Provide(NewProvider),
)
