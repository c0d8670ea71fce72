package amqp

import (
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	infrapubsub "github.com/pushgate/pushgate/infra/pubsub"
	"github.com/pushgate/pushgate/internal/adapter/pubsub"
	"github.com/pushgate/pushgate/internal/service"
)

const (
	// ------------------- TOPICS (SOURCES) ----------------------
	TopicChannelPublish = "pushgate.channel.publish.v1"
	TopicUserNotify     = "pushgate.user.notify.v1"
	TopicTenantAnnounce = "pushgate.tenant.announce.v1"

	// ------------------- POISON ------- -------------------------
	PoisonTopic = "pushgate.incoming.poison.v1"
)

type MessageHandler struct {
	publisher  service.Publisher
	logger     *slog.Logger
	dispatcher pubsub.EventDispatcher
}

func NewMessageHandler(publisher service.Publisher, logger *slog.Logger, dispatcher pubsub.EventDispatcher) *MessageHandler {
	return &MessageHandler{publisher, logger, dispatcher}
}

// RegisterHandlers mounts every bus listener on the router, one consumer
// queue per handler per node so each gateway instance sees each event.
func (h *MessageHandler) RegisterHandlers(router *message.Router, provider *infrapubsub.Provider) error {
	poison, err := middleware.PoisonQueue(h.dispatcher.Publisher(), PoisonTopic)
	if err != nil {
		return err
	}

	configs := []struct {
		name    string
		topic   string
		handler message.NoPublishHandlerFunc
	}{
		{"on_channel_publish", TopicChannelPublish, Bind(h, h.OnChannelPublishV1)},
		{"on_user_notify", TopicUserNotify, Bind(h, h.OnUserNotifyV1)},
		{"on_tenant_announce", TopicTenantAnnounce, Bind(h, h.OnTenantAnnounceV1)},
	}

	for _, c := range configs {
		sub, err := provider.BuildSubscriber(c.name)
		if err != nil {
			return err
		}

		router.AddConsumerHandler(c.name, c.topic, sub, c.handler).AddMiddleware(
			TraceIDMiddleware,
			LoggingMiddleware(h.logger),
			NewRetryMiddleware().Middleware,
			poison,
			middleware.NewThrottle(100, time.Second).Middleware,
			middleware.Timeout(time.Second*30),
		)
	}

	h.logger.Info("amqp pipeline ready", "handlers", len(configs))
	return nil
}
