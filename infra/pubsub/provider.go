// Package pubsub constructs the AMQP transports the gateway uses to consume
// publish requests from, and report lifecycle events to, the message bus.
package pubsub

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pushgate/pushgate/config"
)

type Provider struct {
	uri         string
	queueSuffix string
	logger      watermill.LoggerAdapter
}

func NewProvider(cfg *config.Config, logger watermill.LoggerAdapter) *Provider {
	return &Provider{
		uri:         cfg.AMQP.URI,
		queueSuffix: cfg.AMQP.QueueSuffix,
		logger:      logger,
	}
}

func (p *Provider) BuildPublisher() (message.Publisher, error) {
	cfg := amqp.NewDurablePubSubConfig(p.uri, nil)
	pub, err := amqp.NewPublisher(cfg, p.logger)
	if err != nil {
		return nil, fmt.Errorf("pubsub: build publisher: %w", err)
	}
	return pub, nil
}

// BuildSubscriber creates a consumer with a queue unique to this node and
// handler, so every node sees every event (delivery is per-node fan-out,
// not work sharing).
func (p *Provider) BuildSubscriber(handlerName string) (message.Subscriber, error) {
	cfg := amqp.NewDurablePubSubConfig(
		p.uri,
		amqp.GenerateQueueNameTopicNameWithSuffix("."+p.queueSuffix+"."+handlerName),
	)
	sub, err := amqp.NewSubscriber(cfg, p.logger)
	if err != nil {
		return nil, fmt.Errorf("pubsub: build subscriber %s: %w", handlerName, err)
	}
	return sub, nil
}
