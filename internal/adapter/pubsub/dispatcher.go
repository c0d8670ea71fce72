package pubsub

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pushgate/pushgate/internal/domain/model"
	"github.com/sony/gobreaker"
)

// EventDispatcher is the high-level contract for events leaving the gateway
// toward the message bus. Callers stay agnostic of the transport.
type EventDispatcher interface {
	Publish(ctx context.Context, ev *model.OutboundEvent) error
	Publisher() message.Publisher
}

type eventDispatcher struct {
	publisher message.Publisher
	// breaker keeps bus trouble from stalling connection teardown: once
	// publishes fail consistently the dispatcher sheds them fast instead of
	// waiting out broker timeouts.
	breaker *gobreaker.CircuitBreaker
}

func NewEventDispatcher(pub message.Publisher) EventDispatcher {
	return &eventDispatcher{
		publisher: pub,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "amqp-outbound",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (d *eventDispatcher) Publish(ctx context.Context, ev *model.OutboundEvent) error {
	if ev == nil {
		return fmt.Errorf("dispatcher: cannot publish nil event")
	}

	payload, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("dispatcher: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if _, err := d.breaker.Execute(func() (any, error) {
		return nil, d.publisher.Publish(ev.GetRoutingKey(), msg)
	}); err != nil {
		return fmt.Errorf("dispatcher: publish to %s: %w", ev.GetRoutingKey(), err)
	}
	return nil
}

func (d *eventDispatcher) Publisher() message.Publisher {
	return d.publisher
}
