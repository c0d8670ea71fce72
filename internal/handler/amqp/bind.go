package amqp

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"
)

// BusHandler is the functional signature for one decoded bus event.
type BusHandler[T any] func(ctx context.Context, payload *T) error

// Bind bridges watermill to the typed handlers: panic recovery, JSON
// decoding, and ack/nack policy live here so the handlers stay pure.
func Bind[T any](h *MessageHandler, fn BusHandler[T]) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		// Keep the consumer alive no matter what a handler does.
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("panic recovered",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID)
			}
		}()

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			// Ack: a payload that cannot decode never will; retrying it
			// would only poison the queue.
			h.logger.Error("decode failed", "err", err, "msg_id", msg.UUID)
			return nil
		}

		// Nack on error: the retry middleware decides what happens next.
		return fn(msg.Context(), payload)
	}
}
