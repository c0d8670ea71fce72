package pubsub

import (
	"context"
	"log/slog"
	"time"

	"github.com/pushgate/pushgate/internal/domain/model"
	"github.com/pushgate/pushgate/internal/domain/pool"
)

const observerBuffer = 256

// LifecycleObserver republishes connection lifecycle observations to the
// bus. Observe is called from the pool's dispatch path, so it only hands
// the observation to a buffered channel; a worker goroutine does the actual
// publishing. Overflow drops the notification rather than blocking the
// pool.
type LifecycleObserver struct {
	dispatcher EventDispatcher
	logger     *slog.Logger
	events     chan model.Observation
	done       chan struct{}
}

var _ pool.Observer = (*LifecycleObserver)(nil)

func NewLifecycleObserver(d EventDispatcher, logger *slog.Logger) *LifecycleObserver {
	o := &LifecycleObserver{
		dispatcher: d,
		logger:     logger,
		events:     make(chan model.Observation, observerBuffer),
		done:       make(chan struct{}),
	}
	go o.loop()
	return o
}

func (o *LifecycleObserver) Observe(obs model.Observation) {
	switch obs.Kind {
	case model.ObsConnectionAdded, model.ObsConnectionRemoved, model.ObsPoolFull:
	default:
		return
	}
	select {
	case o.events <- obs:
	default:
		// Bus notifications are best-effort; the pool must never wait.
	}
}

func (o *LifecycleObserver) loop() {
	for {
		select {
		case <-o.done:
			return
		case obs := <-o.events:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			ev := model.NewOutboundEvent(string(obs.Kind), obs)
			if err := o.dispatcher.Publish(ctx, ev); err != nil {
				o.logger.Warn("lifecycle event publish failed",
					"kind", obs.Kind, "conn_id", obs.ConnectionID, "err", err)
			}
			cancel()
		}
	}
}

func (o *LifecycleObserver) Stop() {
	close(o.done)
}
