package pool

import (
	"log/slog"

	"github.com/pushgate/pushgate/internal/domain/model"
)

// Observer receives typed events from the pool's observation stream.
// Observe is called from the pool's dispatch path: implementations must be
// fast and must not call back into the pool.
type Observer interface {
	Observe(obs model.Observation)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(model.Observation)

func (f ObserverFunc) Observe(obs model.Observation) { f(obs) }

// NewLogObserver returns an Observer that mirrors the observation stream
// into structured logs.
func NewLogObserver(l *slog.Logger) Observer {
	return ObserverFunc(func(obs model.Observation) {
		switch obs.Kind {
		case model.ObsConnectionAdded:
			l.Info("connection added",
				"conn_id", obs.ConnectionID,
				"user_id", obs.UserID,
				"tenant_id", obs.TenantID,
			)
		case model.ObsConnectionRemoved:
			l.Info("connection removed",
				"conn_id", obs.ConnectionID,
				"user_id", obs.UserID,
				"tenant_id", obs.TenantID,
				"reason", obs.Reason,
			)
		case model.ObsMessageDropped:
			l.Warn("messages dropped",
				"conn_id", obs.ConnectionID,
				"reason", obs.Reason,
				"count", obs.Count,
			)
		case model.ObsPoolFull:
			l.Warn("pool full", "tenant_id", obs.TenantID)
		case model.ObsBackpressure:
			l.Warn("backpressure", "conn_id", obs.ConnectionID)
		case model.ObsMessageSent:
			l.Debug("message sent", "conn_id", obs.ConnectionID, "message_id", obs.MessageID)
		}
	})
}
