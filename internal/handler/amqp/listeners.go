package amqp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pushgate/pushgate/internal/domain/model"
)

// ChannelPublishV1 asks the gateway to fan an event out to one tenant
// channel. Data is opaque; the gateway never interprets it.
type ChannelPublishV1 struct {
	TenantID string          `json:"tenant_id"`
	Channel  string          `json:"channel"`
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data"`
	Priority string          `json:"priority"`
	// TTLMs bounds delivery: past it the message is dropped, not delivered.
	TTLMs int64 `json:"ttl_ms"`
}

type UserNotifyV1 struct {
	UserID   string          `json:"user_id"`
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data"`
	Priority string          `json:"priority"`
}

type TenantAnnounceV1 struct {
	TenantID string          `json:"tenant_id"`
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data"`
	Priority string          `json:"priority"`
}

func (h *MessageHandler) OnChannelPublishV1(_ context.Context, raw *ChannelPublishV1) error {
	if raw.TenantID == "" || raw.Channel == "" || raw.Event == "" {
		// Terminal: routing fields are not going to appear on retry.
		h.logger.Warn("channel publish missing routing fields", "tenant_id", raw.TenantID)
		return nil
	}

	pri := model.ParsePriority(raw.Priority)
	var sent int
	if raw.TTLMs > 0 {
		sent = h.publisher.BroadcastTTL(raw.TenantID, raw.Channel, raw.Event, raw.Data, pri,
			time.Duration(raw.TTLMs)*time.Millisecond)
	} else {
		sent = h.publisher.Broadcast(raw.TenantID, raw.Channel, raw.Event, raw.Data, pri)
	}

	h.logger.Debug("channel publish fanned out",
		"tenant_id", raw.TenantID, "channel", raw.Channel, "sent", sent)
	return nil
}

func (h *MessageHandler) OnUserNotifyV1(_ context.Context, raw *UserNotifyV1) error {
	if raw.UserID == "" || raw.Event == "" {
		h.logger.Warn("user notify missing routing fields")
		return nil
	}
	h.publisher.BroadcastToUser(raw.UserID, raw.Event, raw.Data, model.ParsePriority(raw.Priority))
	return nil
}

func (h *MessageHandler) OnTenantAnnounceV1(_ context.Context, raw *TenantAnnounceV1) error {
	if raw.TenantID == "" || raw.Event == "" {
		h.logger.Warn("tenant announce missing routing fields")
		return nil
	}
	h.publisher.BroadcastToTenant(raw.TenantID, raw.Event, raw.Data, model.ParsePriority(raw.Priority))
	return nil
}
