package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboundEvent is a connection lifecycle notification republished to the
// message bus so business collaborators can react to sessions coming and
// going (presence, audit, billing of concurrent seats).
type OutboundEvent struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Kind         string `json:"kind"`
	TenantID     string `json:"tenant_id,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	ConnectionID string `json:"connection_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

func NewOutboundEvent(kind string, obs Observation) *OutboundEvent {
	return &OutboundEvent{
		ID:           uuid.NewString(),
		Source:       "pushgate",
		Kind:         kind,
		TenantID:     obs.TenantID,
		UserID:       obs.UserID,
		ConnectionID: obs.ConnectionID,
		Reason:       obs.Reason,
		Timestamp:    time.Now().UnixMilli(),
	}
}

func (e *OutboundEvent) GetRoutingKey() string { return "pushgate.connection." + e.Kind + ".v1" }

func (e *OutboundEvent) ToJSON() ([]byte, error) { return json.Marshal(e) }
