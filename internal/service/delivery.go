package service

import (
	"github.com/pushgate/pushgate/internal/domain/model"
	"github.com/pushgate/pushgate/internal/domain/pool"
)

// Identity is the pre-authenticated owner of a streaming session. Auth is
// assumed to have happened upstream; the gateway only scopes by it.
type Identity struct {
	UserID   string
	TenantID string
}

// Deliverer is the primary interface for transport handlers (SSE, websocket).
type Deliverer interface {
	// Subscribe admits a session and returns its connection id. ok=false is
	// an admission rejection and must be surfaced synchronously.
	Subscribe(t pool.Transport, ident Identity, channels []string, metadata map[string]string) (string, bool)

	// Unsubscribe forwards a transport close/error signal into the pool.
	Unsubscribe(connID string, reason model.CloseReason)

	// AddChannel / RemoveChannel mutate a live session's channel set.
	AddChannel(connID, channel string)
	RemoveChannel(connID, channel string)
}

type DeliveryService struct {
	pool *pool.Pool
}

func NewDeliveryService(p *pool.Pool) *DeliveryService {
	return &DeliveryService{pool: p}
}

func (s *DeliveryService) Subscribe(t pool.Transport, ident Identity, channels []string, metadata map[string]string) (string, bool) {
	return s.pool.AddConnection(t, ident.UserID, ident.TenantID, channels, metadata)
}

func (s *DeliveryService) Unsubscribe(connID string, reason model.CloseReason) {
	s.pool.RemoveConnection(connID, reason)
}

func (s *DeliveryService) AddChannel(connID, channel string) {
	s.pool.Subscribe(connID, channel)
}

func (s *DeliveryService) RemoveChannel(connID, channel string) {
	s.pool.Unsubscribe(connID, channel)
}
