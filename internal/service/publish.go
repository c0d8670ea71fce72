package service

import (
	"time"

	"github.com/pushgate/pushgate/internal/domain/model"
	"github.com/pushgate/pushgate/internal/domain/pool"
)

// Publisher is the outbound interface for business collaborators pushing
// events toward connected clients. The gateway never interprets payloads.
type Publisher interface {
	SendToConnection(connID, event string, data any, priority model.Priority) bool
	Broadcast(tenantID, channel, event string, data any, priority model.Priority) int
	BroadcastTTL(tenantID, channel, event string, data any, priority model.Priority, ttl time.Duration) int
	BroadcastToUser(userID, event string, data any, priority model.Priority) int
	BroadcastToTenant(tenantID, event string, data any, priority model.Priority) int
	Stats() model.PoolStats
}

type PublishService struct {
	pool *pool.Pool
}

func NewPublishService(p *pool.Pool) *PublishService {
	return &PublishService{pool: p}
}

func (s *PublishService) SendToConnection(connID, event string, data any, priority model.Priority) bool {
	return s.pool.SendToConnection(connID, event, data, priority)
}

func (s *PublishService) Broadcast(tenantID, channel, event string, data any, priority model.Priority) int {
	return s.pool.Broadcast(tenantID, channel, event, data, priority)
}

func (s *PublishService) BroadcastTTL(tenantID, channel, event string, data any, priority model.Priority, ttl time.Duration) int {
	return s.pool.BroadcastTTL(tenantID, channel, event, data, priority, ttl)
}

func (s *PublishService) BroadcastToUser(userID, event string, data any, priority model.Priority) int {
	return s.pool.BroadcastToUser(userID, event, data, priority)
}

func (s *PublishService) BroadcastToTenant(tenantID, event string, data any, priority model.Priority) int {
	return s.pool.BroadcastToTenant(tenantID, event, data, priority)
}

func (s *PublishService) Stats() model.PoolStats {
	return s.pool.GetStats()
}
