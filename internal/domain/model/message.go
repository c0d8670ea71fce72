package model

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single immutable unit of outbound data. One Message value is
// shared by reference across every recipient of a broadcast; the rendered wire
// frame is cached on it so serialization happens once per message, not once
// per subscriber.
type Message struct {
	ID         string
	Event      string
	Data       any
	Priority   Priority
	EnqueuedAt time.Time

	// ExpiresAt is optional; the zero value means the message never expires.
	ExpiresAt time.Time

	// cached holds the encoded wire frame. Access is serialized by the pool
	// mutex.
	cached []byte
}

func NewMessage(event string, data any, priority Priority) *Message {
	return &Message{
		ID:         newMessageID(),
		Event:      event,
		Data:       data,
		Priority:   priority,
		EnqueuedAt: time.Now(),
	}
}

// NewExpiringMessage builds a message that must never be delivered after ttl.
func NewExpiringMessage(event string, data any, priority Priority, ttl time.Duration) *Message {
	m := NewMessage(event, data, priority)
	m.ExpiresAt = m.EnqueuedAt.Add(ttl)
	return m
}

// Expired reports whether the message's delivery window has passed.
func (m *Message) Expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && now.After(m.ExpiresAt)
}

func (m *Message) GetCached() []byte  { return m.cached }
func (m *Message) SetCached(b []byte) { m.cached = b }

// newMessageID prefers UUIDv7 so ids sort by creation time, which is enough
// to break ordering ties between messages of equal priority.
func newMessageID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
