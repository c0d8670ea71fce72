package pool

import (
	"time"

	"github.com/pushgate/pushgate/internal/domain/model"
)

// connection is one streaming session. It is owned exclusively by the pool;
// no reference to it or to its queue ever leaves the package, which is what
// makes the pool's single-mutex serialization sufficient.
type connection struct {
	id       string
	userID   string
	tenantID string

	channels map[string]struct{}
	metadata map[string]string

	transport Transport

	createdAt      time.Time
	lastActivityAt time.Time

	messagesSent uint64
	bytesWritten uint64

	// pending holds messages accepted while the transport is saturated,
	// bounded by the pool's queue limit via the drop policy.
	pending  []*model.Message
	writable bool
}

func (c *connection) subscribed(channel string) bool {
	_, ok := c.channels[channel]
	return ok
}

func (c *connection) idleSince(now time.Time) time.Duration {
	return now.Sub(c.lastActivityAt)
}
