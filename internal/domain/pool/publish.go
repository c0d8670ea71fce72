package pool

import (
	"math"
	"slices"
	"time"

	"github.com/pushgate/pushgate/internal/domain/model"
	"github.com/pushgate/pushgate/internal/domain/wire"
)

// SendToConnection delivers one event to a single connection. The returned
// bool means "delivered or queued", not acknowledged: a message parked in
// the pending queue counts as accepted.
func (p *Pool) SendToConnection(connID, event string, data any, priority model.Priority) bool {
	return p.SendMessage(connID, model.NewMessage(event, data, priority))
}

// SendMessage is SendToConnection for a pre-built message, used by the
// broadcast paths to share one message across recipients.
func (p *Pool) SendMessage(connID string, msg *model.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.conns[connID]
	if !ok {
		return false
	}
	return p.sendLocked(c, msg)
}

// Broadcast publishes one event to every subscriber of a tenant's channel
// and returns how many accepted it. An absent channel returns 0 without a
// message ever being constructed: broadcast cost is O(subscribers), never
// O(connections).
func (p *Pool) Broadcast(tenantID, channel, event string, data any, priority model.Priority) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	subs, ok := p.byChannel[channelKey{tenantID, channel}]
	if !ok {
		return 0
	}
	return p.fanoutLocked(subs, model.NewMessage(event, data, priority))
}

// BroadcastTTL is Broadcast for a message that must never be delivered
// after ttl, e.g. presence ticks that are worthless once stale.
func (p *Pool) BroadcastTTL(tenantID, channel, event string, data any, priority model.Priority, ttl time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	subs, ok := p.byChannel[channelKey{tenantID, channel}]
	if !ok {
		return 0
	}
	return p.fanoutLocked(subs, model.NewExpiringMessage(event, data, priority, ttl))
}

// BroadcastToUser publishes to every connection of one user across tenants.
func (p *Pool) BroadcastToUser(userID, event string, data any, priority model.Priority) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	subs, ok := p.byUser[userID]
	if !ok {
		return 0
	}
	return p.fanoutLocked(subs, model.NewMessage(event, data, priority))
}

// BroadcastToTenant publishes to every connection of one tenant.
func (p *Pool) BroadcastToTenant(tenantID, event string, data any, priority model.Priority) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	subs, ok := p.byTenant[tenantID]
	if !ok {
		return 0
	}
	return p.fanoutLocked(subs, model.NewMessage(event, data, priority))
}

// fanoutLocked delivers one shared message to a subscriber set. sendLocked
// may remove a broken connection mid-loop, so iteration goes over a
// snapshot of ids, not the live set.
func (p *Pool) fanoutLocked(subs map[string]struct{}, msg *model.Message) int {
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}

	sent := 0
	for _, id := range ids {
		c, ok := p.conns[id]
		if !ok {
			continue
		}
		if p.sendLocked(c, msg) {
			sent++
		}
	}
	return sent
}

func (p *Pool) sendLocked(c *connection, msg *model.Message) bool {
	now := time.Now()
	if msg.Expired(now) {
		p.dropLocked(c, model.DropExpired, 1)
		return false
	}

	if !c.writable {
		return p.enqueueLocked(c, msg)
	}
	return p.writeLocked(c, msg)
}

// writeLocked renders and writes one message on a writable transport. A
// backpressure signal still counts the message as sent (the transport
// absorbed it); only subsequent messages queue. A hard write error removes
// the connection, fatal to this session only.
func (p *Pool) writeLocked(c *connection, msg *model.Message) bool {
	frame, err := wire.EncodeMessage(msg)
	if err != nil {
		p.log.Error("encode message", "message_id", msg.ID, "err", err)
		return false
	}

	start := time.Now()
	ok, werr := c.transport.Write(frame)
	p.latency.add(time.Since(start))

	if werr != nil {
		p.log.Warn("write failed", "conn_id", c.id, "err", werr)
		p.removeLocked(c, model.CloseWriteError)
		return false
	}

	now := time.Now()
	c.messagesSent++
	c.bytesWritten += uint64(len(frame))
	c.lastActivityAt = now
	p.totalSent++
	p.totalBytes += uint64(len(frame))

	p.emit(model.Observation{
		Kind:         model.ObsMessageSent,
		ConnectionID: c.id,
		UserID:       c.userID,
		TenantID:     c.tenantID,
		MessageID:    msg.ID,
		At:           now,
	})

	if !ok {
		c.writable = false
		p.emit(model.Observation{
			Kind:         model.ObsBackpressure,
			ConnectionID: c.id,
			TenantID:     c.tenantID,
			At:           now,
		})
	}
	return true
}

// enqueueLocked parks a message on a saturated connection. When the queue
// is at capacity the drop policy runs over queue+message: stable sort by
// priority, truncate to the retention share, so control-plane messages
// survive bursts of low-priority chatter instead of plain FIFO eviction.
func (p *Pool) enqueueLocked(c *connection, msg *model.Message) bool {
	if len(c.pending) < p.opts.maxMessageQueueSize {
		c.pending = append(c.pending, msg)
		if t := p.opts.backpressureThreshold; t > 0 && len(c.pending) == t {
			p.log.Warn("pending queue above backpressure threshold",
				"conn_id", c.id, "depth", len(c.pending))
		}
		return true
	}

	keep := int(math.Floor(float64(p.opts.maxMessageQueueSize) * p.opts.dropRetentionRatio))
	c.pending = append(c.pending, msg)
	slices.SortStableFunc(c.pending, func(a, b *model.Message) int {
		return int(b.Priority - a.Priority) // high first, enqueue order within a class
	})
	if keep > len(c.pending) {
		keep = len(c.pending)
	}

	survived := false
	for _, m := range c.pending[:keep] {
		if m == msg {
			survived = true
			break
		}
	}
	dropped := len(c.pending) - keep
	c.pending = c.pending[:keep]

	p.dropLocked(c, model.DropQueueFull, dropped)
	return survived
}

// flushLocked pops and writes pending messages in order once the transport
// drains. A renewed backpressure signal leaves the current message at the
// queue front so ordering holds across drain cycles; an expired message is
// discarded instead of written.
func (p *Pool) flushLocked(c *connection) {
	c.writable = true
	for len(c.pending) > 0 {
		msg := c.pending[0]

		if msg.Expired(time.Now()) {
			c.pending = c.pending[1:]
			p.dropLocked(c, model.DropExpired, 1)
			continue
		}

		frame, err := wire.EncodeMessage(msg)
		if err != nil {
			c.pending = c.pending[1:]
			p.log.Error("encode message", "message_id", msg.ID, "err", err)
			continue
		}

		start := time.Now()
		ok, werr := c.transport.Write(frame)
		p.latency.add(time.Since(start))

		if werr != nil {
			p.log.Warn("write failed on drain", "conn_id", c.id, "err", werr)
			p.removeLocked(c, model.CloseWriteError)
			return
		}
		if !ok {
			c.writable = false
			p.emit(model.Observation{
				Kind:         model.ObsBackpressure,
				ConnectionID: c.id,
				TenantID:     c.tenantID,
				At:           time.Now(),
			})
			return
		}

		now := time.Now()
		c.pending = c.pending[1:]
		c.messagesSent++
		c.bytesWritten += uint64(len(frame))
		c.lastActivityAt = now
		p.totalSent++
		p.totalBytes += uint64(len(frame))

		p.emit(model.Observation{
			Kind:         model.ObsMessageSent,
			ConnectionID: c.id,
			UserID:       c.userID,
			TenantID:     c.tenantID,
			MessageID:    msg.ID,
			At:           now,
		})
	}
}

func (p *Pool) dropLocked(c *connection, reason model.DropReason, count int) {
	if count <= 0 {
		return
	}
	p.totalDropped += uint64(count)
	p.emit(model.Observation{
		Kind:         model.ObsMessageDropped,
		ConnectionID: c.id,
		TenantID:     c.tenantID,
		Reason:       string(reason),
		Count:        count,
		At:           time.Now(),
	})
}
