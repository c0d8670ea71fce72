/*
Package pool implements the real-time connection pool: it owns every
streaming session, organizes them into tenant-scoped publish/subscribe
channels, and delivers server-originated messages under admission limits,
bounded per-connection queues, and transport backpressure.

All pool state is mutated under a single mutex, so every public operation is
serializable: between a mutation's start and its completion no other
operation observes a half-updated index. Per-connection failures never cross
connections; a broken transport is converted into a removal plus an
observation and the pool keeps running.
*/
package pool

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pushgate/pushgate/internal/domain/model"
	"github.com/pushgate/pushgate/internal/domain/wire"
)

type channelKey struct {
	tenantID string
	channel  string
}

// Pool owns all connections and their derived indexes. Construct with New,
// stop with Shutdown; multiple independent pools can coexist in one process.
type Pool struct {
	opts options
	log  *slog.Logger

	mu     sync.Mutex
	closed bool

	conns     map[string]*connection
	byUser    map[string]map[string]struct{}
	byTenant  map[string]map[string]struct{}
	byChannel map[channelKey]map[string]struct{}

	observers []Observer
	// poolFullSeen coalesces repeated pool_full observations per tenant;
	// the rejection itself is never coalesced.
	poolFullSeen *expirable.LRU[string, struct{}]

	totalSent    uint64
	totalBytes   uint64
	totalDropped uint64
	latency      latencyWindow

	startedAt time.Time
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New builds a pool and starts its keepalive and sweep timers. The timers
// live exactly as long as the pool: Shutdown joins them.
func New(opts ...Option) *Pool {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pool{
		opts:      o,
		log:       o.logger,
		conns:     make(map[string]*connection),
		byUser:    make(map[string]map[string]struct{}),
		byTenant:  make(map[string]map[string]struct{}),
		byChannel: make(map[channelKey]map[string]struct{}),
		observers: o.observers,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	if o.poolFullCooldown > 0 {
		p.poolFullSeen = expirable.NewLRU[string, struct{}](1024, nil, o.poolFullCooldown)
	}

	p.wg.Add(2)
	go p.keepaliveLoop()
	go p.sweepLoop()

	return p
}

// AddConnection admits a streaming session. Limits are checked in order:
// total, per-tenant, per-user; the first violated limit rejects the session
// and the caller is expected to surface that synchronously (503/429
// upstream). On success the new connection receives a high-priority
// "connected" message before AddConnection returns.
//
// The caller keeps responsibility for forwarding transport close/error
// signals into RemoveConnection; the pool only discovers dead transports on
// write failures and the activity sweep.
func (p *Pool) AddConnection(t Transport, userID, tenantID string, channels []string, metadata map[string]string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return "", false
	}
	if len(p.conns) >= p.opts.maxTotalConnections {
		p.rejectLocked(tenantID)
		return "", false
	}
	if len(p.byTenant[tenantID]) >= p.opts.maxConnectionsPerTenant {
		p.rejectLocked(tenantID)
		return "", false
	}
	// Per-user cap: no tenant-wide signal, this is a user-scoped limit.
	if len(p.byUser[userID]) >= p.opts.maxConnectionsPerUser {
		return "", false
	}

	now := time.Now()
	c := &connection{
		id:             uuid.NewString(),
		userID:         userID,
		tenantID:       tenantID,
		channels:       make(map[string]struct{}, len(channels)),
		metadata:       metadata,
		transport:      t,
		createdAt:      now,
		lastActivityAt: now,
		writable:       true,
	}

	p.conns[c.id] = c
	p.indexAdd(p.byUser, userID, c.id)
	p.indexAdd(p.byTenant, tenantID, c.id)
	for _, ch := range channels {
		if _, ok := c.channels[ch]; ok {
			continue
		}
		c.channels[ch] = struct{}{}
		p.channelAdd(channelKey{tenantID, ch}, c.id)
	}

	id := c.id
	t.OnDrainable(func() { p.Drain(id) })

	welcome := model.NewMessage("connected", &model.ConnectedPayload{
		Ok:            true,
		ConnectionID:  c.id,
		ServerVersion: model.ServerVersion,
	}, model.PriorityHigh)
	p.sendLocked(c, welcome)

	// sendLocked removes the connection on a hard write error; only report
	// an admission if it survived the handshake.
	if _, ok := p.conns[id]; !ok {
		return "", false
	}

	p.emit(model.Observation{
		Kind:         model.ObsConnectionAdded,
		ConnectionID: c.id,
		UserID:       userID,
		TenantID:     tenantID,
		At:           now,
	})
	return c.id, true
}

// Subscribe adds the connection to a channel. Idempotent; unknown
// connection ids are ignored.
func (p *Pool) Subscribe(connID, channel string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.conns[connID]
	if !ok || c.subscribed(channel) {
		return
	}
	c.channels[channel] = struct{}{}
	p.channelAdd(channelKey{c.tenantID, channel}, c.id)
}

// Unsubscribe removes the connection from a channel. Idempotent.
func (p *Pool) Unsubscribe(connID, channel string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.conns[connID]
	if !ok || !c.subscribed(channel) {
		return
	}
	delete(c.channels, channel)
	p.channelRemove(channelKey{c.tenantID, channel}, c.id)
}

// RemoveConnection tears a session down: full index unwind, queue discarded,
// best-effort transport close. No-op for unknown ids, so double removal is
// safe and emits exactly one connection_removed observation.
func (p *Pool) RemoveConnection(connID string, reason model.CloseReason) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.conns[connID]
	if !ok {
		return
	}
	p.removeLocked(c, reason)
}

// Drain is the continuation the pool registers on every transport: the
// transport reports it can accept data again and the pool flushes the
// pending queue in order.
func (p *Pool) Drain(connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.conns[connID]
	if !ok {
		return
	}
	p.flushLocked(c)
}

// Shutdown stops both timers and removes every connection with reason
// shutdown, leaving all indexes empty. Idempotent and safe to call from a
// concurrent termination signal.
func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		close(p.done)
		p.wg.Wait()

		p.mu.Lock()
		defer p.mu.Unlock()
		for _, c := range p.conns {
			p.removeLocked(c, model.CloseShutdown)
		}
	})
}

// ApplyTunables re-applies options to a live pool. Admission caps, the queue
// bound, the backpressure threshold, and the drop retention ratio take effect
// on the next operation; timer intervals are fixed at construction and a
// changed value here is inert until restart.
func (p *Pool) ApplyTunables(opts ...Option) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, opt := range opts {
		opt(&p.opts)
	}
}

// removeLocked fully unwinds one connection. Partial cleanup is a bug: the
// connection leaves the primary map and every index entry atomically under
// the pool mutex.
func (p *Pool) removeLocked(c *connection, reason model.CloseReason) {
	for ch := range c.channels {
		p.channelRemove(channelKey{c.tenantID, ch}, c.id)
	}
	p.indexRemove(p.byUser, c.userID, c.id)
	p.indexRemove(p.byTenant, c.tenantID, c.id)
	delete(p.conns, c.id)

	c.pending = nil

	// Best-effort farewell on server-initiated closes; a peer that already
	// went away or a broken transport gets nothing.
	if reason != model.CloseClientClosed && reason != model.CloseWriteError && c.writable {
		bye := model.NewMessage("disconnected", &model.DisconnectedPayload{Reason: string(reason)}, model.PriorityHigh)
		if frame, err := wire.EncodeMessage(bye); err == nil {
			_, _ = c.transport.Write(frame)
		}
	}
	// The close attempt is best-effort; the connection is gone regardless.
	_ = c.transport.Close()

	p.emit(model.Observation{
		Kind:         model.ObsConnectionRemoved,
		ConnectionID: c.id,
		UserID:       c.userID,
		TenantID:     c.tenantID,
		Reason:       string(reason),
		At:           time.Now(),
	})
}

func (p *Pool) rejectLocked(tenantID string) {
	if p.poolFullSeen != nil {
		if _, seen := p.poolFullSeen.Get(tenantID); seen {
			return
		}
		p.poolFullSeen.Add(tenantID, struct{}{})
	}
	p.emit(model.Observation{
		Kind:     model.ObsPoolFull,
		TenantID: tenantID,
		At:       time.Now(),
	})
}

func (p *Pool) emit(obs model.Observation) {
	for _, o := range p.observers {
		o.Observe(obs)
	}
}

// ---- index maintenance. Empty entries never persist: the last member's
// removal deletes the entry, bounding memory for churny tenants/channels.

func (p *Pool) indexAdd(idx map[string]map[string]struct{}, key, connID string) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[connID] = struct{}{}
}

func (p *Pool) indexRemove(idx map[string]map[string]struct{}, key, connID string) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(idx, key)
	}
}

func (p *Pool) channelAdd(key channelKey, connID string) {
	set, ok := p.byChannel[key]
	if !ok {
		set = make(map[string]struct{})
		p.byChannel[key] = set
	}
	set[connID] = struct{}{}
}

func (p *Pool) channelRemove(key channelKey, connID string) {
	set, ok := p.byChannel[key]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(p.byChannel, key)
	}
}
