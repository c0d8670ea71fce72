package pool

import (
	"time"

	"github.com/pushgate/pushgate/internal/domain/model"
)

const latencySampleWindow = 1000

// latencyWindow keeps a FIFO ring of the most recent write latencies and a
// running sum so the average is O(1) to read.
type latencyWindow struct {
	samples []time.Duration
	next    int
	sum     time.Duration
}

func (w *latencyWindow) add(d time.Duration) {
	if len(w.samples) < latencySampleWindow {
		w.samples = append(w.samples, d)
		w.sum += d
		return
	}
	w.sum -= w.samples[w.next]
	w.samples[w.next] = d
	w.sum += d
	w.next = (w.next + 1) % latencySampleWindow
}

func (w *latencyWindow) avg() time.Duration {
	if len(w.samples) == 0 {
		return 0
	}
	return w.sum / time.Duration(len(w.samples))
}

// GetStats returns a snapshot of the pool. It is a derived view: admission
// and drop decisions never read it, they use the live indexes directly.
func (p *Pool) GetStats() model.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	tenants := make(map[string]int, len(p.byTenant))
	for tenant, set := range p.byTenant {
		tenants[tenant] = len(set)
	}
	users := make(map[string]int, len(p.byUser))
	for user, set := range p.byUser {
		users[user] = len(set)
	}

	active := 0
	for _, c := range p.conns {
		if c.writable {
			active++
		}
	}

	return model.PoolStats{
		TotalConnections:  len(p.conns),
		ActiveConnections: active,
		TenantConnections: tenants,
		UserConnections:   users,
		MessagesSent:      p.totalSent,
		BytesWritten:      p.totalBytes,
		MessagesDropped:   p.totalDropped,
		AvgWriteLatency:   p.latency.avg(),
		Uptime:            time.Since(p.startedAt),
	}
}
