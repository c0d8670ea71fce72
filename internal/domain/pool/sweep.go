package pool

import (
	"time"

	"github.com/pushgate/pushgate/internal/domain/model"
)

// keepaliveLoop writes a low-priority ping to every writable connection on
// each tick. The ping doubles as a liveness probe: a transport that died
// silently fails the write and is removed through the normal write-error
// path.
func (p *Pool) keepaliveLoop() {
	defer p.wg.Done()

	t := time.NewTicker(p.opts.pingInterval)
	defer t.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-t.C:
			p.pingAll()
		}
	}
}

func (p *Pool) pingAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	// One shared ping per tick; the wire frame encodes once.
	ping := model.NewMessage("ping", &model.PingPayload{At: time.Now().UnixMilli()}, model.PriorityLow)

	ids := make([]string, 0, len(p.conns))
	for id, c := range p.conns {
		if c.writable {
			ids = append(ids, id)
		}
	}
	// A failed ping removes its connection mid-loop, hence the id snapshot.
	for _, id := range ids {
		if c, ok := p.conns[id]; ok {
			p.writeLocked(c, ping)
		}
	}
}

// sweepLoop reclaims connections whose transport vanished without a close
// signal (abrupt network loss, leaked sessions). This bounds worst-case
// memory growth.
func (p *Pool) sweepLoop() {
	defer p.wg.Done()

	t := time.NewTicker(p.opts.cleanupInterval)
	defer t.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-t.C:
			p.sweepStale()
		}
	}
}

func (p *Pool) sweepStale() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	stale := make([]*connection, 0)
	for _, c := range p.conns {
		if c.idleSince(now) > p.opts.connectionTimeout {
			stale = append(stale, c)
		}
	}
	for _, c := range stale {
		p.removeLocked(c, model.CloseTimeout)
	}
}
