package pool

import (
	"errors"
	"testing"
	"time"

	"github.com/pushgate/pushgate/internal/domain/model"
)

// saturate flips the transport into backpressure and sends one message so the
// pool notices. The triggering message still counts as sent.
func saturate(t *testing.T, p *Pool, tr *fakeTransport, connID string) {
	t.Helper()
	tr.setWritable(false)
	if !p.SendToConnection(connID, "trigger", "x", model.PriorityNormal) {
		t.Fatal("triggering send rejected")
	}
}

func TestSendToUnknownConnection(t *testing.T) {
	p := newTestPool(t, nil)
	if p.SendToConnection("nope", "x", nil, model.PriorityNormal) {
		t.Fatal("send to an unknown connection reported success")
	}
}

func TestBackpressureQueuesSubsequentMessages(t *testing.T) {
	rec := &recorder{}
	p := newTestPool(t, rec)

	tr := newFakeTransport()
	id, _ := p.AddConnection(tr, "u1", "t1", nil, nil)

	saturate(t, p, tr, id)

	if got := rec.count(model.ObsBackpressure); got != 1 {
		t.Fatalf("backpressure observations = %d, want 1", got)
	}
	// Welcome plus the accepted-but-unflushed trigger.
	if got := p.GetStats().MessagesSent; got != 2 {
		t.Fatalf("MessagesSent = %d, want 2", got)
	}

	if !p.SendToConnection(id, "queued", "x", model.PriorityNormal) {
		t.Fatal("send on a saturated connection rejected below queue capacity")
	}
	if got := len(p.pendingSnapshot(id)); got != 1 {
		t.Fatalf("pending queue length = %d, want 1", got)
	}
	// Nothing new reached the transport.
	if got := tr.frameCount(); got != 1 {
		t.Fatalf("transport frames = %d, want only the welcome", got)
	}
}

func TestQueueNeverExceedsCapacity(t *testing.T) {
	p := newTestPool(t, nil, WithMaxMessageQueueSize(10))

	tr := newFakeTransport()
	id, _ := p.AddConnection(tr, "u1", "t1", nil, nil)
	saturate(t, p, tr, id)

	for i := 0; i < 35; i++ {
		p.SendToConnection(id, "spam", i, model.PriorityLow)
		if got := len(p.pendingSnapshot(id)); got > 10 {
			t.Fatalf("pending queue length = %d, exceeds capacity 10", got)
		}
	}
}

func TestDropPolicyKeepsHighPriority(t *testing.T) {
	rec := &recorder{}
	p := newTestPool(t, rec, WithMaxMessageQueueSize(10))

	tr := newFakeTransport()
	id, _ := p.AddConnection(tr, "u1", "t1", nil, nil)
	saturate(t, p, tr, id)

	for i := 0; i < 10; i++ {
		if !p.SendToConnection(id, "chatter", i, model.PriorityLow) {
			t.Fatalf("send %d rejected below queue capacity", i)
		}
	}

	// The queue is full; a high-priority arrival triggers the drop policy.
	if !p.SendToConnection(id, "urgent", "x", model.PriorityHigh) {
		t.Fatal("high-priority message did not survive the drop policy")
	}

	pending := p.pendingSnapshot(id)
	if len(pending) != 7 {
		t.Fatalf("retained queue length = %d, want 7 (floor of 10 * 0.7)", len(pending))
	}
	if pending[0].Event != "urgent" || pending[0].Priority != model.PriorityHigh {
		t.Fatalf("queue front is %q prio %v, want the high-priority message first",
			pending[0].Event, pending[0].Priority)
	}
	// The stable sort keeps enqueue order within the low-priority class.
	for i := 1; i < len(pending); i++ {
		if pending[i].Priority != model.PriorityLow {
			t.Fatalf("pending[%d] priority = %v, want low", i, pending[i].Priority)
		}
	}

	obs, found := rec.last(model.ObsMessageDropped)
	if !found {
		t.Fatal("no message_dropped observation from the drop policy")
	}
	if obs.Reason != string(model.DropQueueFull) {
		t.Fatalf("drop reason = %q, want queue_full", obs.Reason)
	}
	if obs.Count != 4 {
		t.Fatalf("dropped count = %d, want 4 (11 candidates - 7 retained)", obs.Count)
	}
	if got := p.GetStats().MessagesDropped; got != 4 {
		t.Fatalf("MessagesDropped = %d, want 4", got)
	}
}

func TestDropRetentionRatioConfigurable(t *testing.T) {
	p := newTestPool(t, nil,
		WithMaxMessageQueueSize(10),
		WithDropRetentionRatio(0.5),
	)

	tr := newFakeTransport()
	id, _ := p.AddConnection(tr, "u1", "t1", nil, nil)
	saturate(t, p, tr, id)

	for i := 0; i < 11; i++ {
		p.SendToConnection(id, "chatter", i, model.PriorityLow)
	}
	if got := len(p.pendingSnapshot(id)); got != 5 {
		t.Fatalf("retained queue length = %d, want 5 (floor of 10 * 0.5)", got)
	}
}

func TestDrainFlushesInOrder(t *testing.T) {
	p := newTestPool(t, nil)

	tr := newFakeTransport()
	id, _ := p.AddConnection(tr, "u1", "t1", nil, nil)
	saturate(t, p, tr, id)

	sentBefore := p.GetStats().MessagesSent
	p.SendToConnection(id, "alpha", "a", model.PriorityHigh)
	p.SendToConnection(id, "beta", "b", model.PriorityNormal)

	tr.setWritable(true)
	tr.drain()

	if got := tr.frameCount(); got != 3 {
		t.Fatalf("transport frames = %d, want welcome + 2 flushed", got)
	}
	if !hasEvent(tr.frame(1), "alpha") || !hasEvent(tr.frame(2), "beta") {
		t.Fatalf("flush order wrong: %q then %q", tr.frame(1), tr.frame(2))
	}
	if got := p.GetStats().MessagesSent - sentBefore; got != 2 {
		t.Fatalf("MessagesSent grew by %d across the drain, want 2", got)
	}
	if got := len(p.pendingSnapshot(id)); got != 0 {
		t.Fatalf("pending queue length after drain = %d, want 0", got)
	}
}

func TestDrainRepushesOnRenewedBackpressure(t *testing.T) {
	rec := &recorder{}
	p := newTestPool(t, rec)

	tr := newFakeTransport()
	id, _ := p.AddConnection(tr, "u1", "t1", nil, nil)
	saturate(t, p, tr, id)

	p.SendToConnection(id, "alpha", "a", model.PriorityNormal)
	p.SendToConnection(id, "beta", "b", model.PriorityNormal)

	// The transport signals drainable but still refuses the write; the
	// message must stay at the queue front, uncounted.
	sentBefore := p.GetStats().MessagesSent
	tr.drain()

	pending := p.pendingSnapshot(id)
	if len(pending) != 2 || pending[0].Event != "alpha" {
		t.Fatalf("queue after refused flush = %d front %q, want 2 with alpha first",
			len(pending), pending[0].Event)
	}
	if got := p.GetStats().MessagesSent; got != sentBefore {
		t.Fatalf("MessagesSent changed by %d on a refused flush, want 0", got-sentBefore)
	}
	if got := rec.count(model.ObsBackpressure); got != 2 {
		t.Fatalf("backpressure observations = %d, want 2", got)
	}

	// Once the transport really drains, ordering holds across the cycles.
	tr.setWritable(true)
	tr.drain()
	if !hasEvent(tr.frame(1), "alpha") || !hasEvent(tr.frame(2), "beta") {
		t.Fatalf("flush order wrong after renewed drain: %q then %q", tr.frame(1), tr.frame(2))
	}
}

func TestExpiredMessageDiscardedOnSend(t *testing.T) {
	rec := &recorder{}
	p := newTestPool(t, rec)

	tr := newFakeTransport()
	id, _ := p.AddConnection(tr, "u1", "t1", nil, nil)

	stale := model.NewExpiringMessage("stale", "x", model.PriorityNormal, -time.Second)
	if p.SendMessage(id, stale) {
		t.Fatal("expired message reported as delivered")
	}
	if got := tr.frameCount(); got != 1 {
		t.Fatalf("transport frames = %d, want only the welcome", got)
	}
	obs, found := rec.last(model.ObsMessageDropped)
	if !found || obs.Reason != string(model.DropExpired) {
		t.Fatalf("expected an expired drop observation, got %+v found=%v", obs, found)
	}
}

func TestExpiredMessageDiscardedOnFlush(t *testing.T) {
	rec := &recorder{}
	p := newTestPool(t, rec)

	tr := newFakeTransport()
	id, _ := p.AddConnection(tr, "u1", "t1", nil, nil)
	saturate(t, p, tr, id)

	p.SendMessage(id, model.NewExpiringMessage("ephemeral", "x", model.PriorityNormal, 5*time.Millisecond))
	p.SendToConnection(id, "durable", "y", model.PriorityNormal)

	time.Sleep(20 * time.Millisecond)
	tr.setWritable(true)
	tr.drain()

	if got := tr.frameCount(); got != 2 {
		t.Fatalf("transport frames = %d, want welcome + durable", got)
	}
	if !hasEvent(tr.frame(1), "durable") {
		t.Fatalf("flushed frame = %q, want the durable event", tr.frame(1))
	}
	obs, found := rec.last(model.ObsMessageDropped)
	if !found || obs.Reason != string(model.DropExpired) {
		t.Fatalf("expected an expired drop observation, got %+v found=%v", obs, found)
	}
}

func TestWriteErrorRemovesOnlyThatConnection(t *testing.T) {
	rec := &recorder{}
	p := newTestPool(t, rec)

	bad := newFakeTransport()
	good := newFakeTransport()
	badID, _ := p.AddConnection(bad, "u1", "t1", []string{"alerts"}, nil)
	p.AddConnection(good, "u2", "t1", []string{"alerts"}, nil)

	bad.setError(errors.New("connection reset"))
	if got := p.Broadcast("t1", "alerts", "news", "x", model.PriorityNormal); got != 1 {
		t.Fatalf("broadcast accepted by %d connections, want 1 (the healthy one)", got)
	}

	obs, found := rec.last(model.ObsConnectionRemoved)
	if !found || obs.ConnectionID != badID || obs.Reason != string(model.CloseWriteError) {
		t.Fatalf("expected write_error removal of %s, got %+v found=%v", badID, obs, found)
	}
	stats := p.GetStats()
	if stats.TotalConnections != 1 {
		t.Fatalf("TotalConnections = %d, want 1", stats.TotalConnections)
	}
}

func TestBroadcastFanout(t *testing.T) {
	p := newTestPool(t, nil)

	for i := 0; i < 3; i++ {
		p.AddConnection(newFakeTransport(), "u1", "t1", []string{"alerts"}, nil)
	}
	p.AddConnection(newFakeTransport(), "u2", "t1", []string{"other"}, nil)
	p.AddConnection(newFakeTransport(), "u3", "t2", []string{"alerts"}, nil)

	if got := p.Broadcast("t1", "alerts", "news", "x", model.PriorityNormal); got != 3 {
		t.Fatalf("broadcast reached %d connections, want 3", got)
	}
	if got := p.Broadcast("t1", "missing", "news", "x", model.PriorityNormal); got != 0 {
		t.Fatalf("broadcast to an absent channel reached %d, want 0", got)
	}
}

func TestBroadcastToUserAndTenant(t *testing.T) {
	p := newTestPool(t, nil)

	p.AddConnection(newFakeTransport(), "u1", "t1", nil, nil)
	p.AddConnection(newFakeTransport(), "u1", "t2", nil, nil)
	p.AddConnection(newFakeTransport(), "u2", "t1", nil, nil)

	if got := p.BroadcastToUser("u1", "notify", "x", model.PriorityNormal); got != 2 {
		t.Fatalf("user broadcast reached %d, want 2", got)
	}
	if got := p.BroadcastToTenant("t1", "announce", "x", model.PriorityNormal); got != 2 {
		t.Fatalf("tenant broadcast reached %d, want 2", got)
	}
	if got := p.BroadcastToUser("ghost", "notify", "x", model.PriorityNormal); got != 0 {
		t.Fatalf("broadcast to an unknown user reached %d, want 0", got)
	}
}

func TestBroadcastEncodesOnce(t *testing.T) {
	p := newTestPool(t, nil)

	a := newFakeTransport()
	b := newFakeTransport()
	p.AddConnection(a, "u1", "t1", []string{"alerts"}, nil)
	p.AddConnection(b, "u2", "t1", []string{"alerts"}, nil)

	p.Broadcast("t1", "alerts", "news", map[string]any{"n": 1}, model.PriorityNormal)

	fa, fb := a.frame(1), b.frame(1)
	if string(fa) != string(fb) {
		t.Fatalf("recipients saw different frames:\n%q\n%q", fa, fb)
	}
}
