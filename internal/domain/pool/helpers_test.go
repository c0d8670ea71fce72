package pool

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pushgate/pushgate/internal/domain/model"
)

// fakeTransport is a scriptable in-memory transport. With writable=false its
// Write reports backpressure without absorbing the frame.
type fakeTransport struct {
	mu       sync.Mutex
	frames   [][]byte
	writable bool
	failWith error
	closed   bool
	drain    func()
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{writable: true}
}

func (t *fakeTransport) Write(p []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failWith != nil {
		return false, t.failWith
	}
	if !t.writable {
		return false, nil
	}
	t.frames = append(t.frames, append([]byte(nil), p...))
	return true, nil
}

func (t *fakeTransport) OnDrainable(fn func()) { t.drain = fn }

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) setWritable(w bool) {
	t.mu.Lock()
	t.writable = w
	t.mu.Unlock()
}

func (t *fakeTransport) setError(err error) {
	t.mu.Lock()
	t.failWith = err
	t.mu.Unlock()
}

func (t *fakeTransport) frameCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.frames)
}

func (t *fakeTransport) frame(i int) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames[i]
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// recorder collects the observation stream for assertions.
type recorder struct {
	mu  sync.Mutex
	obs []model.Observation
}

func (r *recorder) Observe(o model.Observation) {
	r.mu.Lock()
	r.obs = append(r.obs, o)
	r.mu.Unlock()
}

func (r *recorder) count(kind model.ObservationKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.obs {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) last(kind model.ObservationKind) (model.Observation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.obs) - 1; i >= 0; i-- {
		if r.obs[i].Kind == kind {
			return r.obs[i], true
		}
	}
	return model.Observation{}, false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestPool builds a pool whose timers stay out of the way unless a test
// overrides the intervals.
func newTestPool(t *testing.T, rec *recorder, opts ...Option) *Pool {
	t.Helper()

	base := []Option{
		WithLogger(testLogger()),
		WithPingInterval(time.Hour),
		WithCleanupInterval(time.Hour),
		WithConnectionTimeout(time.Hour),
		WithPoolFullCooldown(0),
	}
	if rec != nil {
		base = append(base, WithObserver(rec))
	}
	p := New(append(base, opts...)...)
	t.Cleanup(p.Shutdown)
	return p
}

func (p *Pool) pendingSnapshot(connID string) []*model.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.conns[connID]
	if !ok {
		return nil
	}
	return append([]*model.Message(nil), c.pending...)
}

func hasEvent(frame []byte, event string) bool {
	return bytes.Contains(frame, []byte("event: "+event+"\n"))
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}
