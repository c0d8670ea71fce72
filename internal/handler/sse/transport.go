package sse

import (
	"errors"
	"net/http"
	"sync"
)

var errClosed = errors.New("sse: transport closed")

// transport adapts a chunked HTTP response to the pool's transport
// contract. net/http applies flow control by blocking the write, so Write
// never reports backpressure and the drain continuation never fires here;
// the in-memory double and the websocket adapter cover that path.
type transport struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool

	done      chan struct{}
	closeOnce sync.Once
}

func newTransport(w http.ResponseWriter, flusher http.Flusher) *transport {
	return &transport{
		w:       w,
		flusher: flusher,
		done:    make(chan struct{}),
	}
}

func (t *transport) Write(p []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false, errClosed
	}
	if _, err := t.w.Write(p); err != nil {
		return false, err
	}
	t.flusher.Flush()
	return true, nil
}

func (t *transport) OnDrainable(func()) {}

func (t *transport) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		close(t.done)
	})
	return nil
}

// Done unblocks the handler once the pool has released the session.
func (t *transport) Done() <-chan struct{} { return t.done }
