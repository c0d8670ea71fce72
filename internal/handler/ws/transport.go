package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// transport adapts a websocket connection to the pool's transport contract.
// Frames keep the same line-oriented wire format as the SSE route, one frame
// per websocket text message.
type transport struct {
	mu   sync.Mutex
	conn *websocket.Conn

	done      chan struct{}
	closeOnce sync.Once
}

func newTransport(conn *websocket.Conn) *transport {
	return &transport{
		conn: conn,
		done: make(chan struct{}),
	}
}

func (t *transport) Write(p []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := t.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return false, err
	}
	return true, nil
}

func (t *transport) OnDrainable(func()) {}

func (t *transport) Close() error {
	t.closeOnce.Do(func() {
		_ = t.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(writeWait),
		)
		_ = t.conn.Close()
		close(t.done)
	})
	return nil
}

func (t *transport) Done() <-chan struct{} { return t.done }
