package websocket

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// peer - one websocket connection. Writes are serialized, gorilla allows a single writer.
type peer struct {
	conn *websocket.Conn

	writeMutex sync.Mutex
	closed     chan struct{}
	closeOnce  sync.Once
}

func newPeer(conn *websocket.Conn) *peer {
	return &peer{
		conn:   conn,
		closed: make(chan struct{}),
	}
}

func (that *peer) write(payload []byte) error {
	that.writeMutex.Lock()
	defer that.writeMutex.Unlock()

	select {
	case <-that.closed:
		return ErrClosed
	default:
	}

	if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *peer) ping() error {
	if err := that.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to write ping: %w", err)
	}

	return nil
}

// close - sends a close frame best effort and releases the connection.
func (that *peer) close() {
	that.closeOnce.Do(func() {
		close(that.closed)

		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = that.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
		_ = that.conn.Close()
	})
}
