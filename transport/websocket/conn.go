package websocket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn - client side of a Router connection.
type Conn struct {
	client *peer
	inbox  chan []byte

	errMutex sync.Mutex
	err      error
}

// Dial - connects to a Router mounted at url (ws:// or wss://).
func Dial(ctx context.Context, url string) (*Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	that := &Conn{
		client: newPeer(conn),
		inbox:  make(chan []byte, inboxSize),
	}

	go that.readLoop()

	return that, nil
}

func (that *Conn) Send(payload []byte) error {
	return that.client.write(payload)
}

// Receive - waits up to timeout for the next frame from the server.
func (that *Conn) Receive(timeout time.Duration) ([]byte, error) {
	select {
	case payload, ok := <-that.inbox:
		if !ok {
			return nil, that.closedErr()
		}
		return payload, nil
	default:
	}

	if timeout <= 0 {
		return nil, ErrTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload, ok := <-that.inbox:
		if !ok {
			return nil, that.closedErr()
		}
		return payload, nil
	case <-timer.C:
		return nil, ErrTimeout
	}
}

func (that *Conn) Close() error {
	that.client.close()

	return nil
}

func (that *Conn) readLoop() {
	defer close(that.inbox)

	that.client.conn.SetReadLimit(maxMessageSize)

	for {
		_, payload, err := that.client.conn.ReadMessage()
		if err != nil {
			that.errMutex.Lock()
			that.err = err
			that.errMutex.Unlock()

			return
		}

		select {
		case that.inbox <- payload:
		case <-that.client.closed:
			return
		}
	}
}

func (that *Conn) closedErr() error {
	that.errMutex.Lock()
	defer that.errMutex.Unlock()

	if that.err == nil {
		return ErrClosed
	}

	return fmt.Errorf("%w: %w", ErrClosed, that.err)
}
