package websocket

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 64 * 1024
	inboxSize      = 256
)

var (
	ErrTimeout     = errors.New("receive timeout")
	ErrClosed      = errors.New("transport closed")
	ErrUnknownPeer = errors.New("unknown peer")
)

// Envelope - one inbound frame tagged with the identity of the connection it came from.
type Envelope struct {
	Identity string
	Payload  []byte
}

// Router - accepts websocket connections, gives each a stable identity and merges
// every inbound frame into one stream.
type Router struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	peersMutex sync.RWMutex
	peers      map[string]*peer

	inbox     chan Envelope
	done      chan struct{}
	closeOnce sync.Once
}

func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		logger: logger.With("component", "ws-router"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		peers: make(map[string]*peer),
		inbox: make(chan Envelope, inboxSize),
		done:  make(chan struct{}),
	}
}

// ServeHTTP - upgrades the request and serves the connection until it drops.
func (that *Router) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	select {
	case <-that.done:
		http.Error(writer, "server is shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	identity := uuid.NewString()
	client := newPeer(conn)

	that.peersMutex.Lock()
	that.peers[identity] = client
	that.peersMutex.Unlock()

	log.Debug("connection established", "identity", identity, "remote", req.RemoteAddr)

	go that.keepAlive(client)
	that.readLoop(identity, client)

	that.peersMutex.Lock()
	delete(that.peers, identity)
	that.peersMutex.Unlock()

	client.close()

	log.Debug("connection closed", "identity", identity)
}

// Send - writes one text frame to the connection with the given identity.
func (that *Router) Send(identity string, payload []byte) error {
	that.peersMutex.RLock()
	client, ok := that.peers[identity]
	that.peersMutex.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, identity)
	}

	return client.write(payload)
}

// Receive - waits up to timeout for the next inbound frame from any connection.
func (that *Router) Receive(timeout time.Duration) (Envelope, error) {
	select {
	case envelope := <-that.inbox:
		return envelope, nil
	case <-that.done:
		return Envelope{}, ErrClosed
	default:
	}

	if timeout <= 0 {
		return Envelope{}, ErrTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case envelope := <-that.inbox:
		return envelope, nil
	case <-that.done:
		return Envelope{}, ErrClosed
	case <-timer.C:
		return Envelope{}, ErrTimeout
	}
}

// Close - stops accepting frames and closes every connection.
func (that *Router) Close() error {
	that.closeOnce.Do(func() {
		close(that.done)

		that.peersMutex.RLock()
		defer that.peersMutex.RUnlock()

		for _, client := range that.peers {
			client.close()
		}
	})

	return nil
}

func (that *Router) readLoop(identity string, client *peer) {
	log := that.logger.With("method", "readLoop", "identity", identity)

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("connection dropped", "error", err)
			}
			return
		}

		select {
		case that.inbox <- Envelope{Identity: identity, Payload: payload}:
		case <-that.done:
			return
		}
	}
}

func (that *Router) keepAlive(client *peer) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := client.ping(); err != nil {
				return
			}
		case <-client.closed:
			return
		case <-that.done:
			return
		}
	}
}
