package remote

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rocketscienceinc/inarow-server/internal/entity"
	"github.com/rocketscienceinc/inarow-server/internal/protocol"
	"github.com/rocketscienceinc/inarow-server/internal/repository"
	"github.com/rocketscienceinc/inarow-server/transport/websocket"
	"github.com/stretchr/testify/require"
)

const (
	testTimeout = 300 * time.Millisecond
	idleBudget  = 30 * time.Millisecond
)

// network - in-memory stand-in for the websocket router and its client connections.
type network struct {
	inbox chan websocket.Envelope

	mu    sync.Mutex
	conns map[string]*fakeConn
	next  int
}

func newNetwork() *network {
	return &network{
		inbox: make(chan websocket.Envelope, 256),
		conns: make(map[string]*fakeConn),
	}
}

func (that *network) Send(identity string, payload []byte) error {
	that.mu.Lock()
	conn, ok := that.conns[identity]
	that.mu.Unlock()

	if !ok {
		return websocket.ErrUnknownPeer
	}

	select {
	case conn.inbox <- payload:
		return nil
	case <-conn.closed:
		return websocket.ErrClosed
	}
}

func (that *network) Receive(timeout time.Duration) (websocket.Envelope, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case envelope := <-that.inbox:
		return envelope, nil
	case <-timer.C:
		return websocket.Envelope{}, websocket.ErrTimeout
	}
}

func (that *network) Dial(_ context.Context, _ string) (Conn, error) {
	return that.connect(), nil
}

func (that *network) connect() *fakeConn {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.next++
	conn := &fakeConn{
		identity: fmt.Sprintf("client-%d", that.next),
		network:  that,
		inbox:    make(chan []byte, 256),
		closed:   make(chan struct{}),
	}
	that.conns[conn.identity] = conn

	return conn
}

type fakeConn struct {
	identity string
	network  *network
	inbox    chan []byte

	closed    chan struct{}
	closeOnce sync.Once
}

func (that *fakeConn) Send(payload []byte) error {
	select {
	case <-that.closed:
		return websocket.ErrClosed
	default:
	}

	that.network.inbox <- websocket.Envelope{Identity: that.identity, Payload: payload}

	return nil
}

func (that *fakeConn) Receive(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload := <-that.inbox:
		return payload, nil
	case <-that.closed:
		return nil, websocket.ErrClosed
	case <-timer.C:
		return nil, websocket.ErrTimeout
	}
}

func (that *fakeConn) Close() error {
	that.closeOnce.Do(func() {
		close(that.closed)

		that.network.mu.Lock()
		delete(that.network.conns, that.identity)
		that.network.mu.Unlock()
	})

	return nil
}

func (that *fakeConn) send(t *testing.T, message *protocol.ClientMessage) {
	t.Helper()

	payload, err := protocol.Marshal(message)
	require.NoError(t, err)
	require.NoError(t, that.Send(payload))
}

func (that *fakeConn) receive(t *testing.T) *protocol.ServerMessage {
	t.Helper()

	payload, err := that.Receive(time.Second)
	require.NoError(t, err)

	message, err := protocol.UnmarshalServerMessage(payload)
	require.NoError(t, err)

	return message
}

func (that *fakeConn) receiveNothing(t *testing.T) {
	t.Helper()

	_, err := that.Receive(idleBudget)
	require.ErrorIs(t, err, websocket.ErrTimeout)
}

// answer - replies to every update with fn until the connection is closed. Runs in its own goroutine.
func (that *fakeConn) answer(fn func(update *protocol.Update) *protocol.ClientMessage) {
	for {
		payload, err := that.Receive(time.Second)
		if err != nil {
			return
		}

		message, err := protocol.UnmarshalServerMessage(payload)
		if err != nil || message.Update == nil {
			continue
		}

		if reply := fn(message.Update); reply != nil {
			encoded, err := protocol.Marshal(reply)
			if err == nil {
				_ = that.Send(encoded)
			}
		}
	}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func newTestServer(t *testing.T) (*Server, *network, repository.ParticipantRepository) {
	t.Helper()

	net := newNetwork()
	participants := repository.NewMemoryParticipantRepository()

	return NewServer(context.Background(), newTestLogger(), net, participants, testTimeout), net, participants
}

// joinPlayer - runs the whole join handshake for a player and returns its connection and token.
func joinPlayer(t *testing.T, server *Server, net *network, name string) (*fakeConn, string) {
	t.Helper()

	conn := net.connect()
	t.Cleanup(func() { _ = conn.Close() })

	conn.send(t, protocol.NewPlayerJoin(name, ""))
	require.NoError(t, server.WaitForPlayers(idleBudget))

	reply := conn.receive(t)
	require.NotNil(t, reply.Join)
	require.NotNil(t, reply.Join.Accepted, "join of %s was rejected", name)

	conn.send(t, protocol.Ready(reply.Join.Accepted.Token))
	require.NoError(t, server.WaitForPlayers(idleBudget))

	return conn, reply.Join.Accepted.Token
}

// scriptedPlayer - plays a fixed list of moves and records what it observes.
type scriptedPlayer struct {
	name   string
	moves  []entity.Point
	sign   entity.Sign
	events []entity.Event
}

func (that *scriptedPlayer) HandleEvent(_ *entity.State, event entity.Event) {
	that.events = append(that.events, event)
}

func (that *scriptedPlayer) SetSign(sign entity.Sign) {
	that.sign = sign
}

func (that *scriptedPlayer) MakeMove(_ *entity.State) entity.Point {
	if len(that.moves) == 0 {
		return entity.Point{X: -1, Y: -1}
	}

	point := that.moves[0]
	that.moves = that.moves[1:]

	return point
}

func (that *scriptedPlayer) Name() string {
	return that.name
}

type eventRecorder struct {
	events  []entity.Event
	winners []entity.Sign
}

func (that *eventRecorder) HandleEvent(state *entity.State, event entity.Event) {
	that.events = append(that.events, event)
	that.winners = append(that.winners, state.Winner())
}
