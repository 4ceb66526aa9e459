package remote

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/inarow-server/internal/apperror"
	"github.com/rocketscienceinc/inarow-server/internal/entity"
	"github.com/rocketscienceinc/inarow-server/internal/protocol"
	"github.com/rocketscienceinc/inarow-server/internal/tictactoe"
	"github.com/rocketscienceinc/inarow-server/transport/websocket"
)

// Conn - client side of the channel to the server.
type Conn interface {
	Send(payload []byte) error
	Receive(timeout time.Duration) ([]byte, error)
	Close() error
}

// Client - mirrors the server's game locally and answers its updates on behalf of a
// local player or observer. Not safe for concurrent use.
type Client struct {
	logger    *slog.Logger
	conn      Conn
	player    tictactoe.Player
	observers tictactoe.Observers
	token     string
	timeout   time.Duration

	state     *entity.State
	connected bool
	err       error
}

func newClient(logger *slog.Logger, conn Conn, player tictactoe.Player, token string, timeout time.Duration) *Client {
	that := &Client{
		logger:    logger,
		conn:      conn,
		player:    player,
		token:     token,
		timeout:   timeout,
		connected: true,
	}

	if player != nil {
		_ = that.observers.Add(player)
	}

	that.sendReady()

	return that
}

func (that *Client) Connected() bool {
	return that.connected
}

// Err - why the client disconnected, nil while connected.
func (that *Client) Err() error {
	return that.err
}

func (that *Client) Token() string {
	return that.token
}

// Timeout - reply budget announced by the server.
func (that *Client) Timeout() time.Duration {
	return that.timeout
}

// State - local mirror of the current game, nil before the first NewGame.
func (that *Client) State() *entity.State {
	return that.state
}

func (that *Client) AddObserver(observer tictactoe.Observer) error {
	return that.observers.Add(observer)
}

// HandleOneUpdate - waits up to timeout for one update and handles it. Returns false
// when nothing arrived in time.
func (that *Client) HandleOneUpdate(timeout time.Duration) bool {
	if !that.connected {
		return true
	}

	payload, err := that.conn.Receive(timeout)
	if errors.Is(err, websocket.ErrTimeout) {
		return false
	}

	if err != nil {
		that.terminate(fmt.Errorf("connection lost: %w", err))
		return true
	}

	message, err := protocol.UnmarshalServerMessage(payload)
	if err != nil {
		that.disconnect(fmt.Errorf("%w: %w", apperror.ErrProtocol, err))
		return true
	}

	if message.Update == nil {
		that.disconnect(fmt.Errorf("%w: unexpected join response", apperror.ErrProtocol))
		return true
	}

	kind, err := message.Update.Kind()
	if err != nil {
		that.disconnect(fmt.Errorf("%w: %w", apperror.ErrProtocol, err))
		return true
	}

	that.dispatch(kind, message.Update)

	return true
}

// HandleAllUpdates - serves updates until the client disconnects.
func (that *Client) HandleAllUpdates() {
	for that.connected {
		that.HandleOneUpdate(time.Second)
	}
}

// Close - leaves the server and releases the connection.
func (that *Client) Close() error {
	if that.connected {
		that.terminate(apperror.ErrClientDisconnected)
		that.sendDisconnect()
	}

	if err := that.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	return nil
}

func (that *Client) dispatch(kind protocol.UpdateKind, update *protocol.Update) {
	switch kind {
	case protocol.UpdateServerClosed:
		that.logger.Info("server closed connection")
		that.terminate(apperror.ErrServerClosed)

	case protocol.UpdatePing:
		that.sendReady()

	case protocol.UpdateNewGame:
		that.handleNewGame(update.NewGame)

	case protocol.UpdateEvent:
		if that.state == nil {
			that.disconnect(fmt.Errorf("%w: event before new game", apperror.ErrProtocol))
			return
		}

		that.handleEvent(update.Event)

	case protocol.UpdateMoveRequest:
		if that.state == nil {
			that.disconnect(fmt.Errorf("%w: move request before new game", apperror.ErrProtocol))
			return
		}

		if that.player == nil {
			that.disconnect(fmt.Errorf("%w: move request sent to observer", apperror.ErrProtocol))
			return
		}

		that.send(protocol.MoveResponse(that.token, that.player.MakeMove(that.state)))

	default:
		that.disconnect(fmt.Errorf("%w: unsupported update %q", apperror.ErrProtocol, kind))
	}
}

func (that *Client) handleNewGame(newGame *protocol.NewGame) {
	if newGame.Options == nil {
		that.disconnect(fmt.Errorf("%w: new game without options", apperror.ErrProtocol))
		return
	}

	opts, err := protocol.DecodeOptions(newGame.Options)
	if err != nil {
		that.disconnect(fmt.Errorf("%w: %w", apperror.ErrProtocol, err))
		return
	}

	if that.player != nil {
		sign := protocol.DecodeSign(newGame.Sign)
		if sign == entity.SignNone {
			that.disconnect(fmt.Errorf("%w: no sign for player", apperror.ErrProtocol))
			return
		}

		that.player.SetSign(sign)
	}

	state, err := entity.NewState(opts)
	if err != nil {
		that.disconnect(err)
		return
	}

	that.state = state
	that.sendReady()
}

func (that *Client) handleEvent(message *protocol.EventMessage) {
	event, err := protocol.DecodeEvent(message)
	if err != nil {
		that.disconnect(fmt.Errorf("%w: %w", apperror.ErrProtocol, err))
		return
	}

	if move, ok := event.(entity.Move); ok {
		that.state.ProcessMove(move.Sign, move.X, move.Y)
	}

	that.observers.HandleEvent(that.state, event)
	that.sendReady()
}

func (that *Client) sendReady() {
	that.send(protocol.Ready(that.token))
}

func (that *Client) send(message *protocol.ClientMessage) {
	payload, err := protocol.Marshal(message)
	if err == nil {
		err = that.conn.Send(payload)
	}

	if err != nil {
		that.terminate(fmt.Errorf("failed to send response: %w", err))
	}
}

// disconnect - tells the server we are leaving, best effort, and records the reason.
func (that *Client) disconnect(reason error) {
	that.logger.Warn("disconnecting", "reason", reason)

	that.terminate(reason)
	that.sendDisconnect()
}

func (that *Client) sendDisconnect() {
	if payload, err := protocol.Marshal(protocol.Disconnect(that.token)); err == nil {
		_ = that.conn.Send(payload)
	}
}

func (that *Client) terminate(reason error) {
	if !that.connected {
		return
	}

	that.connected = false
	that.err = reason
}
