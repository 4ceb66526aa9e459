package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/inarow-server/internal/apperror"
	"github.com/rocketscienceinc/inarow-server/internal/protocol"
	"github.com/rocketscienceinc/inarow-server/internal/tictactoe"
	"github.com/rocketscienceinc/inarow-server/transport/websocket"
)

const DefaultJoinTimeout = 1500 * time.Millisecond

type DialFunc func(ctx context.Context, addr string) (Conn, error)

type DialerOptions struct {
	// JoinTimeout bounds dialing plus the join handshake, DefaultJoinTimeout when zero.
	JoinTimeout time.Duration
	// Dial opens the connection, websocket.Dial when nil.
	Dial DialFunc
}

// Dialer - joins servers and owns every connection it opened.
type Dialer struct {
	logger      *slog.Logger
	joinTimeout time.Duration
	dial        DialFunc

	mu    sync.Mutex
	conns []Conn
}

func NewDialer(logger *slog.Logger, opts DialerOptions) *Dialer {
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = DefaultJoinTimeout
	}

	if opts.Dial == nil {
		opts.Dial = func(ctx context.Context, addr string) (Conn, error) {
			conn, err := websocket.Dial(ctx, addr)
			if err != nil {
				return nil, err
			}

			return conn, nil
		}
	}

	return &Dialer{
		logger:      logger.With("component", "dialer"),
		joinTimeout: opts.JoinTimeout,
		dial:        opts.Dial,
	}
}

// ConnectPlayer - joins addr as a player named player.Name().
func (that *Dialer) ConnectPlayer(ctx context.Context, addr string, player tictactoe.Player, password string) (*Client, error) {
	if err := tictactoe.CheckObserver(player); err != nil {
		return nil, err
	}

	return that.connect(ctx, addr, player, protocol.NewPlayerJoin(player.Name(), password))
}

// ConnectObserver - joins addr as a spectator.
func (that *Dialer) ConnectObserver(ctx context.Context, addr string, observer tictactoe.Observer, password string) (*Client, error) {
	if err := tictactoe.CheckObserver(observer); err != nil {
		return nil, err
	}

	client, err := that.connect(ctx, addr, nil, protocol.NewObserverJoin(password))
	if err != nil {
		return nil, err
	}

	_ = client.AddObserver(observer)

	return client, nil
}

// Close - closes every connection opened by the dialer.
func (that *Dialer) Close() error {
	that.mu.Lock()
	conns := that.conns
	that.conns = nil
	that.mu.Unlock()

	var errs []error
	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (that *Dialer) connect(
	ctx context.Context,
	addr string,
	player tictactoe.Player,
	request *protocol.ClientMessage,
) (*Client, error) {
	log := that.logger.With("method", "connect", "addr", addr)

	ctx, cancel := context.WithTimeout(ctx, that.joinTimeout)
	defer cancel()

	conn, err := that.dial(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	accepted, err := that.join(ctx, conn, request)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	that.mu.Lock()
	that.conns = append(that.conns, conn)
	that.mu.Unlock()

	log.Info("joined server", "join_type", request.Join.JoinType, "timeout_ms", accepted.TimeoutMs)

	timeout := time.Duration(accepted.TimeoutMs) * time.Millisecond

	return newClient(that.logger.With("component", "client"), conn, player, accepted.Token, timeout), nil
}

func (that *Dialer) join(ctx context.Context, conn Conn, request *protocol.ClientMessage) (*protocol.Accepted, error) {
	payload, err := protocol.Marshal(request)
	if err != nil {
		return nil, err
	}

	if err = conn.Send(payload); err != nil {
		return nil, fmt.Errorf("failed to send join request: %w", err)
	}

	timeout := that.joinTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	reply, err := conn.Receive(timeout)
	if errors.Is(err, websocket.ErrTimeout) {
		return nil, fmt.Errorf("failed to join: %w", apperror.ErrResponseTimeout)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to receive join response: %w", err)
	}

	message, err := protocol.UnmarshalServerMessage(reply)
	if err != nil {
		return nil, err
	}

	switch {
	case message.Join == nil:
		return nil, fmt.Errorf("%w: expected a join response", apperror.ErrProtocol)
	case message.Join.Rejected != nil:
		return nil, &apperror.JoinRejectedError{Reason: string(message.Join.Rejected.Reason)}
	case message.Join.Accepted == nil:
		return nil, fmt.Errorf("%w: empty join response", apperror.ErrProtocol)
	}

	return message.Join.Accepted, nil
}
