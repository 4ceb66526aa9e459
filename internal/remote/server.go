package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/inarow-server/internal/apperror"
	"github.com/rocketscienceinc/inarow-server/internal/entity"
	"github.com/rocketscienceinc/inarow-server/internal/metrics"
	"github.com/rocketscienceinc/inarow-server/internal/protocol"
	"github.com/rocketscienceinc/inarow-server/internal/repository"
	"github.com/rocketscienceinc/inarow-server/internal/tictactoe"
	"github.com/rocketscienceinc/inarow-server/transport/websocket"
)

// Transport - server side of an identity-multiplexed channel.
type Transport interface {
	Send(identity string, payload []byte) error
	Receive(timeout time.Duration) (websocket.Envelope, error)
}

type pendingClient struct {
	name     string
	token    string
	joinedAt time.Time
}

func (that pendingClient) kind() string {
	if that.name == "" {
		return entity.KindObserver
	}

	return entity.KindPlayer
}

type connectedObserver struct {
	identity string
	token    string
}

// Server - accepts joins, keeps the connected and pending tables and drives matches
// between remote players. The tables are guarded by mu, which is never held while
// waiting on the network.
type Server struct {
	ctx          context.Context
	logger       *slog.Logger
	transport    Transport
	participants repository.ParticipantRepository
	timeout      time.Duration
	now          func() time.Time

	mu                 sync.Mutex
	password           string
	acceptingPlayers   bool
	acceptingObservers bool
	players            []*RemotePlayer
	observers          []connectedObserver
	pending            map[string]pendingClient
}

// NewServer - timeout bounds every awaited reply and the lifetime of pending joins.
func NewServer(
	ctx context.Context,
	logger *slog.Logger,
	transport Transport,
	participants repository.ParticipantRepository,
	timeout time.Duration,
) *Server {
	return &Server{
		ctx:                ctx,
		logger:             logger.With("component", "match-server"),
		transport:          transport,
		participants:       participants,
		timeout:            timeout,
		now:                time.Now,
		acceptingPlayers:   true,
		acceptingObservers: true,
		pending:            make(map[string]pendingClient),
	}
}

func (that *Server) SetPassword(password string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.password = password
}

func (that *Server) AcceptPlayers(accept bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.acceptingPlayers = accept
}

func (that *Server) AcceptObservers(accept bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.acceptingObservers = accept
}

func (that *Server) PlayerCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.players)
}

// Player - i-th connected player in join order, nil when out of range.
func (that *Server) Player(i int) *RemotePlayer {
	that.mu.Lock()
	defer that.mu.Unlock()

	if i < 0 || i >= len(that.players) {
		return nil
	}

	return that.players[i]
}

// Players - snapshot of the connected players.
func (that *Server) Players() []*RemotePlayer {
	that.mu.Lock()
	defer that.mu.Unlock()

	return slices.Clone(that.players)
}

func (that *Server) ObserverCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.observers)
}

// WaitForPlayers - handles joins and other background traffic for budget. Returns an
// error only when the transport is gone.
func (that *Server) WaitForPlayers(budget time.Duration) error {
	deadline := time.Now().Add(budget)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}

		if err := that.ctx.Err(); err != nil {
			return fmt.Errorf("failed to wait for players: %w", err)
		}

		envelope, err := that.transport.Receive(remaining)
		if errors.Is(err, websocket.ErrTimeout) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to receive message: %w", err)
		}

		that.HandleBackgroundMessage(envelope.Identity, envelope.Payload)
	}
}

// HeartbeatPlayers - pings every connected player, players that do not answer in time are dropped.
func (that *Server) HeartbeatPlayers() {
	for _, player := range that.Players() {
		err := that.send(player.identity, protocol.PingUpdate())
		if err == nil {
			err = that.awaitReady(player.identity, player.token)
		}

		if err == nil {
			err = that.refresh(player.token)
		}

		if err != nil {
			that.removePlayer(player, err, false)
		}
	}
}

// RunGame - plays one match between x and o, with every connected spectator watching.
func (that *Server) RunGame(opts entity.Options, x, o tictactoe.Player) (entity.MoveResult, error) {
	log := that.logger.With("method", "RunGame")

	if isNilPlayer(x) || isNilPlayer(o) {
		return entity.ResultError, apperror.ErrInvalidPlayers
	}

	for _, player := range []tictactoe.Player{x, o} {
		if err := tictactoe.CheckObserver(player); err != nil {
			return entity.ResultError, err
		}
	}

	if x == o {
		return entity.ResultError, apperror.ErrInvalidPlayers
	}

	match, err := tictactoe.NewMatch(opts)
	if err != nil {
		return entity.ResultError, fmt.Errorf("failed to create match: %w", err)
	}

	opts = match.State().Options()

	that.refreshSessions()

	for _, player := range that.Players() {
		player.SetOptions(opts)
	}

	if err = match.AddPlayer(entity.SignX, x); err != nil {
		return entity.ResultError, err
	}

	if err = match.AddPlayer(entity.SignO, o); err != nil {
		return entity.ResultError, err
	}

	spectators := &RemoteObserver{server: that}
	spectators.SetOptions(opts)
	_ = match.AddObserver(spectators)

	log.Info("game started", "x", x.Name(), "o", o.Name(), "rows", opts.Rows, "cols", opts.Cols,
		"win_length", opts.WinLength)

	result := match.Process()
	for result == entity.ResultOK {
		result = match.Process()
	}

	match.RemoveObserver(spectators)

	metrics.GameResults.WithLabelValues(string(result)).Inc()
	log.Info("game finished", "result", result, "winner", match.State().Winner(), "moves", match.State().MoveNo())

	return result, nil
}

// refreshSessions - renews the stored session of everyone seated, clients whose session is gone are dropped.
func (that *Server) refreshSessions() {
	for _, player := range that.Players() {
		if err := that.refresh(player.token); err != nil {
			that.removePlayer(player, err, true)
		}
	}

	for _, observer := range that.observerSnapshot() {
		if err := that.refresh(observer.token); err != nil {
			that.removeObserver(observer.identity, err)
		}
	}
}

// isNilPlayer - also catches a nil *RemotePlayer stored in the interface.
func isNilPlayer(player tictactoe.Player) bool {
	if player == nil {
		return true
	}

	remotePlayer, ok := player.(*RemotePlayer)

	return ok && remotePlayer == nil
}

// Shutdown - tells every participant the server is closing and clears the tables.
func (that *Server) Shutdown() {
	log := that.logger.With("method", "Shutdown")

	that.mu.Lock()
	players := that.players
	observers := that.observers
	pending := that.pending
	that.players = nil
	that.observers = nil
	that.pending = make(map[string]pendingClient)
	that.mu.Unlock()

	for _, player := range players {
		player.dropped.Store(true)
		that.notifyClosed(player.identity)
		that.forget(player.token)
	}

	for _, observer := range observers {
		that.notifyClosed(observer.identity)
		that.forget(observer.token)
	}

	for _, client := range pending {
		that.forget(client.token)
	}

	metrics.ConnectedPlayers.Set(0)
	metrics.ConnectedObservers.Set(0)

	log.Info("server shut down", "players", len(players), "observers", len(observers))
}

func (that *Server) send(identity string, message *protocol.ServerMessage) error {
	payload, err := protocol.Marshal(message)
	if err != nil {
		return err
	}

	if err = that.transport.Send(identity, payload); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// notifyClosed - best effort ServerClosed.
func (that *Server) notifyClosed(identity string) {
	if err := that.send(identity, protocol.ServerClosedUpdate()); err != nil {
		that.logger.Debug("failed to notify client", "identity", identity, "error", err)
	}
}

// await - waits for the reply of identity. Frames from other identities are handed to
// HandleBackgroundMessage and the wait goes on until the timeout is spent.
func (that *Server) await(identity, token string) (*protocol.ClientResponse, error) {
	deadline := time.Now().Add(that.timeout)

	for {
		if err := that.ctx.Err(); err != nil {
			return nil, fmt.Errorf("failed to await response: %w", err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, apperror.ErrResponseTimeout
		}

		envelope, err := that.transport.Receive(remaining)
		if errors.Is(err, websocket.ErrTimeout) {
			return nil, apperror.ErrResponseTimeout
		}

		if err != nil {
			return nil, fmt.Errorf("failed to receive message: %w", err)
		}

		if envelope.Identity != identity {
			that.HandleBackgroundMessage(envelope.Identity, envelope.Payload)
			continue
		}

		message, err := protocol.UnmarshalClientMessage(envelope.Payload)
		if err != nil {
			return nil, err
		}

		if message.Response == nil {
			return nil, fmt.Errorf("%w: expected a response", apperror.ErrProtocol)
		}

		sessionToken := message.Response.Token
		if sessionToken == "" {
			sessionToken = token
		}

		if _, err = that.session(identity, sessionToken); err != nil {
			return nil, err
		}

		if message.Response.Type == protocol.ResponseDisconnect {
			return nil, apperror.ErrClientDisconnected
		}

		return message.Response, nil
	}
}

func (that *Server) awaitReady(identity, token string) error {
	_, err := that.await(identity, token)

	return err
}

func (that *Server) removePlayer(player *RemotePlayer, cause error, notify bool) {
	player.dropped.Store(true)

	that.mu.Lock()
	idx := slices.Index(that.players, player)
	if idx >= 0 {
		that.players = slices.Delete(that.players, idx, idx+1)
	}
	that.mu.Unlock()

	if idx < 0 {
		return
	}

	that.logger.Info("player dropped", "name", player.name, "identity", player.identity, "cause", cause)

	metrics.Drops.WithLabelValues(entity.KindPlayer, dropCause(cause)).Inc()
	metrics.ConnectedPlayers.Dec()

	if notify {
		that.notifyClosed(player.identity)
	}

	that.forget(player.token)
}

func (that *Server) removeObserver(identity string, cause error) {
	that.mu.Lock()
	idx := slices.IndexFunc(that.observers, func(observer connectedObserver) bool {
		return observer.identity == identity
	})

	var removed connectedObserver
	if idx >= 0 {
		removed = that.observers[idx]
		that.observers = slices.Delete(that.observers, idx, idx+1)
	}
	that.mu.Unlock()

	if idx < 0 {
		return
	}

	that.logger.Info("observer dropped", "identity", identity, "cause", cause)

	metrics.Drops.WithLabelValues(entity.KindObserver, dropCause(cause)).Inc()
	metrics.ConnectedObservers.Dec()

	that.notifyClosed(identity)
	that.forget(removed.token)
}

func (that *Server) observerSnapshot() []connectedObserver {
	that.mu.Lock()
	defer that.mu.Unlock()

	return slices.Clone(that.observers)
}

// session - loads the stored session of token and checks that it belongs to identity.
func (that *Server) session(identity, token string) (*entity.Participant, error) {
	participant, err := that.participants.GetByID(that.ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown session: %w", apperror.ErrProtocol, err)
	}

	if participant.Identity != identity {
		return nil, fmt.Errorf("%w: session belongs to another connection", apperror.ErrProtocol)
	}

	return participant, nil
}

// refresh - keeps the session of a client that is still seated from expiring.
func (that *Server) refresh(token string) error {
	if err := that.participants.Refresh(that.ctx, token); err != nil {
		return fmt.Errorf("%w: session expired: %w", apperror.ErrProtocol, err)
	}

	return nil
}

// remember - stores the session record of an accepted client.
func (that *Server) remember(participant *entity.Participant) {
	if err := that.participants.CreateOrUpdate(that.ctx, participant); err != nil {
		that.logger.Warn("failed to store participant", "token", participant.Token, "error", err)
	}
}

func (that *Server) forget(token string) {
	if err := that.participants.DeleteByID(that.ctx, token); err != nil {
		that.logger.Warn("failed to delete participant", "token", token, "error", err)
	}
}

func newToken() string {
	return uuid.NewString()
}

func dropCause(err error) string {
	switch {
	case errors.Is(err, apperror.ErrResponseTimeout):
		return "timeout"
	case errors.Is(err, apperror.ErrClientDisconnected):
		return "disconnect"
	case errors.Is(err, apperror.ErrMalformedMessage), errors.Is(err, apperror.ErrProtocol):
		return "protocol"
	default:
		return "transport"
	}
}
