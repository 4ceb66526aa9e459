package remote

import (
	"fmt"
	"sync/atomic"

	"github.com/rocketscienceinc/inarow-server/internal/apperror"
	"github.com/rocketscienceinc/inarow-server/internal/entity"
	"github.com/rocketscienceinc/inarow-server/internal/protocol"
)

// droppedMove - answer of a player that is gone, always outside any board.
var droppedMove = entity.Point{X: -1, Y: -1}

// RemotePlayer - a connected client acting as a local tictactoe.Player. Every call is a
// round trip. Any failure drops the player from the server, after which the proxy stays
// silent and MakeMove answers droppedMove.
type RemotePlayer struct {
	server   *Server
	identity string
	token    string
	name     string
	opts     entity.Options
	dropped  atomic.Bool
}

func (that *RemotePlayer) Name() string {
	return that.name
}

func (that *RemotePlayer) Identity() string {
	return that.identity
}

// Dropped - reports whether the player has left the connected set.
func (that *RemotePlayer) Dropped() bool {
	return that.dropped.Load()
}

// SetOptions - board configuration announced by the next SetSign.
func (that *RemotePlayer) SetOptions(opts entity.Options) {
	that.opts = opts
}

func (that *RemotePlayer) SetSign(sign entity.Sign) {
	if that.Dropped() {
		return
	}

	if err := that.roundTrip(protocol.NewGameUpdate(sign, that.opts)); err != nil {
		that.fail(err)
	}
}

func (that *RemotePlayer) MakeMove(_ *entity.State) entity.Point {
	if that.Dropped() {
		return droppedMove
	}

	if err := that.server.send(that.identity, protocol.MoveRequestUpdate()); err != nil {
		that.fail(err)
		return droppedMove
	}

	response, err := that.server.await(that.identity, that.token)
	if err != nil {
		that.fail(err)
		return droppedMove
	}

	point, ok := response.Move()
	if !ok {
		that.fail(fmt.Errorf("%w: move response without coordinates", apperror.ErrProtocol))
		return droppedMove
	}

	return point
}

func (that *RemotePlayer) HandleEvent(_ *entity.State, event entity.Event) {
	if that.Dropped() {
		return
	}

	encoded, err := protocol.EncodeEvent(event)
	if err != nil {
		that.server.logger.Error("failed to encode event", "error", err)
		return
	}

	if err = that.roundTrip(protocol.EventUpdate(encoded)); err != nil {
		that.fail(err)
	}
}

func (that *RemotePlayer) roundTrip(message *protocol.ServerMessage) error {
	if err := that.server.send(that.identity, message); err != nil {
		return err
	}

	return that.server.awaitReady(that.identity, that.token)
}

func (that *RemotePlayer) fail(cause error) {
	that.server.removePlayer(that, cause, true)
}
