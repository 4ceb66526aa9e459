package remote

import (
	"github.com/rocketscienceinc/inarow-server/internal/entity"
	"github.com/rocketscienceinc/inarow-server/internal/protocol"
)

// RemoteObserver - fans the match out to every connected spectator. Each spectator gets
// its own round trip, a failing one is dropped without affecting the others.
type RemoteObserver struct {
	server *Server
}

// SetOptions - announces a new game to the spectators.
func (that *RemoteObserver) SetOptions(opts entity.Options) {
	that.broadcast(protocol.NewGameUpdate(entity.SignNone, opts))
}

func (that *RemoteObserver) HandleEvent(_ *entity.State, event entity.Event) {
	encoded, err := protocol.EncodeEvent(event)
	if err != nil {
		that.server.logger.Error("failed to encode event", "error", err)
		return
	}

	that.broadcast(protocol.EventUpdate(encoded))
}

func (that *RemoteObserver) broadcast(message *protocol.ServerMessage) {
	for _, observer := range that.server.observerSnapshot() {
		err := that.server.send(observer.identity, message)
		if err == nil {
			err = that.server.awaitReady(observer.identity, observer.token)
		}

		if err != nil {
			that.server.removeObserver(observer.identity, err)
		}
	}
}
