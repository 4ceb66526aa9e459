package remote

import (
	"fmt"

	"github.com/rocketscienceinc/inarow-server/internal/apperror"
	"github.com/rocketscienceinc/inarow-server/internal/entity"
	"github.com/rocketscienceinc/inarow-server/internal/metrics"
	"github.com/rocketscienceinc/inarow-server/internal/protocol"
)

// HandleBackgroundMessage - handles a frame nobody is waiting for: join requests and the
// Ready that confirms an accepted join. Late replies from connected clients are ignored.
func (that *Server) HandleBackgroundMessage(identity string, payload []byte) {
	that.dropOldPending()

	that.mu.Lock()
	client, isPending := that.pending[identity]
	if isPending {
		delete(that.pending, identity)
	}
	that.mu.Unlock()

	if isPending {
		that.confirmPending(identity, client, payload)
		return
	}

	log := that.logger.With("method", "HandleBackgroundMessage", "identity", identity)

	message, err := protocol.UnmarshalClientMessage(payload)
	connected := that.isConnected(identity)

	if err == nil && message.Join != nil {
		if connected {
			log.Warn("join from an already connected client")
			that.reject(identity, protocol.RejectMalformedMessage)

			return
		}

		that.handleJoin(identity, message.Join)

		return
	}

	if connected {
		log.Debug("ignoring late message from connected client")
		return
	}

	log.Warn("unexpected message from unknown client", "error", err)
	that.reject(identity, protocol.RejectMalformedMessage)
}

// dropOldPending - forgets joins that were accepted but never confirmed within the timeout.
func (that *Server) dropOldPending() {
	now := that.now()

	var expired []pendingClient

	that.mu.Lock()
	for identity, client := range that.pending {
		if now.Sub(client.joinedAt) > that.timeout {
			expired = append(expired, client)
			delete(that.pending, identity)
		}
	}
	that.mu.Unlock()

	for _, client := range expired {
		metrics.Drops.WithLabelValues(client.kind(), "unconfirmed").Inc()
		that.forget(client.token)
	}
}

func (that *Server) handleJoin(identity string, request *protocol.JoinRequest) {
	log := that.logger.With("method", "handleJoin", "identity", identity)

	that.mu.Lock()
	client, reason := that.admit(identity, request)
	that.mu.Unlock()

	if reason != "" {
		log.Info("join rejected", "join_type", request.JoinType, "reason", reason)
		that.reject(identity, reason)
		return
	}

	that.remember(&entity.Participant{
		Token:    client.token,
		Identity: identity,
		Name:     client.name,
		Kind:     string(request.JoinType),
		JoinedAt: client.joinedAt,
	})

	if err := that.send(identity, protocol.Accept(int(that.timeout.Milliseconds()), client.token)); err != nil {
		log.Warn("failed to accept join", "error", err)
		return
	}

	metrics.JoinsAccepted.WithLabelValues(string(request.JoinType)).Inc()
	log.Info("join accepted", "join_type", request.JoinType, "name", client.name)
}

// admit - decides on a join request and records the pending entry. Caller holds mu.
func (that *Server) admit(identity string, request *protocol.JoinRequest) (pendingClient, protocol.RejectReason) {
	if that.password != "" && (request.Password == nil || *request.Password != that.password) {
		return pendingClient{}, protocol.RejectWrongPassword
	}

	client := pendingClient{token: newToken(), joinedAt: that.now()}

	if request.JoinType == protocol.JoinObserver {
		if !that.acceptingObservers {
			return pendingClient{}, protocol.RejectGameInProgress
		}

		that.pending[identity] = client

		return client, ""
	}

	if !that.acceptingPlayers {
		return pendingClient{}, protocol.RejectGameInProgress
	}

	if request.Name == nil || *request.Name == "" {
		return pendingClient{}, protocol.RejectMalformedMessage
	}

	if that.nameTaken(*request.Name) {
		return pendingClient{}, protocol.RejectNameTaken
	}

	client.name = *request.Name
	that.pending[identity] = client

	return client, ""
}

// confirmPending - promotes an accepted client once it answers Ready.
func (that *Server) confirmPending(identity string, client pendingClient, payload []byte) {
	log := that.logger.With("method", "confirmPending", "identity", identity)

	kind := client.kind()

	message, err := protocol.UnmarshalClientMessage(payload)
	if err == nil && (message.Response == nil || message.Response.Type != protocol.ResponseReady) {
		err = fmt.Errorf("%w: expected ready", apperror.ErrProtocol)
	}

	if err == nil {
		token := message.Response.Token
		if token == "" {
			token = client.token
		}

		var participant *entity.Participant
		if participant, err = that.session(identity, token); err == nil && participant.Kind != kind {
			err = fmt.Errorf("%w: session is not a %s session", apperror.ErrProtocol, kind)
		}
	}

	if err != nil {
		log.Warn("join was not confirmed", "error", err)
		that.notifyClosed(identity)
		that.forget(client.token)

		return
	}

	that.mu.Lock()
	if client.name == "" {
		that.observers = append(that.observers, connectedObserver{identity: identity, token: client.token})
	} else {
		that.players = append(that.players, &RemotePlayer{
			server:   that,
			identity: identity,
			token:    client.token,
			name:     client.name,
		})
	}
	that.mu.Unlock()

	if client.name == "" {
		metrics.ConnectedObservers.Inc()
		log.Info("observer connected")
	} else {
		metrics.ConnectedPlayers.Inc()
		log.Info("player connected", "name", client.name)
	}
}

func (that *Server) reject(identity string, reason protocol.RejectReason) {
	metrics.JoinsRejected.WithLabelValues(string(reason)).Inc()

	if err := that.send(identity, protocol.Reject(reason)); err != nil {
		that.logger.Debug("failed to send rejection", "identity", identity, "error", err)
	}
}

// nameTaken - caller holds mu.
func (that *Server) nameTaken(name string) bool {
	for _, player := range that.players {
		if player.name == name {
			return true
		}
	}

	for _, client := range that.pending {
		if client.name == name {
			return true
		}
	}

	return false
}

func (that *Server) isConnected(identity string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, player := range that.players {
		if player.identity == identity {
			return true
		}
	}

	for _, observer := range that.observers {
		if observer.identity == identity {
			return true
		}
	}

	return false
}
