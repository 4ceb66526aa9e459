package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/inarow-server/internal/apperror"
	"github.com/rocketscienceinc/inarow-server/internal/entity"
)

type JoinType string

const (
	JoinPlayer   JoinType = "player"
	JoinObserver JoinType = "observer"
)

type RejectReason string

const (
	RejectWrongPassword    RejectReason = "wrong_password"
	RejectGameInProgress   RejectReason = "game_in_progress"
	RejectNameTaken        RejectReason = "name_taken"
	RejectMalformedMessage RejectReason = "malformed_message"
)

type ResponseType string

const (
	ResponseReady      ResponseType = "ready"
	ResponseDisconnect ResponseType = "disconnect"
)

type UpdateKind string

const (
	UpdateNewGame      UpdateKind = "new_game"
	UpdateMoveRequest  UpdateKind = "move_request"
	UpdateEvent        UpdateKind = "event"
	UpdatePing         UpdateKind = "ping"
	UpdateServerClosed UpdateKind = "server_closed"
)

// ClientMessage - everything a client sends. Exactly one member is set.
type ClientMessage struct {
	Join     *JoinRequest    `json:"join,omitempty"`
	Response *ClientResponse `json:"response,omitempty"`
}

// ServerMessage - everything the server sends. Exactly one member is set.
type ServerMessage struct {
	Join   *JoinResponse `json:"join,omitempty"`
	Update *Update       `json:"update,omitempty"`
}

type JoinRequest struct {
	Name     *string  `json:"name,omitempty"`
	Password *string  `json:"password,omitempty"`
	JoinType JoinType `json:"join_type"`
}

type JoinResponse struct {
	Accepted *Accepted `json:"accepted,omitempty"`
	Rejected *Rejected `json:"rejected,omitempty"`
}

// Accepted - TimeoutMs is the reply budget the client has to honor.
type Accepted struct {
	TimeoutMs int    `json:"timeout_ms"`
	Token     string `json:"token,omitempty"`
}

type Rejected struct {
	Reason RejectReason `json:"reason"`
}

type GameOptions struct {
	Rows      int `json:"rows"`
	Cols      int `json:"cols"`
	WinLength int `json:"win_length"`
	MaxMoves  int `json:"max_moves"`
}

// NewGame - Sign is SignNone for spectators.
type NewGame struct {
	Sign    Sign         `json:"sign"`
	Options *GameOptions `json:"options,omitempty"`
}

type Update struct {
	NewGame      *NewGame      `json:"new_game,omitempty"`
	MoveRequest  bool          `json:"move_request,omitempty"`
	Event        *EventMessage `json:"event,omitempty"`
	Ping         bool          `json:"ping,omitempty"`
	ServerClosed bool          `json:"server_closed,omitempty"`
}

// Kind - returns the single member of the update, an error when there are none or several.
func (that *Update) Kind() (UpdateKind, error) {
	var kinds []UpdateKind

	if that.NewGame != nil {
		kinds = append(kinds, UpdateNewGame)
	}
	if that.MoveRequest {
		kinds = append(kinds, UpdateMoveRequest)
	}
	if that.Event != nil {
		kinds = append(kinds, UpdateEvent)
	}
	if that.Ping {
		kinds = append(kinds, UpdatePing)
	}
	if that.ServerClosed {
		kinds = append(kinds, UpdateServerClosed)
	}

	if len(kinds) != 1 {
		return "", fmt.Errorf("%w: update carries %d members", apperror.ErrMalformedMessage, len(kinds))
	}

	return kinds[0], nil
}

// ClientResponse - reply to an update. Token echoes the one issued on acceptance.
type ClientResponse struct {
	Type  ResponseType `json:"type"`
	Token string       `json:"token,omitempty"`
	MoveX *int         `json:"move_x,omitempty"`
	MoveY *int         `json:"move_y,omitempty"`
}

// Move - returns the coordinates carried by the response, false when either is missing.
func (that *ClientResponse) Move() (entity.Point, bool) {
	if that.MoveX == nil || that.MoveY == nil {
		return entity.Point{}, false
	}

	return entity.Point{X: *that.MoveX, Y: *that.MoveY}, true
}

func NewPlayerJoin(name, password string) *ClientMessage {
	request := &JoinRequest{Name: &name, JoinType: JoinPlayer}
	if password != "" {
		request.Password = &password
	}

	return &ClientMessage{Join: request}
}

func NewObserverJoin(password string) *ClientMessage {
	request := &JoinRequest{JoinType: JoinObserver}
	if password != "" {
		request.Password = &password
	}

	return &ClientMessage{Join: request}
}

func Accept(timeoutMs int, token string) *ServerMessage {
	return &ServerMessage{Join: &JoinResponse{Accepted: &Accepted{TimeoutMs: timeoutMs, Token: token}}}
}

func Reject(reason RejectReason) *ServerMessage {
	return &ServerMessage{Join: &JoinResponse{Rejected: &Rejected{Reason: reason}}}
}

func NewGameUpdate(sign entity.Sign, opts entity.Options) *ServerMessage {
	return &ServerMessage{Update: &Update{NewGame: &NewGame{Sign: EncodeSign(sign), Options: EncodeOptions(opts)}}}
}

func MoveRequestUpdate() *ServerMessage {
	return &ServerMessage{Update: &Update{MoveRequest: true}}
}

func EventUpdate(event *EventMessage) *ServerMessage {
	return &ServerMessage{Update: &Update{Event: event}}
}

func PingUpdate() *ServerMessage {
	return &ServerMessage{Update: &Update{Ping: true}}
}

func ServerClosedUpdate() *ServerMessage {
	return &ServerMessage{Update: &Update{ServerClosed: true}}
}

func Ready(token string) *ClientMessage {
	return &ClientMessage{Response: &ClientResponse{Type: ResponseReady, Token: token}}
}

func MoveResponse(token string, point entity.Point) *ClientMessage {
	x, y := point.X, point.Y

	return &ClientMessage{Response: &ClientResponse{Type: ResponseReady, Token: token, MoveX: &x, MoveY: &y}}
}

func Disconnect(token string) *ClientMessage {
	return &ClientMessage{Response: &ClientResponse{Type: ResponseDisconnect, Token: token}}
}

// Marshal - encodes a protocol message for the wire.
func Marshal(message any) ([]byte, error) {
	payload, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return payload, nil
}

// UnmarshalClientMessage - decodes a client frame and checks that exactly one member is set.
func UnmarshalClientMessage(payload []byte) (*ClientMessage, error) {
	var message ClientMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err)
	}

	if (message.Join == nil) == (message.Response == nil) {
		return nil, fmt.Errorf("%w: client message must carry a join or a response", apperror.ErrMalformedMessage)
	}

	if message.Join != nil && message.Join.JoinType != JoinPlayer && message.Join.JoinType != JoinObserver {
		return nil, fmt.Errorf("%w: unknown join type %q", apperror.ErrMalformedMessage, message.Join.JoinType)
	}

	if message.Response != nil && message.Response.Type != ResponseReady && message.Response.Type != ResponseDisconnect {
		return nil, fmt.Errorf("%w: unknown response type %q", apperror.ErrMalformedMessage, message.Response.Type)
	}

	return &message, nil
}

// UnmarshalServerMessage - decodes a server frame and checks that exactly one member is set.
func UnmarshalServerMessage(payload []byte) (*ServerMessage, error) {
	var message ServerMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err)
	}

	if (message.Join == nil) == (message.Update == nil) {
		return nil, fmt.Errorf("%w: server message must carry a join response or an update", apperror.ErrMalformedMessage)
	}

	return &message, nil
}
