package protocol

import (
	"fmt"

	"github.com/rocketscienceinc/inarow-server/internal/apperror"
	"github.com/rocketscienceinc/inarow-server/internal/entity"
)

type Sign string

const (
	SignNone Sign = "none"
	SignX    Sign = "x"
	SignO    Sign = "o"
)

type EventKind string

const (
	EventGameStarted  EventKind = "game_started"
	EventPlayerJoined EventKind = "player_joined"
	EventMove         EventKind = "move"
	EventWin          EventKind = "win"
	EventDraw         EventKind = "draw"
	EventDisqualified EventKind = "disqualified"
)

type DisqualificationReason string

const (
	ReasonOutOfField    DisqualificationReason = "out_of_field"
	ReasonOutOfOrder    DisqualificationReason = "out_of_order"
	ReasonPlaceOccupied DisqualificationReason = "place_occupied"
)

// EventMessage - wire form of entity.Event. Kind selects which fields are meaningful.
type EventMessage struct {
	Kind   EventKind              `json:"kind"`
	Sign   Sign                   `json:"sign,omitempty"`
	Name   string                 `json:"name,omitempty"`
	X      *int                   `json:"x,omitempty"`
	Y      *int                   `json:"y,omitempty"`
	Reason DisqualificationReason `json:"reason,omitempty"`
}

func EncodeSign(sign entity.Sign) Sign {
	switch sign {
	case entity.SignX:
		return SignX
	case entity.SignO:
		return SignO
	default:
		return SignNone
	}
}

// DecodeSign - unknown values decode to SignNone.
func DecodeSign(sign Sign) entity.Sign {
	switch sign {
	case SignX:
		return entity.SignX
	case SignO:
		return entity.SignO
	default:
		return entity.SignNone
	}
}

func EncodeOptions(opts entity.Options) *GameOptions {
	return &GameOptions{
		Rows:      opts.Rows,
		Cols:      opts.Cols,
		WinLength: opts.WinLength,
		MaxMoves:  opts.MaxMoves,
	}
}

func DecodeOptions(opts *GameOptions) (entity.Options, error) {
	if opts == nil {
		return entity.Options{}, fmt.Errorf("%w: missing game options", apperror.ErrMalformedMessage)
	}

	result := entity.Options{
		Rows:      opts.Rows,
		Cols:      opts.Cols,
		WinLength: opts.WinLength,
		MaxMoves:  opts.MaxMoves,
	}

	if err := result.Validate(); err != nil {
		return entity.Options{}, fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err)
	}

	return result, nil
}

func EncodeEvent(event entity.Event) (*EventMessage, error) {
	switch e := event.(type) {
	case entity.GameStarted:
		return &EventMessage{Kind: EventGameStarted}, nil
	case entity.PlayerJoined:
		return &EventMessage{Kind: EventPlayerJoined, Sign: EncodeSign(e.Sign), Name: e.Name}, nil
	case entity.Move:
		x, y := e.X, e.Y
		return &EventMessage{Kind: EventMove, Sign: EncodeSign(e.Sign), X: &x, Y: &y}, nil
	case entity.Win:
		return &EventMessage{Kind: EventWin, Sign: EncodeSign(e.Sign)}, nil
	case entity.Draw:
		return &EventMessage{Kind: EventDraw}, nil
	case entity.Disqualified:
		reason, err := encodeReason(e.Reason)
		if err != nil {
			return nil, err
		}

		return &EventMessage{Kind: EventDisqualified, Sign: EncodeSign(e.Sign), Reason: reason}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported event %T", apperror.ErrProtocol, event)
	}
}

func DecodeEvent(message *EventMessage) (entity.Event, error) {
	if message == nil {
		return nil, fmt.Errorf("%w: missing event", apperror.ErrMalformedMessage)
	}

	switch message.Kind {
	case EventGameStarted:
		return entity.GameStarted{}, nil
	case EventPlayerJoined:
		return entity.PlayerJoined{Sign: DecodeSign(message.Sign), Name: message.Name}, nil
	case EventMove:
		if message.X == nil || message.Y == nil {
			return nil, fmt.Errorf("%w: move event without coordinates", apperror.ErrMalformedMessage)
		}

		return entity.Move{X: *message.X, Y: *message.Y, Sign: DecodeSign(message.Sign)}, nil
	case EventWin:
		return entity.Win{Sign: DecodeSign(message.Sign)}, nil
	case EventDraw:
		return entity.Draw{}, nil
	case EventDisqualified:
		reason, err := decodeReason(message.Reason)
		if err != nil {
			return nil, err
		}

		return entity.Disqualified{Sign: DecodeSign(message.Sign), Reason: reason}, nil
	default:
		return nil, fmt.Errorf("%w: unknown event kind %q", apperror.ErrMalformedMessage, message.Kind)
	}
}

func encodeReason(result entity.MoveResult) (DisqualificationReason, error) {
	switch result {
	case entity.ResultDQOutOfField:
		return ReasonOutOfField, nil
	case entity.ResultDQOutOfOrder:
		return ReasonOutOfOrder, nil
	case entity.ResultDQPlaceOccupied:
		return ReasonPlaceOccupied, nil
	default:
		return "", fmt.Errorf("%w: %q is not a disqualification", apperror.ErrProtocol, result)
	}
}

func decodeReason(reason DisqualificationReason) (entity.MoveResult, error) {
	switch reason {
	case ReasonOutOfField:
		return entity.ResultDQOutOfField, nil
	case ReasonOutOfOrder:
		return entity.ResultDQOutOfOrder, nil
	case ReasonPlaceOccupied:
		return entity.ResultDQPlaceOccupied, nil
	default:
		return "", fmt.Errorf("%w: unknown disqualification reason %q", apperror.ErrMalformedMessage, reason)
	}
}
