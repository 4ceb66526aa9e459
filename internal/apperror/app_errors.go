package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOptions  = errors.New("invalid game options")
	ErrInvalidPlayers  = errors.New("two distinct players are required")
	ErrInvalidObserver = errors.New("observer is not comparable")

	ErrServerClosed       = errors.New("server closed connection")
	ErrProtocol           = errors.New("protocol error")
	ErrMalformedMessage   = errors.New("malformed message")
	ErrResponseTimeout    = errors.New("response timeout")
	ErrClientDisconnected = errors.New("client disconnected")

	ErrJoinRejected = errors.New("join rejected")
)

// JoinRejectedError - join refusal with the reason reported by the server.
type JoinRejectedError struct {
	Reason string
}

func (that *JoinRejectedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrJoinRejected, that.Reason)
}

func (that *JoinRejectedError) Unwrap() error {
	return ErrJoinRejected
}
