package entity

import "time"

const (
	KindPlayer   = "player"
	KindObserver = "observer"
)

// Participant - a network client accepted by the server.
type Participant struct {
	Token    string    `json:"token"`
	Identity string    `json:"identity"`
	Name     string    `json:"name,omitempty"`
	Kind     string    `json:"kind"`
	JoinedAt time.Time `json:"joined_at"`
}

func (that *Participant) IsPlayer() bool {
	return that.Kind == KindPlayer
}
