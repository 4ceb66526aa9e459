package entity

// Event - one state transition of a match. Consumers switch on the concrete type.
type Event interface {
	isEvent()
}

type GameStarted struct{}

type PlayerJoined struct {
	Sign Sign
	Name string
}

type Move struct {
	X    int
	Y    int
	Sign Sign
}

type Win struct {
	Sign Sign
}

type Draw struct{}

// Disqualified - Reason is one of the ResultDQ* results.
type Disqualified struct {
	Sign   Sign
	Reason MoveResult
}

func (GameStarted) isEvent()  {}
func (PlayerJoined) isEvent() {}
func (Move) isEvent()         {}
func (Win) isEvent()          {}
func (Draw) isEvent()         {}
func (Disqualified) isEvent() {}
