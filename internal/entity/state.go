package entity

import (
	"fmt"

	"github.com/rocketscienceinc/inarow-server/internal/apperror"
)

type Sign string

const (
	SignNone Sign = ""
	SignX    Sign = "X"
	SignO    Sign = "O"
)

// Opponent - returns the other side, SignNone for SignNone.
func (that Sign) Opponent() Sign {
	switch that {
	case SignX:
		return SignO
	case SignO:
		return SignX
	default:
		return SignNone
	}
}

type Status string

const (
	StatusCreated             Status = "created"
	StatusActive              Status = "active"
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusEnded               Status = "ended"
)

type MoveResult string

const (
	ResultOK              MoveResult = "ok"
	ResultDraw            MoveResult = "draw"
	ResultWin             MoveResult = "win"
	ResultEnded           MoveResult = "ended"
	ResultDQOutOfOrder    MoveResult = "dq_out_of_order"
	ResultDQOutOfField    MoveResult = "dq_out_of_field"
	ResultDQPlaceOccupied MoveResult = "dq_place_occupied"
	ResultError           MoveResult = "error"
)

func (that MoveResult) IsDisqualification() bool {
	return that == ResultDQOutOfOrder || that == ResultDQOutOfField || that == ResultDQPlaceOccupied
}

// IsTerminal - reports whether the result finishes the game loop.
func (that MoveResult) IsTerminal() bool {
	return that != ResultOK
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Options - match configuration. MaxMoves == 0 means rows*cols.
type Options struct {
	Rows      int `json:"rows"`
	Cols      int `json:"cols"`
	WinLength int `json:"win_length"`
	MaxMoves  int `json:"max_moves"`
}

func (that Options) Validate() error {
	switch {
	case that.Rows < 2 || that.Cols < 2:
		return fmt.Errorf("%w: board %dx%d, each side must be >= 2", apperror.ErrInvalidOptions, that.Cols, that.Rows)
	case that.WinLength < 2 || that.WinLength > min(that.Rows, that.Cols):
		return fmt.Errorf("%w: win length %d must be between 2 and %d",
			apperror.ErrInvalidOptions, that.WinLength, min(that.Rows, that.Cols))
	case that.MaxMoves < 0 || that.MaxMoves > that.Rows*that.Cols:
		return fmt.Errorf("%w: max moves %d must be between 0 and %d",
			apperror.ErrInvalidOptions, that.MaxMoves, that.Rows*that.Cols)
	}

	return nil
}

// withDefaults - fills MaxMoves when it is left at zero.
func (that Options) withDefaults() Options {
	if that.MaxMoves == 0 {
		that.MaxMoves = that.Rows * that.Cols
	}

	return that
}

var directions = [4]Point{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: -1}}

// State - board plus match progress. Mutated only through ProcessMove and Reset.
type State struct {
	opts Options

	board  *Board
	moveNo int
	status Status
	player Sign
	winner Sign
}

func NewState(opts Options) (*State, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	opts = opts.withDefaults()

	state := &State{
		opts:  opts,
		board: NewBoard(opts.Rows, opts.Cols),
	}
	state.Reset()

	return state, nil
}

// Reset - clears the board and progress, keeps the configuration.
func (that *State) Reset() {
	that.board.Reset()
	that.moveNo = 0
	that.player = SignX
	that.status = StatusCreated
	that.winner = SignNone
}

// ProcessMove - validates and applies one move.
func (that *State) ProcessMove(player Sign, x, y int) MoveResult {
	if that.status == StatusEnded {
		return ResultEnded
	}

	if player == SignNone {
		return ResultError
	}

	if player != that.player {
		return ResultDQOutOfOrder
	}

	if !that.board.Valid(x, y) {
		return ResultDQOutOfField
	}

	if that.board.Get(x, y) != SignNone {
		return ResultDQPlaceOccupied
	}

	that.board.Set(x, y, player)
	that.moveNo++
	that.player = player.Opponent()

	winning := that.isWinning(x, y)

	// this move answers a provisional win
	if that.status == StatusPendingConfirmation {
		that.status = StatusEnded
		if winning {
			return ResultDraw
		}

		that.winner = player.Opponent()

		return ResultWin
	}

	that.status = StatusActive

	if winning {
		if that.moveNo%2 == 0 || that.moveNo >= that.opts.MaxMoves {
			that.status = StatusEnded
			that.winner = player

			return ResultWin
		}

		that.status = StatusPendingConfirmation

		return ResultOK
	}

	if that.moveNo >= that.opts.MaxMoves {
		that.status = StatusEnded

		return ResultDraw
	}

	return ResultOK
}

func (that *State) Value(x, y int) Sign {
	return that.board.Get(x, y)
}

func (that *State) Status() Status {
	return that.status
}

// CurrentPlayer - side expected to move next.
func (that *State) CurrentPlayer() Sign {
	return that.player
}

func (that *State) MoveNo() int {
	return that.moveNo
}

// Options - configuration with MaxMoves already defaulted.
func (that *State) Options() Options {
	return that.opts
}

func (that *State) Winner() Sign {
	return that.winner
}

// isWinning - checks every window of WinLength cells through (x, y) in all four directions.
func (that *State) isWinning(x, y int) bool {
	length := that.opts.WinLength

	for _, dir := range directions {
		for start := 0; start < length; start++ {
			first := that.board.Get(x-dir.X*start, y-dir.Y*start)
			if first == SignNone {
				continue
			}

			complete := true
			for i := 1; i < length; i++ {
				dn := i - start
				if that.board.Get(x+dir.X*dn, y+dir.Y*dn) != first {
					complete = false
					break
				}
			}

			if complete {
				return true
			}
		}
	}

	return false
}
