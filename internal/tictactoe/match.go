package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/inarow-server/internal/apperror"
	"github.com/rocketscienceinc/inarow-server/internal/entity"
)

// Match - drives one game: asks bound players for moves and reports every transition to observers.
type Match struct {
	state     *entity.State
	observers Observers
	xPlayer   Player
	oPlayer   Player
}

func NewMatch(opts entity.Options) (*Match, error) {
	state, err := entity.NewState(opts)
	if err != nil {
		return nil, err
	}

	return &Match{state: state}, nil
}

func (that *Match) State() *entity.State {
	return that.state
}

func (that *Match) Player(sign entity.Sign) Player {
	switch sign {
	case entity.SignX:
		return that.xPlayer
	case entity.SignO:
		return that.oPlayer
	default:
		return nil
	}
}

// AddPlayer - binds a player to a side, replacing the previous one.
func (that *Match) AddPlayer(sign entity.Sign, player Player) error {
	slot := that.slot(sign)
	if slot == nil {
		return fmt.Errorf("%w: no side %q", apperror.ErrInvalidPlayers, sign)
	}

	if err := CheckObserver(player); err != nil {
		return err
	}

	if *slot == player {
		return nil
	}

	if *slot != nil {
		that.observers.Remove(*slot)
	}

	if player != nil {
		_ = that.observers.Add(player)
	}

	*slot = player

	return nil
}

// RemovePlayer - unbinds the side and returns the player that held it.
func (that *Match) RemovePlayer(sign entity.Sign) Player {
	slot := that.slot(sign)
	if slot == nil {
		return nil
	}

	player := *slot
	if player != nil {
		that.observers.Remove(player)
	}

	*slot = nil

	return player
}

func (that *Match) AddObserver(observer Observer) error {
	return that.observers.Add(observer)
}

func (that *Match) RemoveObserver(observer Observer) {
	that.observers.Remove(observer)
}

// Process - plays one move. The first call announces the players and starts the game.
func (that *Match) Process() entity.MoveResult {
	switch that.state.Status() {
	case entity.StatusEnded:
		return entity.ResultEnded
	case entity.StatusCreated:
		if that.xPlayer == nil || that.oPlayer == nil {
			return entity.ResultError
		}

		that.xPlayer.SetSign(entity.SignX)
		that.oPlayer.SetSign(entity.SignO)

		that.observers.HandleEvent(that.state, entity.PlayerJoined{Sign: entity.SignX, Name: that.xPlayer.Name()})
		that.observers.HandleEvent(that.state, entity.PlayerJoined{Sign: entity.SignO, Name: that.oPlayer.Name()})
		that.observers.HandleEvent(that.state, entity.GameStarted{})
	}

	sign := that.state.CurrentPlayer()

	player := that.Player(sign)
	if player == nil {
		return entity.ResultError
	}

	point := player.MakeMove(that.state)
	result := that.state.ProcessMove(sign, point.X, point.Y)

	that.observers.HandleEvent(that.state, entity.Move{X: point.X, Y: point.Y, Sign: sign})

	switch {
	case result == entity.ResultWin:
		that.observers.HandleEvent(that.state, entity.Win{Sign: that.state.Winner()})
	case result == entity.ResultDraw:
		that.observers.HandleEvent(that.state, entity.Draw{})
	case result.IsDisqualification():
		that.observers.HandleEvent(that.state, entity.Disqualified{Sign: sign, Reason: result})
	}

	return result
}

// Reset - restarts the game, bindings are kept.
func (that *Match) Reset() {
	that.state.Reset()
}

func (that *Match) slot(sign entity.Sign) *Player {
	switch sign {
	case entity.SignX:
		return &that.xPlayer
	case entity.SignO:
		return &that.oPlayer
	default:
		return nil
	}
}
