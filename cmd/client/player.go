package main

import (
	"log/slog"

	"github.com/rocketscienceinc/inarow-server/internal/entity"
)

// eventLogger - logs every event of the watched game.
type eventLogger struct {
	logger *slog.Logger
}

func (that *eventLogger) HandleEvent(state *entity.State, event entity.Event) {
	switch event := event.(type) {
	case entity.GameStarted:
		opts := state.Options()
		that.logger.Info("game started", "rows", opts.Rows, "cols", opts.Cols, "win_length", opts.WinLength)
	case entity.PlayerJoined:
		that.logger.Info("player joined", "sign", event.Sign, "name", event.Name)
	case entity.Move:
		that.logger.Debug("move", "sign", event.Sign, "x", event.X, "y", event.Y, "move_no", state.MoveNo())
	case entity.Win:
		that.logger.Info("win", "sign", event.Sign, "moves", state.MoveNo())
	case entity.Draw:
		that.logger.Info("draw", "moves", state.MoveNo())
	case entity.Disqualified:
		that.logger.Info("disqualified", "sign", event.Sign, "reason", event.Reason)
	}
}

// autoPlayer - extends its longest line when it can, otherwise takes the free cell closest to the center.
type autoPlayer struct {
	name   string
	sign   entity.Sign
	events *eventLogger
}

func (that *autoPlayer) Name() string {
	return that.name
}

func (that *autoPlayer) SetSign(sign entity.Sign) {
	that.sign = sign
	that.events.logger.Info("playing", "sign", sign)
}

func (that *autoPlayer) HandleEvent(state *entity.State, event entity.Event) {
	that.events.HandleEvent(state, event)
}

func (that *autoPlayer) MakeMove(state *entity.State) entity.Point {
	opts := state.Options()

	best := entity.Point{X: -1, Y: -1}
	bestScore := -1

	for x := 0; x < opts.Cols; x++ {
		for y := 0; y < opts.Rows; y++ {
			if state.Value(x, y) != entity.SignNone {
				continue
			}

			own := lineThrough(state, x, y, that.sign)
			theirs := lineThrough(state, x, y, that.sign.Opponent())

			score := 4*max(own, theirs) + centrality(opts, x, y)
			if score > bestScore {
				best, bestScore = entity.Point{X: x, Y: y}, score
			}
		}
	}

	return best
}

var directions = [4]entity.Point{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: -1}}

// lineThrough - longest line of sign that a mark at (x, y) would join.
func lineThrough(state *entity.State, x, y int, sign entity.Sign) int {
	if sign == entity.SignNone {
		return 0
	}

	longest := 0

	for _, dir := range directions {
		length := 1
		for _, step := range [2]int{1, -1} {
			for i := 1; state.Value(x+dir.X*i*step, y+dir.Y*i*step) == sign; i++ {
				length++
			}
		}

		longest = max(longest, length)
	}

	return longest
}

// centrality - larger for cells nearer the middle, always below 4.
func centrality(opts entity.Options, x, y int) int {
	dx := abs(2*x - (opts.Cols - 1))
	dy := abs(2*y - (opts.Rows - 1))

	return 3 * (opts.Cols + opts.Rows - dx - dy) / (opts.Cols + opts.Rows)
}

func abs(value int) int {
	if value < 0 {
		return -value
	}

	return value
}
