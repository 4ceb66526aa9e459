package entity

import (
	"testing"

	"github.com/rocketscienceinc/inarow-server/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type move struct {
	sign Sign
	x, y int
}

func newTestState(t *testing.T, opts Options) *State {
	t.Helper()

	state, err := NewState(opts)
	require.NoError(t, err)

	return state
}

// playAll - plays moves and returns every result.
func playAll(state *State, moves ...move) []MoveResult {
	results := make([]MoveResult, 0, len(moves))
	for _, m := range moves {
		results = append(results, state.ProcessMove(m.sign, m.x, m.y))
	}

	return results
}

func TestNewState(t *testing.T) {
	t.Run("Starts in created state with X to move", func(t *testing.T) {
		// When: creating a state for a 5x5 board
		state := newTestState(t, Options{Rows: 5, Cols: 5, WinLength: 3})

		// Then: nothing is played yet and the move cap defaults to the cell count
		assert.Equal(t, StatusCreated, state.Status())
		assert.Equal(t, SignX, state.CurrentPlayer())
		assert.Equal(t, SignNone, state.Winner())
		assert.Equal(t, 0, state.MoveNo())
		assert.Equal(t, 25, state.Options().MaxMoves)
	})

	t.Run("Keeps an explicit move cap", func(t *testing.T) {
		state := newTestState(t, Options{Rows: 5, Cols: 5, WinLength: 3, MaxMoves: 7})

		assert.Equal(t, 7, state.Options().MaxMoves)
	})

	t.Run("Rejects invalid options", func(t *testing.T) {
		cases := map[string]Options{
			"too few rows":         {Rows: 1, Cols: 5, WinLength: 2},
			"win length too long":  {Rows: 3, Cols: 5, WinLength: 4},
			"win length too short": {Rows: 3, Cols: 3, WinLength: 1},
			"negative move cap":    {Rows: 3, Cols: 3, WinLength: 3, MaxMoves: -1},
			"move cap too big":     {Rows: 3, Cols: 3, WinLength: 3, MaxMoves: 10},
		}

		for name, opts := range cases {
			t.Run(name, func(t *testing.T) {
				// When: creating a state with invalid options
				state, err := NewState(opts)

				// Then: a configuration error is returned
				require.ErrorIs(t, err, apperror.ErrInvalidOptions)
				assert.Nil(t, state)
			})
		}
	})
}

func TestState_ProcessMove_Lines(t *testing.T) {
	// X moves never line up in these cases, O completes its line on move 6 (even move count).
	cases := map[string][]move{
		"horizontal": {
			{SignX, 0, 0}, {SignO, 0, 2}, {SignX, 4, 0}, {SignO, 1, 2}, {SignX, 2, 4}, {SignO, 2, 2},
		},
		"vertical": {
			{SignX, 0, 0}, {SignO, 3, 1}, {SignX, 4, 0}, {SignO, 3, 2}, {SignX, 0, 4}, {SignO, 3, 3},
		},
		"diagonal": {
			{SignX, 0, 0}, {SignO, 1, 1}, {SignX, 4, 0}, {SignO, 2, 2}, {SignX, 0, 4}, {SignO, 3, 3},
		},
		"anti-diagonal": {
			{SignX, 0, 0}, {SignO, 3, 1}, {SignX, 4, 4}, {SignO, 2, 2}, {SignX, 0, 2}, {SignO, 1, 3},
		},
		"gap filled in the middle": {
			{SignX, 0, 0}, {SignO, 0, 2}, {SignX, 4, 0}, {SignO, 2, 2}, {SignX, 2, 4}, {SignO, 1, 2},
		},
	}

	for name, moves := range cases {
		t.Run(name, func(t *testing.T) {
			// Given: a 5x5 board with win length 3
			state := newTestState(t, Options{Rows: 5, Cols: 5, WinLength: 3})

			// When: the moves are played
			results := playAll(state, moves...)

			// Then: only the last move wins, immediately, because it is an even move
			for i, result := range results[:len(results)-1] {
				require.Equal(t, ResultOK, result, "move %d", i+1)
			}
			assert.Equal(t, ResultWin, results[len(results)-1])
			assert.Equal(t, StatusEnded, state.Status())
			assert.Equal(t, SignO, state.Winner())
		})
	}
}

func TestState_ProcessMove_Draw(t *testing.T) {
	t.Run("Draw when the board fills without a line", func(t *testing.T) {
		// Given: a classic 3x3 board
		state := newTestState(t, Options{Rows: 3, Cols: 3, WinLength: 3})

		// When: nine moves are played that never form a line
		results := playAll(state,
			move{SignX, 0, 0}, move{SignO, 1, 0}, move{SignX, 2, 0},
			move{SignO, 1, 1}, move{SignX, 0, 1}, move{SignO, 2, 1},
			move{SignX, 1, 2}, move{SignO, 0, 2}, move{SignX, 2, 2},
		)

		// Then: only the last move ends the game, as a draw
		for _, result := range results[:8] {
			require.Equal(t, ResultOK, result)
		}
		assert.Equal(t, ResultDraw, results[8])
		assert.Equal(t, StatusEnded, state.Status())
		assert.Equal(t, SignNone, state.Winner())
	})

	t.Run("Draw when the move cap is reached", func(t *testing.T) {
		// Given: a 5x5 board capped at 4 moves
		state := newTestState(t, Options{Rows: 5, Cols: 5, WinLength: 3, MaxMoves: 4})

		// When: four moves without a line are played
		results := playAll(state, move{SignX, 0, 0}, move{SignO, 4, 4}, move{SignX, 2, 0}, move{SignO, 4, 2})

		// Then: the fourth move ends the game
		assert.Equal(t, []MoveResult{ResultOK, ResultOK, ResultOK, ResultDraw}, results)
		assert.Equal(t, StatusEnded, state.Status())
		assert.Equal(t, ResultEnded, state.ProcessMove(SignX, 1, 1))
	})
}

func TestState_ProcessMove_Confirmation(t *testing.T) {
	opening := []move{{SignX, 0, 0}, {SignO, 0, 1}, {SignX, 1, 1}, {SignO, 1, 2}, {SignX, 2, 2}}

	t.Run("Line on an odd move waits for confirmation", func(t *testing.T) {
		// Given: a 5x5 board with win length 3
		state := newTestState(t, Options{Rows: 5, Cols: 5, WinLength: 3})

		// When: X completes the diagonal on move 5
		results := playAll(state, opening...)

		// Then: the win is provisional
		assert.Equal(t, ResultOK, results[4])
		assert.Equal(t, StatusPendingConfirmation, state.Status())
		assert.Equal(t, SignNone, state.Winner())
		assert.Equal(t, SignO, state.CurrentPlayer())
	})

	t.Run("Confirmation move without a line confirms the win", func(t *testing.T) {
		// Given: X holds a provisional win
		state := newTestState(t, Options{Rows: 5, Cols: 5, WinLength: 3})
		playAll(state, opening...)

		// When: O answers without completing a line
		result := state.ProcessMove(SignO, 4, 4)

		// Then: X wins
		assert.Equal(t, ResultWin, result)
		assert.Equal(t, StatusEnded, state.Status())
		assert.Equal(t, SignX, state.Winner())
		assert.Equal(t, 6, state.MoveNo())
	})

	t.Run("Confirmation move with a line is a draw", func(t *testing.T) {
		// Given: X holds a provisional win
		state := newTestState(t, Options{Rows: 5, Cols: 5, WinLength: 3})
		playAll(state, opening...)

		// When: O completes the diagonal (0,1)-(1,2)-(2,3)
		result := state.ProcessMove(SignO, 2, 3)

		// Then: the game is drawn
		assert.Equal(t, ResultDraw, result)
		assert.Equal(t, StatusEnded, state.Status())
		assert.Equal(t, SignNone, state.Winner())
	})

	t.Run("Line on the last possible odd move wins immediately", func(t *testing.T) {
		// Given: a 3x3 board capped at 5 moves
		state := newTestState(t, Options{Rows: 3, Cols: 3, WinLength: 3, MaxMoves: 5})

		// When: X completes the top row on move 5
		results := playAll(state,
			move{SignX, 0, 0}, move{SignO, 0, 1}, move{SignX, 1, 0}, move{SignO, 1, 1}, move{SignX, 2, 0},
		)

		// Then: no grace move is available, X wins at once
		assert.Equal(t, ResultWin, results[4])
		assert.Equal(t, StatusEnded, state.Status())
		assert.Equal(t, SignX, state.Winner())
	})
}

func TestState_ProcessMove_Disqualification(t *testing.T) {
	cases := []struct {
		name     string
		move     move
		expected MoveResult
	}{
		{name: "out of order", move: move{SignO, 2, 2}, expected: ResultDQOutOfOrder},
		{name: "negative coordinate", move: move{SignX, -1, 0}, expected: ResultDQOutOfField},
		{name: "beyond the board", move: move{SignX, 0, 3}, expected: ResultDQOutOfField},
		{name: "occupied cell", move: move{SignX, 1, 1}, expected: ResultDQPlaceOccupied},
		{name: "no side", move: move{SignNone, 2, 2}, expected: ResultError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Given: a game after X(0,0) and O(1,1)
			state := newTestState(t, Options{Rows: 3, Cols: 3, WinLength: 3})
			playAll(state, move{SignX, 0, 0}, move{SignO, 1, 1})

			// When: the invalid move is played
			result := state.ProcessMove(tc.move.sign, tc.move.x, tc.move.y)

			// Then: it is reported and the board is untouched
			assert.Equal(t, tc.expected, result)
			assert.Equal(t, 2, state.MoveNo())
			assert.Equal(t, SignX, state.CurrentPlayer())
			assert.Equal(t, SignX, state.Value(0, 0))
			assert.Equal(t, SignO, state.Value(1, 1))
			assert.Equal(t, SignNone, state.Value(2, 2))
		})
	}
}

func TestState_Reset(t *testing.T) {
	// Given: a finished game
	state := newTestState(t, Options{Rows: 3, Cols: 3, WinLength: 2})
	playAll(state, move{SignX, 0, 0}, move{SignO, 2, 2}, move{SignX, 1, 0}, move{SignO, 2, 0})
	require.Equal(t, StatusEnded, state.Status())

	// When: reset
	state.Reset()

	// Then: progress is cleared and the configuration kept
	assert.Equal(t, StatusCreated, state.Status())
	assert.Equal(t, 0, state.MoveNo())
	assert.Equal(t, SignX, state.CurrentPlayer())
	assert.Equal(t, SignNone, state.Winner())
	assert.Equal(t, Options{Rows: 3, Cols: 3, WinLength: 2, MaxMoves: 9}, state.Options())
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			require.Equal(t, SignNone, state.Value(x, y))
		}
	}
}
