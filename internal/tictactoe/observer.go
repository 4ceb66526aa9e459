package tictactoe

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/rocketscienceinc/inarow-server/internal/apperror"
	"github.com/rocketscienceinc/inarow-server/internal/entity"
)

// Observer - receives every event of a match together with the current state.
type Observer interface {
	HandleEvent(state *entity.State, event entity.Event)
}

// Player - a participant able to move. A player observes its own game.
type Player interface {
	Observer

	SetSign(sign entity.Sign)
	MakeMove(state *entity.State) entity.Point
	Name() string
}

// CheckObserver - observers are told apart with ==, so their values must be comparable.
// A nil observer passes.
func CheckObserver(observer Observer) error {
	if observer == nil || reflect.ValueOf(observer).Comparable() {
		return nil
	}

	return fmt.Errorf("%w: %T", apperror.ErrInvalidObserver, observer)
}

// Observers - ordered set of observers. Observers must be comparable, usually pointers.
type Observers struct {
	mu        sync.Mutex
	observers []Observer
}

// Add - registers an observer once. Adding the same observer again is a no-op.
func (that *Observers) Add(observer Observer) error {
	if err := CheckObserver(observer); err != nil {
		return err
	}

	if observer == nil {
		return nil
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if !slices.Contains(that.observers, observer) {
		that.observers = append(that.observers, observer)
	}

	return nil
}

// Remove - unregisters an observer, absent observers are ignored.
func (that *Observers) Remove(observer Observer) {
	if observer == nil || CheckObserver(observer) != nil {
		return
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	that.observers = slices.DeleteFunc(that.observers, func(o Observer) bool {
		return o == observer
	})
}

func (that *Observers) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.observers)
}

// HandleEvent - delivers the event to a snapshot of the registered observers, so handlers may add or remove observers.
func (that *Observers) HandleEvent(state *entity.State, event entity.Event) {
	that.mu.Lock()
	snapshot := slices.Clone(that.observers)
	that.mu.Unlock()

	for _, observer := range snapshot {
		observer.HandleEvent(state, event)
	}
}
