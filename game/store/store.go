// Package store holds the client's last-known view of shared game state as
// observable cells.
//
// A Cell is set only by the connection manager (connected) and the message
// router (gameState). UIs subscribe and re-render on every change instead of
// polling. Every Set replaces the whole value; there are no partial updates.
package store

import (
	"sync"

	"github.com/wricardo/scribble-client/game/protocol"
)

// Cell is a goroutine-safe observable value.
type Cell[T any] struct {
	mu        sync.Mutex
	value     T
	observers []*observer[T]
}

type observer[T any] struct {
	fn func(T)
}

// NewCell creates a cell holding initial
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial}
}

// Get returns the current value
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set replaces the value and notifies every current observer, in
// registration order, before returning. Observers run without the cell lock
// held, so they may read the cell or unsubscribe.
func (c *Cell[T]) Set(value T) {
	c.mu.Lock()
	c.value = value
	observers := make([]*observer[T], len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, o := range observers {
		o.fn(value)
	}
}

// Subscribe registers fn, calls it at once with the current value and again
// after every Set. The returned func unregisters fn; callers must call it
// when they are torn down. Calling it more than once is harmless.
func (c *Cell[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o := &observer[T]{fn: fn}

	c.mu.Lock()
	c.observers = append(c.observers, o)
	current := c.value
	c.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() { c.remove(o) })
	}
}

// Observers reports how many observers are registered
func (c *Cell[T]) Observers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers)
}

func (c *Cell[T]) remove(o *observer[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.observers {
		if existing == o {
			c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
			return
		}
	}
}

// StateStore groups the two process-wide cells. Create one at startup and
// pass it to the manager, the router and the UI surfaces.
type StateStore struct {
	Connected *Cell[bool]
	GameState *Cell[protocol.GameStateData]
}

// NewStateStore returns a store with connected=false and an empty game.
func NewStateStore() *StateStore {
	return &StateStore{
		Connected: NewCell(false),
		GameState: NewCell(protocol.InitialGameState()),
	}
}
