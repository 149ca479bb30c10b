package entity

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/jo/internal/core/scripting/state"
)

// Entity is anything the world can hold and put under script control.
type Entity interface {
	state.Collector
	ID() string
	Kind() string
	Position() mgl64.Vec2
}

// World keeps entities in insertion order. It is owned by the simulation
// goroutine and is not safe for concurrent use.
type World struct {
	order    []string
	entities map[string]Entity
	player   *Player
}

func NewWorld() *World {
	return &World{entities: make(map[string]Entity)}
}

func (w *World) Add(e Entity) error {
	if _, exists := w.entities[e.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID())
	}
	w.entities[e.ID()] = e
	w.order = append(w.order, e.ID())
	if p, ok := e.(*Player); ok && w.player == nil {
		w.player = p
	}
	return nil
}

func (w *World) Remove(id string) bool {
	e, ok := w.entities[id]
	if !ok {
		return false
	}
	delete(w.entities, id)
	for i, existing := range w.order {
		if existing == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	if e == Entity(w.player) {
		w.player = nil
	}
	return true
}

func (w *World) Get(id string) (Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// Player returns the first player added, or nil.
func (w *World) Player() *Player { return w.player }

func (w *World) Len() int { return len(w.order) }

func (w *World) Each(fn func(Entity)) {
	for _, id := range w.order {
		fn(w.entities[id])
	}
}
