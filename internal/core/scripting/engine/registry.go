package engine

import (
	"github.com/zeusync/jo/internal/core/scripting/state"
)

// Representation is the engine's record of one scripted entity. The owner is a
// non-owning handle: destroying the entity elsewhere only requires Unregister.
type Representation struct {
	id           string
	owner        state.Collector
	lastState    state.Snapshot
	activeScript string
}

func (r *Representation) ID() string { return r.id }

func (r *Representation) Owner() state.Collector { return r.owner }

// LastState is the last snapshot pushed by the owner or produced by a script.
// Callers must treat it as read-only.
func (r *Representation) LastState() state.Snapshot { return r.lastState }

// ActiveScript is fixed when the representation is created; "" means the
// entity is never updated automatically.
func (r *Representation) ActiveScript() string { return r.activeScript }

// registry keeps representations in registration order, which is also the
// order update records are built and applied in.
type registry struct {
	order   []string
	entries map[string]*Representation
}

func newRegistry() *registry {
	return &registry{
		entries: make(map[string]*Representation),
	}
}

// put stores rep, replacing an existing entry with the same id in place.
func (r *registry) put(rep *Representation) (replaced bool) {
	if _, exists := r.entries[rep.id]; exists {
		r.entries[rep.id] = rep
		return true
	}
	r.entries[rep.id] = rep
	r.order = append(r.order, rep.id)
	return false
}

func (r *registry) get(id string) (*Representation, bool) {
	rep, ok := r.entries[id]
	return rep, ok
}

func (r *registry) remove(id string) bool {
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *registry) each(fn func(*Representation)) {
	for _, id := range r.order {
		fn(r.entries[id])
	}
}

func (r *registry) len() int {
	return len(r.order)
}
