package entity

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/jo/internal/core/scripting/state"
)

const PositionKey = "pos"

// Mover is a sound source whose position is driven by a behaviour script.
// Keys a script adds to its object are kept and handed back on the next
// CollectState.
type Mover struct {
	id     string
	script string
	pos    mgl64.Vec2
	extra  map[string]any
}

func NewMover(id, script string, pos mgl64.Vec2) *Mover {
	return &Mover{
		id:     id,
		script: script,
		pos:    pos,
		extra:  make(map[string]any),
	}
}

func (m *Mover) ID() string { return m.id }

func (m *Mover) Kind() string { return "mover" }

func (m *Mover) Script() string { return m.script }

func (m *Mover) Position() mgl64.Vec2 { return m.pos }

func (m *Mover) CollectState() state.Snapshot {
	s := make(state.Snapshot, len(m.extra)+2)
	for k, v := range m.extra {
		s[k] = v
	}
	s[PositionKey] = Vec2Value(m.pos)
	if m.script != "" {
		s[state.ScriptKey] = m.script
	}
	return s
}

// ApplyState takes the position in any encoding ParseVec2 accepts. An
// unreadable position leaves the current one in place.
func (m *Mover) ApplyState(s state.Snapshot) {
	for k, v := range s {
		switch k {
		case PositionKey:
			if pos, err := ParseVec2(v); err == nil {
				m.pos = pos
			}
		case state.ScriptKey:
			if name, ok := v.(string); ok {
				m.script = name
			}
		default:
			m.extra[k] = v
		}
	}
}
