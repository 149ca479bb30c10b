package entity

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/jo/internal/core/scripting/state"
)

// Player is the listener. It has no script; it is registered so that behaviour
// scripts can read its position from the global binding of its id.
type Player struct {
	id        string
	pos       mgl64.Vec2
	direction mgl64.Vec2
	speed     float64
}

func NewPlayer(id string, pos mgl64.Vec2, speed float64) *Player {
	return &Player{
		id:        id,
		pos:       pos,
		direction: mgl64.Vec2{1, 0},
		speed:     speed,
	}
}

func (p *Player) ID() string { return p.id }

func (p *Player) Kind() string { return "player" }

func (p *Player) Position() mgl64.Vec2 { return p.pos }

func (p *Player) Direction() mgl64.Vec2 { return p.direction }

// Turn rotates the heading by angle radians.
func (p *Player) Turn(angle float64) {
	p.direction = mgl64.Rotate2D(angle).Mul2x1(p.direction).Normalize()
}

// Step walks the player dt seconds along its heading.
func (p *Player) Step(dt float64) {
	if p.speed == 0 || dt <= 0 {
		return
	}
	p.pos = p.pos.Add(p.direction.Mul(p.speed * dt))
}

// DistanceTo is the euclidean distance to other.
func (p *Player) DistanceTo(other mgl64.Vec2) float64 {
	return p.pos.Sub(other).Len()
}

// Bearing is the signed angle in radians between the heading and other, as
// used for stereo panning.
func (p *Player) Bearing(other mgl64.Vec2) float64 {
	to := other.Sub(p.pos)
	if to.Len() == 0 {
		return 0
	}
	return math.Atan2(p.direction.X()*to.Y()-p.direction.Y()*to.X(), p.direction.Dot(to))
}

func (p *Player) CollectState() state.Snapshot {
	return state.Snapshot{
		PositionKey: Vec2Value(p.pos),
		"direction": Vec2Value(p.direction),
	}
}

// ApplyState lets scripted teleports move the player.
func (p *Player) ApplyState(s state.Snapshot) {
	if v, ok := s[PositionKey]; ok {
		if pos, err := ParseVec2(v); err == nil {
			p.pos = pos
		}
	}
}
