package entity

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/jo/internal/core/scripting/state"
)

func TestParseVec2(t *testing.T) {
	cases := []struct {
		in   any
		want mgl64.Vec2
	}{
		{map[string]any{"x": 1.5, "y": -2.0}, mgl64.Vec2{1.5, -2}},
		{map[string]any{"x": 3, "y": 4}, mgl64.Vec2{3, 4}},
		{"2.5;7", mgl64.Vec2{2.5, 7}},
		{" 1 ; 2 ", mgl64.Vec2{1, 2}},
		{[]any{1.0, 2.0}, mgl64.Vec2{1, 2}},
		{mgl64.Vec2{9, 9}, mgl64.Vec2{9, 9}},
	}
	for _, c := range cases {
		got, err := ParseVec2(c.in)
		require.NoError(t, err, "%v", c.in)
		assert.Equal(t, c.want, got)
	}

	for _, bad := range []any{nil, 3.0, "1;2;3", "a;b", map[string]any{"x": 1.0}, []any{1.0}} {
		_, err := ParseVec2(bad)
		assert.ErrorIs(t, err, ErrBadVector, "%v", bad)
	}
}

func TestFormatVec2RoundTrips(t *testing.T) {
	v := mgl64.Vec2{5.108049841353322, -0.916634548137417}
	got, err := ParseVec2(FormatVec2(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestMoverState(t *testing.T) {
	m := NewMover("ball", "rolling", mgl64.Vec2{1, 2})
	assert.Equal(t, state.Snapshot{
		"pos":    map[string]any{"x": 1.0, "y": 2.0},
		"script": "rolling",
	}, m.CollectState())

	m.ApplyState(state.Snapshot{"pos": "3;4", "angle": 1.1, "script": "rolling"})
	assert.Equal(t, mgl64.Vec2{3, 4}, m.Position())

	m.ApplyState(state.Snapshot{"pos": map[string]any{"x": 5.0, "y": 6.0}})
	assert.Equal(t, mgl64.Vec2{5, 6}, m.Position())

	m.ApplyState(state.Snapshot{"pos": "garbage"})
	assert.Equal(t, mgl64.Vec2{5, 6}, m.Position())

	collected := m.CollectState()
	assert.Equal(t, 1.1, collected["angle"])
	assert.Equal(t, "rolling", collected.Script())
}

func TestUnscriptedMoverHasNoScriptKey(t *testing.T) {
	m := NewMover("rock", "", mgl64.Vec2{})
	_, ok := m.CollectState()[state.ScriptKey]
	assert.False(t, ok)
}

func TestPlayerMovement(t *testing.T) {
	p := NewPlayer("player", mgl64.Vec2{0, 0}, 2)
	p.Step(0.5)
	assert.InDelta(t, 1.0, p.Position().X(), 1e-9)

	p.Turn(math.Pi / 2)
	p.Step(1)
	assert.InDelta(t, 1.0, p.Position().X(), 1e-9)
	assert.InDelta(t, 2.0, p.Position().Y(), 1e-9)

	assert.InDelta(t, 2.0, p.DistanceTo(mgl64.Vec2{1, 0}), 1e-9)

	p.ApplyState(state.Snapshot{"pos": "10;10"})
	assert.Equal(t, mgl64.Vec2{10, 10}, p.Position())
	assert.Contains(t, p.CollectState(), "direction")
}

func TestPlayerBearing(t *testing.T) {
	p := NewPlayer("player", mgl64.Vec2{}, 1)
	assert.InDelta(t, math.Pi/2, p.Bearing(mgl64.Vec2{0, 1}), 1e-9)
	assert.InDelta(t, -math.Pi/2, p.Bearing(mgl64.Vec2{0, -1}), 1e-9)
	assert.InDelta(t, 0, p.Bearing(mgl64.Vec2{3, 0}), 1e-9)
	assert.Equal(t, 0.0, p.Bearing(mgl64.Vec2{}))
}

func TestWorld(t *testing.T) {
	w := NewWorld()
	player := NewPlayer("player", mgl64.Vec2{}, 1)
	require.NoError(t, w.Add(NewMover("b", "rolling", mgl64.Vec2{})))
	require.NoError(t, w.Add(player))
	require.NoError(t, w.Add(NewMover("a", "follower", mgl64.Vec2{})))
	assert.ErrorIs(t, w.Add(NewMover("a", "", mgl64.Vec2{})), ErrDuplicateID)

	var ids []string
	w.Each(func(e Entity) { ids = append(ids, e.ID()) })
	assert.Equal(t, []string{"b", "player", "a"}, ids)
	assert.Same(t, player, w.Player())

	assert.True(t, w.Remove("player"))
	assert.False(t, w.Remove("player"))
	assert.Nil(t, w.Player())
	assert.Equal(t, 2, w.Len())

	e, ok := w.Get("a")
	require.True(t, ok)
	assert.Equal(t, "mover", e.Kind())
}
