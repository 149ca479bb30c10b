package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/jo/internal/core/scripting/engine"
)

const yamlConfig = `
log:
  level: debug
  encoding: console
engine:
  update_every: 5
  idle_interval: 250ms
scripts:
  paths: [scripts, extra]
  modules: [rolling, follower]
  inline:
    orbit: "function(object, params, tick) { return object; }"
runner:
  frame_rate: 30
  feed_addr: ":8089"
entities:
  - id: player
    kind: player
    x: 1
    y: 2
  - id: ball
    kind: mover
    script: rolling
    params:
      speed: 2
`

const tomlConfig = `
[engine]
update_every = 20
tick_offset = 3
idle_interval = "1s"

[scripts]
paths = ["scripts"]
modules = ["follower"]

[runner]
frame_rate = 120

[[entities]]
id = "dog"
kind = "mover"
script = "follow"
[entities.params]
target = "player"
`

func TestDecodeYAML(t *testing.T) {
	cfg, err := Decode([]byte(yamlConfig), ".yaml")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Encoding)
	assert.Equal(t, int64(5), cfg.Engine.UpdateEvery)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.IdleInterval)
	assert.Equal(t, engine.DefaultConfig().HopBuffer, cfg.Engine.HopBuffer)
	assert.Equal(t, []string{"scripts", "extra"}, cfg.Scripts.Paths)
	assert.Equal(t, []string{"orbit"}, cfg.Scripts.InlineNames())
	assert.Equal(t, 30, cfg.Runner.FrameRate)
	assert.Equal(t, 10*time.Second, cfg.Runner.StatsInterval)

	require.Len(t, cfg.Entities, 2)
	assert.Equal(t, KindPlayer, cfg.Entities[0].Kind)
	assert.Equal(t, 2.0, cfg.Entities[0].Y)
	assert.Equal(t, "rolling", cfg.Entities[1].Script)
	assert.EqualValues(t, 2, cfg.Entities[1].Params["speed"])
}

func TestDecodeTOML(t *testing.T) {
	cfg, err := Decode([]byte(tomlConfig), ".toml")
	require.NoError(t, err)

	assert.Equal(t, int64(20), cfg.Engine.UpdateEvery)
	assert.Equal(t, int64(3), cfg.Engine.TickOffset)
	assert.Equal(t, time.Second, cfg.Engine.IdleInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 120, cfg.Runner.FrameRate)
	require.Len(t, cfg.Entities, 1)
	assert.Equal(t, "player", cfg.Entities[0].Params["target"])
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jo.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8089", cfg.Runner.FeedAddr)

	_, err = Decode([]byte("{}"), ".json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"frame rate":      func(c *Config) { c.Runner.FrameRate = 0 },
		"negative period": func(c *Config) { c.Runner.Duration = -time.Second },
		"modules no path": func(c *Config) { c.Scripts.Paths = nil; c.Scripts.Modules = []string{"x"} },
		"empty inline":    func(c *Config) { c.Scripts.Inline = map[string]string{"x": " "} },
		"missing id":      func(c *Config) { c.Entities = []EntityConfig{{Kind: KindMover}} },
		"unknown kind":    func(c *Config) { c.Entities = []EntityConfig{{ID: "a", Kind: "tree"}} },
		"duplicate id": func(c *Config) {
			c.Entities = []EntityConfig{{ID: "a", Kind: KindMover}, {ID: "a", Kind: KindMover}}
		},
		"two players": func(c *Config) {
			c.Entities = []EntityConfig{{ID: "a", Kind: KindPlayer}, {ID: "b", Kind: KindPlayer}}
		},
	}
	for name, mutate := range cases {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	cfg := Default()
	cfg.Engine.UpdateEvery = -1
	assert.ErrorIs(t, cfg.Validate(), engine.ErrInvalidConfig)
	assert.NoError(t, Default().Validate())
}
