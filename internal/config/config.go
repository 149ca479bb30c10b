// Package config holds the runner configuration. Files are YAML or TOML,
// chosen by extension, and are decoded over Default so omitted keys keep
// their default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/jo/internal/core/observability/log"
	"github.com/zeusync/jo/internal/core/scripting/engine"
)

const (
	KindMover  = "mover"
	KindPlayer = "player"
)

type Config struct {
	Log      log.Config     `yaml:"log" toml:"log"`
	Engine   engine.Config  `yaml:"engine" toml:"engine"`
	Scripts  Scripts        `yaml:"scripts" toml:"scripts"`
	Runner   Runner         `yaml:"runner" toml:"runner"`
	Entities []EntityConfig `yaml:"entities" toml:"entities"`
}

// Scripts lists behaviour modules to load from Paths and inline function
// expressions keyed by the name they are bound under.
type Scripts struct {
	Paths   []string          `yaml:"paths" toml:"paths"`
	Modules []string          `yaml:"modules" toml:"modules"`
	Inline  map[string]string `yaml:"inline" toml:"inline"`
}

type Runner struct {
	FrameRate int    `yaml:"frame_rate" toml:"frame_rate"`
	FeedAddr  string `yaml:"feed_addr" toml:"feed_addr"`
	// Duration stops the runner after this long; zero runs until a signal.
	Duration time.Duration `yaml:"duration" toml:"duration"`
	// StatsInterval is how often engine counters are logged; zero disables it.
	StatsInterval time.Duration `yaml:"stats_interval" toml:"stats_interval"`
}

// EntityConfig describes an entity the headless runner spawns.
type EntityConfig struct {
	ID     string         `yaml:"id" toml:"id"`
	Kind   string         `yaml:"kind" toml:"kind"`
	Script string         `yaml:"script" toml:"script"`
	X      float64        `yaml:"x" toml:"x"`
	Y      float64        `yaml:"y" toml:"y"`
	Params map[string]any `yaml:"params" toml:"params"`
}

func Default() *Config {
	return &Config{
		Log:    log.DefaultConfig(),
		Engine: engine.DefaultConfig(),
		Scripts: Scripts{
			Paths: []string{"scripts"},
		},
		Runner: Runner{
			FrameRate:     60,
			StatsInterval: 10 * time.Second,
		},
	}
}

// Load reads path and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses data in the format named by ext (".yaml", ".yml" or ".toml").
func Decode(data []byte, ext string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if c.Runner.FrameRate <= 0 {
		return fmt.Errorf("%w: runner.frame_rate must be positive, got %d", ErrInvalid, c.Runner.FrameRate)
	}
	if c.Runner.Duration < 0 || c.Runner.StatsInterval < 0 {
		return fmt.Errorf("%w: runner durations must not be negative", ErrInvalid)
	}
	if len(c.Scripts.Modules) > 0 && len(c.Scripts.Paths) == 0 {
		return fmt.Errorf("%w: scripts.modules given without scripts.paths", ErrInvalid)
	}
	for name, code := range c.Scripts.Inline {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(code) == "" {
			return fmt.Errorf("%w: inline script %q is empty", ErrInvalid, name)
		}
	}

	seen := make(map[string]struct{}, len(c.Entities))
	players := 0
	for i, e := range c.Entities {
		if e.ID == "" {
			return fmt.Errorf("%w: entities[%d] has no id", ErrInvalid, i)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: duplicate entity id %q", ErrInvalid, e.ID)
		}
		seen[e.ID] = struct{}{}
		switch e.Kind {
		case KindMover:
		case KindPlayer:
			players++
		default:
			return fmt.Errorf("%w: entity %q has unknown kind %q", ErrInvalid, e.ID, e.Kind)
		}
	}
	if players > 1 {
		return fmt.Errorf("%w: at most one player entity, got %d", ErrInvalid, players)
	}
	return nil
}

// InlineNames returns the inline script names in a stable order.
func (s Scripts) InlineNames() []string {
	names := make([]string, 0, len(s.Inline))
	for name := range s.Inline {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
