package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"off":     LevelSilent,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
	assert.Equal(t, "warn", LevelWarn.String())
}

func TestFieldsReachZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.Named("engine").With(String("engine", "e1")).Info("Entity registered",
		String("entity", "npc"),
		Int("count", 2),
		Int64("tick", 10),
		Uint64("checksum", 7),
		Bool("replaced", false),
		Float64("x", 1.5),
		Duration("idle", time.Second),
		Strings("paths", []string{"scripts"}),
		Error(errors.New("boom")),
		Any("extra", map[string]int{"a": 1}),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Entity registered", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "engine", ctx["component"])
	assert.Equal(t, "e1", ctx["engine"])
	assert.Equal(t, "npc", ctx["entity"])
	assert.Equal(t, int64(10), ctx["tick"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestSetLevelFilters(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.SetLevel(LevelWarn)
	assert.Equal(t, LevelWarn, l.GetLevel())
	l.Info("dropped")
	l.Warn("kept")
	l.SetLevel(LevelSilent)
	l.Error("dropped too")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
}

func TestNewWithConfigRejectsBadOutput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output = []string{"/nonexistent-dir/for/sure/log.txt"}
	_, err := NewWithConfig(cfg)
	assert.Error(t, err)
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	l.Error("nothing happens")
	assert.Equal(t, LevelSilent, l.GetLevel())
}
