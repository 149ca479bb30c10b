// Package engine runs entity behaviour scripts on a dedicated worker goroutine.
//
// The goroutine that creates the Engine is its owner. Register, Refresh,
// Unregister, Schedule, Tick, Pump, Serve and Shutdown must all be called from
// the owner, and every callback and post-update hook runs there too. The worker
// only ever talks to the owner through hops serviced by Pump, Serve or Shutdown.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/jo/internal/core/observability/log"
	"github.com/zeusync/jo/internal/core/scripting/interp"
	"github.com/zeusync/jo/internal/core/scripting/script"
	"github.com/zeusync/jo/internal/core/scripting/state"
)

type Config struct {
	// UpdateEvery is the number of ticks between update passes.
	UpdateEvery int64 `yaml:"update_every" toml:"update_every"`
	// TickOffset shifts which ticks are update ticks.
	TickOffset   int64         `yaml:"tick_offset" toml:"tick_offset"`
	IdleInterval time.Duration `yaml:"idle_interval" toml:"idle_interval"`
	HopBuffer    int           `yaml:"hop_buffer" toml:"hop_buffer"`
	NoiseSeed    int64         `yaml:"noise_seed" toml:"noise_seed"`
}

func DefaultConfig() Config {
	return Config{
		UpdateEvery:  10,
		TickOffset:   0,
		IdleInterval: 100 * time.Millisecond,
		HopBuffer:    1,
		NoiseSeed:    1,
	}
}

func (c Config) Validate() error {
	if c.UpdateEvery <= 0 {
		return fmt.Errorf("%w: update_every must be positive, got %d", ErrInvalidConfig, c.UpdateEvery)
	}
	if c.TickOffset < 0 {
		return fmt.Errorf("%w: tick_offset must not be negative, got %d", ErrInvalidConfig, c.TickOffset)
	}
	if c.IdleInterval <= 0 {
		return fmt.Errorf("%w: idle_interval must be positive, got %s", ErrInvalidConfig, c.IdleInterval)
	}
	if c.HopBuffer < 0 {
		return fmt.Errorf("%w: hop_buffer must not be negative, got %d", ErrInvalidConfig, c.HopBuffer)
	}
	return nil
}

type Engine struct {
	id      uuid.UUID
	cfg     Config
	logger  log.Log
	modules []interp.Module

	registry *registry
	queue    *queue
	onUpdate func(*Representation)

	hops      chan hop
	wake      chan struct{}
	wakeOnce  sync.Once
	abort     chan struct{}
	abortOnce sync.Once
	done      chan struct{}

	started  atomic.Bool
	shutdown atomic.Bool
	stats    stats
}

// New compiles sources and prepares an engine. A script that does not compile
// fails construction. The worker is not running until Start.
func New(cfg Config, sources []script.Source, logger log.Log) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}
	modules, err := interp.Compile(sources)
	if err != nil {
		return nil, fmt.Errorf("compile scripts: %w", err)
	}

	id := uuid.New()
	e := &Engine{
		id:       id,
		cfg:      cfg,
		logger:   logger.Named("engine").With(log.String("engine", id.String())),
		modules:  modules,
		registry: newRegistry(),
		queue:    newQueue(cfg.UpdateEvery, cfg.TickOffset),
		hops:     make(chan hop, cfg.HopBuffer),
		wake:     make(chan struct{}),
		abort:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	e.logger.Debug("Engine created",
		log.Int("scripts", len(modules)),
		log.Uint64("fingerprint", script.Fingerprint(sources)))
	return e, nil
}

func (e *Engine) ID() uuid.UUID { return e.id }

// Start launches the worker goroutine.
func (e *Engine) Start() error {
	if e.shutdown.Load() {
		return ErrShutdown
	}
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go e.run()
	return nil
}

// Register puts entity under script control as id. Registering an id twice
// replaces the earlier representation in place. An entity without a snapshot
// is ignored and nil is returned.
func (e *Engine) Register(id string, params state.Snapshot, entity state.Collector) *Representation {
	snapshot := entity.CollectState()
	if snapshot == nil {
		e.logger.Debug("Entity has no state, not registered", log.String("entity", id))
		return nil
	}
	lastState, err := snapshot.Clone()
	if err != nil {
		e.logger.Warn("Entity state is not serializable", log.String("entity", id), log.Error(err))
		return nil
	}
	var bound state.Snapshot
	if params != nil {
		if bound, err = params.Clone(); err != nil {
			e.logger.Warn("Entity params are not serializable", log.String("entity", id), log.Error(err))
			return nil
		}
	}

	rep := &Representation{
		id:           id,
		owner:        entity,
		lastState:    lastState,
		activeScript: lastState.Script(),
	}
	replaced := e.registry.put(rep)

	program := script.Program{script.Declare(id, lastState.MustClone())}
	if bound != nil {
		program = append(program, script.Declare(script.ParamsBinding(id), bound))
	}
	e.queue.schedule(program, nil)

	e.logger.Debug("Entity registered",
		log.String("entity", id),
		log.String("script", rep.activeScript),
		log.Bool("replaced", replaced))
	return rep
}

// Refresh pushes the current state of entity into the interpreter binding for
// id. Unknown ids and entities without a snapshot are ignored.
func (e *Engine) Refresh(id string, entity state.Collector) bool {
	rep, ok := e.registry.get(id)
	if !ok {
		return false
	}
	snapshot := entity.CollectState()
	if snapshot == nil {
		return false
	}
	lastState, err := snapshot.Clone()
	if err != nil {
		e.logger.Warn("Entity state is not serializable", log.String("entity", id), log.Error(err))
		return false
	}
	rep.lastState = lastState
	e.queue.schedule(script.Program{script.Assign(id, lastState.MustClone())}, nil)
	return true
}

// Unregister stops automatic updates for id. Interpreter bindings are left alone.
func (e *Engine) Unregister(id string) bool {
	removed := e.registry.remove(id)
	if removed {
		e.logger.Debug("Entity unregistered", log.String("entity", id))
	}
	return removed
}

// Representation returns the live representation registered under id.
func (e *Engine) Representation(id string) (*Representation, bool) {
	return e.registry.get(id)
}

func (e *Engine) Len() int {
	return e.registry.len()
}

// Schedule queues source for evaluation on the worker. cb may be nil; when it
// is not, it is called on the owner with the value of source.
func (e *Engine) Schedule(source string, cb Callback) Token {
	return e.ScheduleProgram(script.Program{script.Eval(source)}, cb)
}

func (e *Engine) ScheduleProgram(p script.Program, cb Callback) Token {
	return e.queue.schedule(p, cb)
}

// Tick advances the frame counter. Every UpdateEvery ticks the next retrieval
// carries an update record for each scripted entity.
func (e *Engine) Tick() {
	e.queue.advance()
	e.stats.ticks.Add(1)
}

// TickCount is the number of ticks so far.
func (e *Engine) TickCount() int64 {
	return e.queue.tick
}

// IsUpdateTick reports whether reaching tick makes an update pass due.
func (e *Engine) IsUpdateTick(tick int64) bool {
	return dueAt(tick, e.cfg.TickOffset, e.cfg.UpdateEvery)
}

// OnUpdate installs the hook called after a script update was applied.
// A later call replaces the hook; nil removes it.
func (e *Engine) OnUpdate(hook func(*Representation)) {
	e.onUpdate = hook
}

func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// RequestShutdown asks the worker to stop at its next retrieval. It is the
// only method that may be called from any goroutine.
func (e *Engine) RequestShutdown() {
	e.shutdown.Store(true)
	e.wakeOnce.Do(func() { close(e.wake) })
}

// Done is closed once the worker has exited.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Shutdown requests shutdown and keeps servicing hops until the worker exits.
// If ctx ends first the worker is abandoned and ctx.Err is returned.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.RequestShutdown()
	if !e.started.Load() {
		return nil
	}
	for {
		select {
		case h := <-e.hops:
			e.service(h)
		case <-e.done:
			e.logger.Info("Engine stopped", log.Int64("ticks", e.stats.ticks.Load()))
			return nil
		case <-ctx.Done():
			e.abortOnce.Do(func() { close(e.abort) })
			return ctx.Err()
		}
	}
}
