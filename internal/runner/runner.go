// Package runner drives a headless simulation: a world of entities, a frame
// loop on the calling goroutine and the scripting engine serviced from it.
package runner

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/jo/internal/config"
	"github.com/zeusync/jo/internal/core/events/bus"
	"github.com/zeusync/jo/internal/core/observability/log"
	"github.com/zeusync/jo/internal/core/scripting/engine"
	"github.com/zeusync/jo/internal/core/scripting/state"
	"github.com/zeusync/jo/internal/entity"
	"github.com/zeusync/jo/internal/feed"
)

const (
	source          = "runner"
	playerSpeed     = 1.5
	playerTurnRate  = 0.25
	shutdownTimeout = 5 * time.Second
)

type Runner struct {
	cfg    config.Runner
	engine *engine.Engine
	world  *entity.World
	bus    bus.EventBus
	feed   *feed.Server
	logger log.Log
}

// New wires the engine hook to the bus and spawns cfg.Entities. server may be
// nil, in which case no feed is served.
func New(cfg *config.Config, eng *engine.Engine, b bus.EventBus, server *feed.Server, logger log.Log) (*Runner, error) {
	r := &Runner{
		cfg:    cfg.Runner,
		engine: eng,
		world:  entity.NewWorld(),
		bus:    b,
		feed:   server,
		logger: logger.Named("runner"),
	}
	eng.OnUpdate(r.publishUpdate)

	for _, ec := range cfg.Entities {
		if err := r.Spawn(ec); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Runner) World() *entity.World { return r.world }

// Spawn creates the entity described by ec and registers it with the engine.
func (r *Runner) Spawn(ec config.EntityConfig) error {
	pos := mgl64.Vec2{ec.X, ec.Y}
	var e entity.Entity
	switch ec.Kind {
	case config.KindPlayer:
		e = entity.NewPlayer(ec.ID, pos, playerSpeed)
	case config.KindMover:
		e = entity.NewMover(ec.ID, ec.Script, pos)
	default:
		return fmt.Errorf("%w: entity %q has unknown kind %q", config.ErrInvalid, ec.ID, ec.Kind)
	}
	if err := r.world.Add(e); err != nil {
		return err
	}

	var params state.Snapshot
	if ec.Params != nil {
		params = state.Snapshot(ec.Params)
	}
	rep := r.engine.Register(ec.ID, params, e)
	if rep == nil {
		r.logger.Warn("Entity not under script control", log.String("entity", ec.ID))
		return nil
	}
	r.publish(bus.EntityRegistered, bus.EntityUpdate{
		ID:     rep.ID(),
		Script: rep.ActiveScript(),
		Tick:   r.engine.TickCount(),
		State:  rep.LastState(),
	})
	return nil
}

// Despawn removes id from the world and from script control.
func (r *Runner) Despawn(id string) bool {
	if !r.world.Remove(id) {
		return false
	}
	r.engine.Unregister(id)
	r.publish(bus.EntityUnregistered, bus.EntityUpdate{ID: id, Tick: r.engine.TickCount()})
	return true
}

// Frame advances the simulation by dt seconds and services the engine once.
func (r *Runner) Frame(dt float64) {
	if p := r.world.Player(); p != nil {
		p.Turn(playerTurnRate * dt)
		p.Step(dt)
		if r.engine.IsUpdateTick(r.engine.TickCount() + 1) {
			r.engine.Refresh(p.ID(), p)
		}
	}
	r.engine.Tick()
	r.engine.Pump()
}

// Run starts the engine and the feed, then loops frames until ctx is done or
// the configured duration elapses. It always shuts the engine down before
// returning.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.engine.Start(); err != nil {
		return err
	}
	if r.feed != nil && r.cfg.FeedAddr != "" {
		if err := r.feed.Start(r.cfg.FeedAddr); err != nil {
			r.shutdown()
			return fmt.Errorf("start feed: %w", err)
		}
	}

	if r.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Duration)
		defer cancel()
	}

	period := time.Second / time.Duration(r.cfg.FrameRate)
	frames := time.NewTicker(period)
	defer frames.Stop()

	var statsC <-chan time.Time
	if r.cfg.StatsInterval > 0 {
		statsTicker := time.NewTicker(r.cfg.StatsInterval)
		defer statsTicker.Stop()
		statsC = statsTicker.C
	}

	r.logger.Info("Runner started",
		log.Int("entities", r.world.Len()),
		log.Int("frame_rate", r.cfg.FrameRate))

	dt := period.Seconds()
	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return nil
		case <-frames.C:
			r.Frame(dt)
		case <-statsC:
			r.logStats()
		}
	}
}

func (r *Runner) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := r.engine.Shutdown(ctx); err != nil {
		r.logger.Error("Engine did not stop in time", log.Error(err))
	}
	r.publish(bus.EngineStopped, nil)
	if r.feed != nil && r.cfg.FeedAddr != "" {
		if err := r.feed.Stop(ctx); err != nil {
			r.logger.Warn("Feed did not stop cleanly", log.Error(err))
		}
	}
	r.logStats()
}

func (r *Runner) publishUpdate(rep *engine.Representation) {
	r.publish(bus.EntityUpdated, bus.EntityUpdate{
		ID:     rep.ID(),
		Script: rep.ActiveScript(),
		Tick:   r.engine.TickCount(),
		State:  rep.LastState(),
	})
}

func (r *Runner) publish(eventType string, data any) {
	if err := r.bus.Publish(bus.NewEvent(eventType, source, data)); err != nil {
		r.logger.Warn("Event handler failed", log.String("type", eventType), log.Error(err))
	}
}

func (r *Runner) logStats() {
	s := r.engine.Stats()
	fields := []log.Field{
		log.Int64("ticks", s.Ticks),
		log.Int64("passes", s.Passes),
		log.Int64("batches", s.Batches),
		log.Int64("evaluations", s.Evaluations),
		log.Int64("failures", s.Failures),
		log.Int64("applied", s.Applied),
	}
	if p := r.world.Player(); p != nil {
		nearest := math.Inf(1)
		r.world.Each(func(e entity.Entity) {
			if e.ID() != p.ID() {
				nearest = math.Min(nearest, p.DistanceTo(e.Position()))
			}
		})
		if !math.IsInf(nearest, 1) {
			fields = append(fields, log.Float64("nearest", nearest))
		}
	}
	r.logger.Info("Engine stats", fields...)
}
