package engine

import (
	"context"

	"github.com/zeusync/jo/internal/core/observability/log"
	"github.com/zeusync/jo/internal/core/scripting/script"
)

type hopKind uint8

const (
	hopRetrieve hopKind = iota + 1
	hopCallbacks
	hopUpdates
)

func (k hopKind) String() string {
	switch k {
	case hopRetrieve:
		return "retrieve"
	case hopCallbacks:
		return "callbacks"
	case hopUpdates:
		return "updates"
	default:
		return "unknown"
	}
}

// hop is a request the worker sends to the owning goroutine. The worker blocks
// until the owner has serviced it and answered on done.
type hop struct {
	kind      hopKind
	callbacks []CallbackResult
	updates   []UpdateResult
	done      chan hopReply
}

type hopReply struct {
	batch Batch
	more  bool
}

// Pump services every hop the worker has pending without blocking and returns
// how many were handled. Frame driven owners call it once per frame.
func (e *Engine) Pump() int {
	handled := 0
	for {
		select {
		case h := <-e.hops:
			e.service(h)
			handled++
		default:
			return handled
		}
	}
}

// Serve services hops until ctx is done or the worker exits. It is meant for
// owners that have nothing else to do on their goroutine.
func (e *Engine) Serve(ctx context.Context) error {
	if !e.started.Load() {
		return ErrNotStarted
	}
	for {
		select {
		case h := <-e.hops:
			e.service(h)
		case <-e.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) service(h hop) {
	var reply hopReply
	switch h.kind {
	case hopRetrieve:
		reply.batch, reply.more = e.retrieve()
	case hopCallbacks:
		e.deliverCallbacks(h.callbacks)
		reply.more = true
	case hopUpdates:
		e.applyUpdates(h.updates)
		reply.more = true
	default:
		e.logger.Error("Unknown hop", log.String("kind", h.kind.String()))
	}
	h.done <- reply
}

// retrieve hands the worker everything queued since the last cycle. Once
// shutdown has been requested it reports no more work, whatever is queued.
func (e *Engine) retrieve() (Batch, bool) {
	if e.shutdown.Load() {
		return Batch{}, false
	}

	scheduled, due := e.queue.take()
	batch := Batch{Scheduled: scheduled}
	if due {
		tick := e.queue.tick
		e.registry.each(func(rep *Representation) {
			if rep.activeScript == "" {
				return
			}
			batch.Updates = append(batch.Updates, UpdateRecord{
				ID:             rep.id,
				Expression:     script.UpdateCall(rep.activeScript, rep.id, tick),
				representation: rep,
			})
		})
		e.stats.passes.Add(1)
	}
	if !batch.Empty() {
		e.stats.batches.Add(1)
	}
	return batch, true
}

func (e *Engine) deliverCallbacks(results []CallbackResult) {
	for _, r := range results {
		cb, ok := e.queue.popCallback(r.Token)
		if !ok {
			e.logger.Warn("Callback token unknown", log.String("token", r.Token.String()))
			continue
		}
		cb(r.Result)
	}
}

func (e *Engine) applyUpdates(results []UpdateResult) {
	for _, r := range results {
		if !r.Result.OK() {
			e.logger.Warn("Update dropped",
				log.String("entity", r.ID),
				log.Error(r.Result.Err))
			continue
		}
		current, ok := e.registry.get(r.ID)
		if !ok || current != r.representation {
			e.logger.Debug("Update for stale representation skipped", log.String("entity", r.ID))
			continue
		}
		applied, err := r.Result.Snapshot.Clone()
		if err != nil {
			e.logger.Warn("Update dropped", log.String("entity", r.ID), log.Error(err))
			continue
		}
		current.lastState = r.Result.Snapshot
		current.owner.ApplyState(applied)
		e.stats.applied.Add(1)
		if e.onUpdate != nil {
			e.onUpdate(current)
		}
	}
}
