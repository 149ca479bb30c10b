package engine

import (
	"time"

	"github.com/zeusync/jo/internal/core/observability/log"
	"github.com/zeusync/jo/internal/core/scripting/interp"
)

// run is the worker goroutine. It owns the interpreter for its whole life.
func (e *Engine) run() {
	defer close(e.done)

	logger := e.logger.Named("worker")
	it := interp.New(interp.Options{
		Logger:    logger,
		NoiseSeed: e.cfg.NoiseSeed,
	})
	if err := it.Install(e.modules); err != nil {
		logger.Warn("Some scripts failed to install", log.Error(err))
	}
	logger.Info("Worker started", log.Int("scripts", len(e.modules)))

	for {
		reply, ok := e.sync(hop{kind: hopRetrieve})
		if !ok || !reply.more {
			logger.Info("Worker stopped")
			return
		}

		batch := reply.batch
		callbacks, updates := e.evaluate(it, logger, batch)

		if len(callbacks) > 0 {
			if _, ok = e.sync(hop{kind: hopCallbacks, callbacks: callbacks}); !ok {
				return
			}
		}
		if len(updates) > 0 {
			if _, ok = e.sync(hop{kind: hopUpdates, updates: updates}); !ok {
				return
			}
		}

		if batch.Empty() {
			e.idle()
		}
	}
}

// sync hands h to the owning goroutine and waits for it to be serviced.
func (e *Engine) sync(h hop) (hopReply, bool) {
	h.done = make(chan hopReply, 1)
	select {
	case e.hops <- h:
	case <-e.abort:
		return hopReply{}, false
	}
	select {
	case reply := <-h.done:
		return reply, true
	case <-e.abort:
		return hopReply{}, false
	}
}

func (e *Engine) evaluate(it *interp.Interpreter, logger log.Log, batch Batch) ([]CallbackResult, []UpdateResult) {
	var callbacks []CallbackResult
	for _, rec := range batch.Scheduled {
		e.stats.evaluations.Add(1)
		if rec.Token.IsZero() {
			if err := it.Exec(rec.Program); err != nil {
				e.stats.failures.Add(1)
				logger.Warn("Scheduled program failed", log.Error(err))
			}
			continue
		}

		result := valueResult(nil)
		snapshot, err := it.Run(rec.Program)
		if err != nil {
			e.stats.failures.Add(1)
			logger.Warn("Scheduled program failed",
				log.String("token", rec.Token.String()),
				log.Error(err))
			result = failedResult(err)
		} else {
			result.Snapshot = snapshot
		}
		callbacks = append(callbacks, CallbackResult{Token: rec.Token, Result: result})
	}

	updates := make([]UpdateResult, 0, len(batch.Updates))
	for _, rec := range batch.Updates {
		e.stats.evaluations.Add(1)
		update := UpdateResult{ID: rec.ID, representation: rec.representation}
		snapshot, err := it.Call(rec.Expression)
		if err != nil {
			e.stats.failures.Add(1)
			update.Result = failedResult(err)
		} else {
			update.Result = valueResult(snapshot)
		}
		updates = append(updates, update)
	}
	return callbacks, updates
}

// idle sleeps between empty batches. RequestShutdown cuts the sleep short.
func (e *Engine) idle() {
	timer := time.NewTimer(e.cfg.IdleInterval)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-e.wake:
	case <-e.abort:
	}
}
