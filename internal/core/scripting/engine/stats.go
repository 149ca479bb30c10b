package engine

import "sync/atomic"

// Stats is a point in time copy of the engine counters. It is safe to read
// from any goroutine.
type Stats struct {
	Ticks       int64
	Passes      int64
	Batches     int64
	Evaluations int64
	Failures    int64
	Applied     int64
}

type stats struct {
	ticks       atomic.Int64
	passes      atomic.Int64
	batches     atomic.Int64
	evaluations atomic.Int64
	failures    atomic.Int64
	applied     atomic.Int64
}

func (s *stats) snapshot() Stats {
	return Stats{
		Ticks:       s.ticks.Load(),
		Passes:      s.passes.Load(),
		Batches:     s.batches.Load(),
		Evaluations: s.evaluations.Load(),
		Failures:    s.failures.Load(),
		Applied:     s.applied.Load(),
	}
}
