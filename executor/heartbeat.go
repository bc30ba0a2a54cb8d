package executor

import (
	"sync/atomic"

	"github.com/sarchlab/akita/v4/sim"
)

// Heartbeat is a sim.TickingComponent exposing a Run's goroutine pool to
// an akita-based simulation and its monitoring server, the way the
// teacher's CGRA tiles are each a TickingComponent the engine drives one
// cycle at a time. The pool itself is plain Go
// goroutines, not cooperative ticking (spec.md §4.C forbids anything
// slower than running a path to completion between forks); Heartbeat
// only surfaces its progress counter to whatever already-ticking engine
// a caller is running one alongside.
type Heartbeat struct {
	*sim.TickingComponent

	progress *atomic.Int64
	lastSeen int64
}

// NewHeartbeat builds a Heartbeat named name, ticking at freq on engine,
// reporting the progress counter a concurrent Run call is advancing.
func NewHeartbeat(name string, engine sim.Engine, freq sim.Freq, progress *atomic.Int64) *Heartbeat {
	h := &Heartbeat{progress: progress}
	h.TickingComponent = sim.NewTickingComponent(name, engine, freq, h)
	return h
}

// Completed reports how many symbolic-execution paths have finished so
// far.
func (h *Heartbeat) Completed() int64 { return h.progress.Load() }

// Tick reports progress whenever the underlying counter has advanced
// since the previous tick.
func (h *Heartbeat) Tick(now sim.VTimeInSec) (madeProgress bool) {
	n := h.progress.Load()
	if n == h.lastSeen {
		return false
	}
	h.lastSeen = n
	return true
}
