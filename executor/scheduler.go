package executor

import (
	"sync"
	"sync/atomic"

	"github.com/rs/xid"

	"github.com/sarchlab/islafoot/smt"
)

// Task is one unit of scheduling work: a frame ready to run (or resume)
// and the id of the litmus-thread/opcode it belongs to, so a caller can
// group results back by origin (spec.md §4.C "a snapshot of
// (semantic-function identifier, local frame, SMT checkpoint, ...)").
// TraceID is a compact sortable id stamped on the task and every fork
// successor it spawns, for log correlation across a run's goroutines.
type Task struct {
	ID      int
	Frame   *Frame
	TraceID xid.ID
}

// Result is what a completed (or failed) task delivers to the collector.
type Result struct {
	TaskID  int
	TraceID xid.ID
	Events  []smt.Event
	Err     error
}

// queue is an unbounded, goroutine-safe FIFO tracking both items waiting
// to be picked up and items currently in flight, so Pop can block until
// either new work appears or every worker has genuinely drained the
// queue — the idiomatic Go equivalent of the lock-free MPMC queue the
// original analysis built on crossbeam::queue::SegQueue for.
type queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []*Task
	pending int
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(t *Task) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.pending++
	q.cond.Signal()
	q.mu.Unlock()
}

// pop blocks until a task is available, or returns ok=false once the
// queue is both empty and has nothing in flight.
func (q *queue) pop() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if q.pending == 0 {
			return nil, false
		}
		q.cond.Wait()
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t, true
}

// done marks one task as fully finished, with no further successors.
func (q *queue) done() {
	q.mu.Lock()
	q.pending--
	if q.pending == 0 {
		q.cond.Broadcast()
	}
	q.mu.Unlock()
}

// Run dispatches tasks to a pool of numWorkers goroutines standing in for
// the "N parallel OS threads" of spec.md §4.C, returning once every task
// and every successor it forked has completed. Tasks suspend only at
// forks or completion; a fork pushes one successor back onto the queue
// and continues on the other without ever yielding control back to this
// function. abort, if non-nil, is checked cooperatively on every event
// emission (spec.md §4.C "Cancellation"). progress, if non-nil, is
// incremented once per path that terminates (returned, dead, or errored),
// letting a caller observe run-time progress without waiting on the
// result slice — the counter a Heartbeat ticking component reports
// through akita's monitoring server.
func Run(tasks []*Task, numWorkers int, abort *atomic.Bool, progress *atomic.Int64) []Result {
	q := newQueue()
	for _, t := range tasks {
		if t.TraceID.IsNil() {
			t.TraceID = xid.New()
		}
		q.push(t)
	}

	results := make(chan Result, 64)
	var workers sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			runWorker(q, results, abort, progress)
		}()
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	var out []Result
	for r := range results {
		out = append(out, r)
	}
	return out
}

func runWorker(q *queue, results chan<- Result, abort *atomic.Bool, progress *atomic.Int64) {
	for {
		t, ok := q.pop()
		if !ok {
			return
		}
		runTask(t, q, results, abort, progress)
	}
}

// runTask drives a single frame to completion, pushing any fork successor
// back onto q and recursing in place on the continuing side so the
// worker goroutine never blocks waiting on its own children.
func runTask(t *Task, q *queue, results chan<- Result, abort *atomic.Bool, progress *atomic.Int64) {
	for {
		o, err := t.Frame.runUntilSuspend(abort)
		if err != nil {
			if _, dead := err.(*DeadPathError); dead {
				q.done()
				bumpProgress(progress)
				return
			}
			results <- Result{TaskID: t.ID, TraceID: t.TraceID, Err: err}
			q.done()
			bumpProgress(progress)
			return
		}

		switch o.kind {
		case outcomeReturned:
			results <- Result{TaskID: t.ID, TraceID: t.TraceID, Events: t.Frame.Events}
			q.done()
			bumpProgress(progress)
			return
		case outcomeForked:
			q.push(&Task{ID: t.ID, Frame: o.elseFrame, TraceID: xid.New()})
			// continue on the "then" side in place
		}
	}
}

func bumpProgress(progress *atomic.Int64) {
	if progress != nil {
		progress.Add(1)
	}
}
