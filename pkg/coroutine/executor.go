package coroutine

import (
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lumen.executor")

// Executor drives coroutines single-threaded, round-robin. Scheduled
// coroutines wait in a FIFO ready queue; each tick resumes the head and
// routes it by the state it lands in. Coroutines suspended on a promise
// are resumed by the promise's settlement, not by the executor, so the
// suspended set only needs pruning.
type Executor struct {
	ready     []*Coroutine
	suspended []*Coroutine
	ticks     uint64
}

// NewExecutor returns an empty executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Schedule appends a coroutine to the ready queue.
func (e *Executor) Schedule(co *Coroutine) {
	e.ready = append(e.ready, co)
}

// HasWork reports whether the ready queue is non-empty.
func (e *Executor) HasWork() bool {
	return len(e.ready) > 0
}

// Ticks returns the number of ticks executed.
func (e *Executor) Ticks() uint64 {
	return e.ticks
}

// Suspended returns the coroutines parked on pending promises, pruned of
// any that have since settled.
func (e *Executor) Suspended() []*Coroutine {
	e.prune()
	return e.suspended
}

// Tick resumes the head of the ready queue and routes it by resulting
// state. Returns false when there was nothing to do.
func (e *Executor) Tick() bool {
	e.prune()
	if len(e.ready) == 0 {
		return false
	}
	co := e.ready[0]
	e.ready = e.ready[1:]
	e.ticks++

	log.Debugf("tick %d: resuming coroutine %q (%s)", e.ticks, co.Name(), co.State())
	_ = co.Resume()

	switch co.State() {
	case Suspended:
		e.suspended = append(e.suspended, co)
	case Running:
		// Should not survive a resume, but requeue rather than lose it.
		e.ready = append(e.ready, co)
	default:
		log.Debugf("tick %d: coroutine %q %s", e.ticks, co.Name(), co.State())
	}
	return true
}

// Run ticks until the ready queue drains.
func (e *Executor) Run() {
	for e.Tick() {
	}
}

// RunUntilComplete ticks until the given coroutine reaches a terminal
// state or the executor runs out of work, and reports whether the
// coroutine terminated.
func (e *Executor) RunUntilComplete(co *Coroutine) bool {
	for !co.Terminal() {
		if !e.Tick() {
			break
		}
	}
	return co.Terminal()
}

// prune drops settled coroutines from the suspended set.
func (e *Executor) prune() {
	kept := e.suspended[:0]
	for _, co := range e.suspended {
		if !co.Terminal() {
			kept = append(kept, co)
		}
	}
	e.suspended = kept
}
