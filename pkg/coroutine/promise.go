package coroutine

import "github.com/lumenlang/lumen/pkg/bytecode"

// Promise is the settled-once handle to a coroutine's eventual outcome.
// Settlement cascades synchronously: Resolve resumes waiters in
// registration order, Reject fails them recursively. Promises implement
// bytecode.Awaitable so Lumen code can await them directly.
type Promise struct {
	state   State
	result  bytecode.Value
	failure error
	waiting []*Coroutine
}

var _ bytecode.Awaitable = (*Promise)(nil)

// NewPromise returns a pending promise.
func NewPromise() *Promise {
	return &Promise{state: Suspended}
}

// State returns Suspended while pending, then Completed or Failed.
func (p *Promise) State() State { return p.state }

// Settled reports whether the promise has been resolved or rejected.
func (p *Promise) Settled() bool {
	return p.state == Completed || p.state == Failed
}

// Result returns the resolution value. Nil until resolved.
func (p *Promise) Result() bytecode.Value { return p.result }

// Failure returns the rejection error, or nil.
func (p *Promise) Failure() error { return p.failure }

// Resolve settles the promise with a result and immediately resumes every
// waiting coroutine, in registration order. Settling twice is a no-op.
func (p *Promise) Resolve(result bytecode.Value) {
	if p.Settled() {
		return
	}
	p.state = Completed
	p.result = result
	waiters := p.waiting
	p.waiting = nil
	for _, w := range waiters {
		if w.state == Suspended {
			// The waiter re-observes the promise, now settled, when its
			// entry function runs again. A failure inside lands in the
			// waiter's own state; nothing to do with it here.
			_ = w.Resume()
		}
	}
}

// Reject settles the promise with a failure and recursively fails every
// waiting coroutine, which rejects their promises in turn. Settling twice
// is a no-op.
func (p *Promise) Reject(err error) {
	if p.Settled() {
		return
	}
	p.state = Failed
	p.failure = err
	waiters := p.waiting
	p.waiting = nil
	for _, w := range waiters {
		w.Fail(err)
	}
}

// AwaitResult implements bytecode.Awaitable.
func (p *Promise) AwaitResult() (bytecode.Value, bool, error) {
	switch p.state {
	case Completed:
		return p.result, true, nil
	case Failed:
		return bytecode.NilValue(), true, p.failure
	}
	return bytecode.NilValue(), false, nil
}

// Value returns the promise as a Lumen value for placing on a VM stack or
// in a global.
func (p *Promise) Value() bytecode.Value {
	return bytecode.ObjectValue(p)
}
