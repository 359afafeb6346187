// Package coroutine implements Lumen's cooperative async layer: coroutines
// that suspend on promises, and a single-threaded FIFO executor that drives
// them. It shares the runtime value model with pkg/bytecode.
//
// A coroutine wraps an entry function. Starting or resuming one invokes the
// entry function from the top; a function that suspends on a pending
// promise is expected to re-check the promise when re-invoked. Completion
// and failure settle the coroutine's promise, and settlement cascades
// synchronously to every waiter: resolution resumes them in registration
// order, rejection fails them recursively.
package coroutine

import (
	"errors"
	"fmt"

	"github.com/lumenlang/lumen/pkg/bytecode"
)

// State is a coroutine or promise lifecycle state. Completed and Failed are
// terminal: once reached, no further transition happens.
type State uint8

const (
	Suspended State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Suspended:
		return "suspended"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// ErrSuspended is the sentinel an entry function returns (via Await) when
// it has suspended on a pending promise. It marks suspension, not failure.
var ErrSuspended = errors.New("coroutine suspended")

// Func is a coroutine entry function. It runs to completion, fails with an
// error, or returns ErrSuspended after registering on a pending promise
// through co.Await.
type Func func(co *Coroutine, args []bytecode.Value) (bytecode.Value, error)

// Coroutine is a cooperatively scheduled activation of an entry function.
type Coroutine struct {
	name    string
	state   State
	fn      Func
	vm      *bytecode.VM
	args    []bytecode.Value
	result  bytecode.Value
	failure error
	promise *Promise
}

// New creates a suspended coroutine with a fresh promise. The arguments are
// fixed at creation: every invocation of the entry function receives them.
func New(name string, fn Func, vm *bytecode.VM, args ...bytecode.Value) *Coroutine {
	return &Coroutine{
		name:    name,
		state:   Suspended,
		fn:      fn,
		vm:      vm,
		args:    args,
		promise: NewPromise(),
	}
}

// Wrap creates a coroutine whose entry function calls a Lumen callable on
// the given VM.
func Wrap(name string, vm *bytecode.VM, callee bytecode.Value, args ...bytecode.Value) *Coroutine {
	return New(name, func(co *Coroutine, args []bytecode.Value) (bytecode.Value, error) {
		return vm.CallValue(callee, args)
	}, vm, args...)
}

// Name returns the coroutine's diagnostic name.
func (co *Coroutine) Name() string { return co.name }

// State returns the current lifecycle state.
func (co *Coroutine) State() State { return co.state }

// Terminal reports whether the coroutine has completed or failed.
func (co *Coroutine) Terminal() bool {
	return co.state == Completed || co.state == Failed
}

// Result returns the completion value. Nil until completed.
func (co *Coroutine) Result() bytecode.Value { return co.result }

// Failure returns the failure, or nil.
func (co *Coroutine) Failure() error { return co.failure }

// Promise returns the promise settled by this coroutine's outcome.
func (co *Coroutine) Promise() *Promise { return co.promise }

// VM returns the VM the coroutine runs bytecode on, if any.
func (co *Coroutine) VM() *bytecode.VM { return co.vm }

// Start invokes the entry function for the first time. A coroutine that
// runs to the end without suspending completes (or fails) immediately.
// Start returns nil when the coroutine suspended; suspension is not an
// error.
func (co *Coroutine) Start() error {
	if co.state != Suspended {
		return fmt.Errorf("cannot start %s coroutine", co.state)
	}
	return co.invoke()
}

// Resume re-invokes the entry function of a suspended coroutine. Resuming
// a terminal coroutine is a no-op.
func (co *Coroutine) Resume() error {
	if co.Terminal() {
		return nil
	}
	if co.state != Suspended {
		return fmt.Errorf("cannot resume %s coroutine", co.state)
	}
	return co.invoke()
}

func (co *Coroutine) invoke() error {
	co.state = Running
	result, err := co.fn(co, co.args)
	switch {
	case err == nil:
		if co.state == Running {
			co.Complete(result)
		}
	case errors.Is(err, ErrSuspended):
		// Await already moved the coroutine to Suspended and registered
		// it on the promise.
	default:
		co.Fail(err)
		return err
	}
	return nil
}

// Await observes a promise from inside the entry function. A settled
// promise yields its result or failure immediately. A pending promise
// registers the coroutine as a waiter, suspends it, and returns
// ErrSuspended, which the entry function propagates.
func (co *Coroutine) Await(p *Promise) (bytecode.Value, error) {
	switch p.state {
	case Completed:
		return p.result, nil
	case Failed:
		return bytecode.NilValue(), p.failure
	}
	p.waiting = append(p.waiting, co)
	co.state = Suspended
	return bytecode.NilValue(), ErrSuspended
}

// Complete settles the coroutine with a result, resolving its promise and
// synchronously resuming any waiters. No-op on a terminal coroutine.
func (co *Coroutine) Complete(result bytecode.Value) {
	if co.Terminal() {
		return
	}
	co.state = Completed
	co.result = result
	co.promise.Resolve(result)
}

// Fail settles the coroutine with a failure, rejecting its promise and
// recursively failing every waiter. No-op on a terminal coroutine.
func (co *Coroutine) Fail(err error) {
	if co.Terminal() {
		return
	}
	co.state = Failed
	co.failure = err
	co.promise.Reject(err)
}
