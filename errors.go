package gorun

import (
	"errors"
	"fmt"
)

// Sentinel errors for the transient, per-operation failure kinds from
// spec.md §7. Fatal and programmer-error kinds are represented below as
// distinct types so callers can errors.As them when useful.
var (
	// ErrDriverGone is returned when a Handle's driver accessor is used
	// after the owning Runtime has been shut down. The weak reference
	// backing the accessor observed its driver is no longer live.
	ErrDriverGone = errors.New("gorun: driver is gone")

	// ErrNotInRuntime is returned by primitives that need the ambient
	// Context (e.g. resource constructors) when no Runtime is entered
	// on the calling goroutine.
	ErrNotInRuntime = errors.New("gorun: not inside a runtime")

	// ErrShellNoExec is the error carried by the panic raised when Spawn
	// is called against a Shell-kind Runtime.
	ErrShellNoExec = errors.New("gorun: task execution disabled on shell runtime")

	// ErrLoopAlreadyRunning mirrors the teacher's own sentinel. No
	// function in this package returns it: a BlockOn that finds the Basic
	// scheduler slot already taken runs its function directly instead.
	ErrLoopAlreadyRunning = errors.New("gorun: scheduler is already running")

	// ErrRuntimeShutdown is returned by BlockingPool.Run (and so surfaced
	// through SpawnOnPool's JoinHandle) once the pool has been closed and
	// no longer accepts new work.
	ErrRuntimeShutdown = errors.New("gorun: runtime is shutting down")

	// ErrCancelled is an error a task body may return after observing
	// Abort; Wait surfaces it like any other returned error. The runtime
	// does not produce it itself.
	ErrCancelled = errors.New("gorun: task was cancelled")

	// ErrPollerClosed is returned by driver operations after Close.
	ErrPollerClosed = errors.New("gorun: poller is closed")

	// ErrFDAlreadyRegistered is returned by Register when the source is
	// already registered with the I/O driver.
	ErrFDAlreadyRegistered = errors.New("gorun: fd already registered")

	// ErrFDNotRegistered is returned by Deregister/Reregister for an
	// unknown source.
	ErrFDNotRegistered = errors.New("gorun: fd not registered")
)

// ReentrantBlockOnError is panicked when BlockOn is called from within a
// task already running on the threaded scheduler (spec.md §4.11, E4).
type ReentrantBlockOnError struct {
	// Worker names the worker goroutine the caller was running on.
	Worker string
}

func (e *ReentrantBlockOnError) Error() string {
	return fmt.Sprintf("gorun: cannot call BlockOn from within a task running on worker %q: the calling goroutine owns no ticket to make progress with", e.Worker)
}

// TaskPanicError wraps a recovered task panic, surfaced through a
// JoinHandle rather than crashing the worker (spec.md §7 kind 7).
type TaskPanicError struct {
	Value any
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("gorun: task panicked: %v", e.Value)
}

// Unwrap allows errors.Is/errors.As to see through to an underlying
// error value, when the task panicked with one.
func (e *TaskPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// FatalDriverError poisons every waiter of a driver once the OS returns
// an error a driver cannot recover from (spec.md §7 kind 6).
type FatalDriverError struct {
	Driver string
	Cause  error
}

func (e *FatalDriverError) Error() string {
	return fmt.Sprintf("gorun: %s driver failed fatally: %v", e.Driver, e.Cause)
}

func (e *FatalDriverError) Unwrap() error { return e.Cause }
