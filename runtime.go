package gorun

import (
	"context"
	"time"
)

// Runtime is the top-level facade (spec.md §4.13, C14): it owns the
// driver stack, the blocking pool, and whichever scheduler its Kind
// selected, and exposes them through a single Handle.
type Runtime struct {
	id   uint64
	kind SchedulerKind

	stack   *DriverStack
	pool    *BlockingPool
	ref     *driverRef
	metrics *Metrics

	basic    *BasicScheduler
	threaded *ThreadedScheduler
	shell    *ShellScheduler

	handle *Handle
}

// New builds a Runtime using spec.md §4.13's default: threaded with both
// drivers enabled. Equivalent to NewBuilder().Threaded().EnableAll().Build().
func New() (*Runtime, error) {
	return NewBuilder().Threaded().EnableAll().Build()
}

// Handle returns the runtime's capability token. Handle values are cheap
// to copy and carry no back-reference to the Runtime itself.
func (rt *Runtime) Handle() *Handle { return rt.handle }

// BlockOn drives fn to completion on the calling goroutine, dispatching
// to whichever re-entrancy discipline this Runtime's Kind uses (spec.md
// §4.7/§4.8/§4.9).
func BlockOn[T any](rt *Runtime, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	switch rt.kind {
	case KindBasic:
		return blockOnBasic(rt.handle, rt.basic, fn)
	case KindThreaded:
		return blockOnThreaded(rt.handle, rt.threaded, fn)
	default:
		return blockOnShell(rt.handle, fn)
	}
}

// Enter installs this Runtime's Handle as ambient on the calling
// goroutine for the duration of fn, without scheduling fn as a task
// itself (spec.md §4.11, C12). Nested Enter calls on different runtimes
// push and pop a stack, so the innermost Runtime wins.
func (rt *Runtime) Enter(fn func()) {
	rt.handle.Enter(fn)
}

// ShutdownTimeout signals the scheduler to stop and the blocking pool to
// drain, waits up to d in total for both, and invalidates the driver
// stack's weak handles regardless of whether that deadline was met
// (spec.md §4.13's Drop-equivalent ordering: scheduler/pool first,
// drivers last). The scheduler and the blocking pool share one deadline
// rather than each getting their own d, so the whole call stays bounded
// by d + ε (spec.md Testable Property 5) instead of up to 2d.
func (rt *Runtime) ShutdownTimeout(d time.Duration) {
	deadline := time.Now().Add(d)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	rt.handle.Shutdown()

	switch rt.kind {
	case KindBasic:
		rt.basic.waitStopped(ctx)
	case KindThreaded:
		rt.threaded.waitStopped(ctx)
	case KindShell:
		// Shell has no taskScheduler behind the Handle, so its driver
		// pump is told to stop here (once, if ShutdownTimeout is repeated).
		select {
		case <-rt.shell.pumpStop:
		default:
			rt.shell.shutdown()
		}
		rt.shell.waitStopped(ctx)
	}

	// spec.md's shutdown(Some(d)): join blocking-pool jobs that finish
	// within d, abandon (leak) the rest. Whatever budget the scheduler
	// wait above didn't use is what the pool gets.
	rt.pool.Close(time.Until(deadline))

	rt.ref.invalidate()
	if err := rt.stack.Close(); err != nil {
		getLogger().Warning().Interface(`error`, err).Log(`gorun: error closing driver stack during shutdown`)
	}
}

// ShutdownBackground is equivalent to ShutdownTimeout(0): it signals
// shutdown and tears down the driver stack without waiting for
// outstanding work to finish on its own.
func (rt *Runtime) ShutdownBackground() {
	rt.ShutdownTimeout(0)
}
