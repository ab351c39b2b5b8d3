package gorun

import "context"

// taskScheduler is the contract every scheduler kind (Basic, Threaded)
// satisfies so spawnTask can enqueue work without depending on which kind
// is active. Shell has no scheduler at all (spec.md §4.9): spawning
// against it fails before ever reaching this interface.
type taskScheduler interface {
	schedule(ctx context.Context, body func(context.Context))
	shutdown()
}

// runTaskBody wraps a task body with the Context frame every task runs
// under: inTask so a nested BlockOn call panics (spec.md §7 kind 5), and
// a ticket pool so Sleep/Wait/blocking-pool submission can release and
// reacquire the worker's run ticket at await points. Both schedulers call
// this identically, from the goroutine they start for each task after it
// has acquired a ticket.
func runTaskBody(h *Handle, tickets *ticketPool, worker string, ctx context.Context, body func(context.Context)) {
	guard := enter(h, true, worker)
	defer guard.Exit()
	body(withTicketPool(ctx, tickets))
}

// safeExecute runs fn with panic recovery, following the teacher's
// safeExecute/safeExecuteFn wrappers (eventloop/loop.go): a panicking task
// must surface as a failed JoinHandle, not crash the worker goroutine that
// happened to be running it (spec.md §7 kind 7).
func safeExecute[T any](ctx context.Context, fn func(context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value = zero
			err = &TaskPanicError{Value: r}
			getLogger().Err().Interface(`panic`, r).Log(`gorun: task panicked`)
		}
	}()
	return fn(ctx)
}
