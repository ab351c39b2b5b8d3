package gorun

import (
	"context"
	"sync"
)

// JoinHandle observes the outcome of one spawned task (spec.md's
// Task/JoinHandle model). It is safe to Wait from multiple goroutines;
// all observe the same value/error once the task finishes.
type JoinHandle[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu    sync.Mutex
	value T
	err   error
}

// spawnTask wraps fn as a scheduler body, registers it with sched, and
// returns the JoinHandle callers use to observe the result. ctx is the
// parent the task's own context is derived from; Abort cancels that
// derived context, which the task body must itself observe to actually
// stop (spec.md's Abort semantics: cooperative, not forcible).
func spawnTask[T any](sched taskScheduler, ctx context.Context, fn func(context.Context) (T, error)) *JoinHandle[T] {
	taskCtx, cancel := context.WithCancel(ctx)
	h := &JoinHandle[T]{done: make(chan struct{}), cancel: cancel}

	body := func(runCtx context.Context) {
		value, err := safeExecute(runCtx, fn)
		h.mu.Lock()
		h.value, h.err = value, err
		h.mu.Unlock()
		close(h.done)
	}
	sched.schedule(taskCtx, body)
	return h
}

// Wait blocks until the task completes or ctx is cancelled first. It
// releases the calling task's run ticket for the duration (an await
// point, spec.md §4.1), so other work on the same scheduler can progress
// while this one waits.
func (h *JoinHandle[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	cancelled := false
	yieldTicket(ctx, func() {
		select {
		case <-h.done:
		case <-ctx.Done():
			cancelled = true
		}
	})
	if cancelled {
		return zero, ctx.Err()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value, h.err
}

// Abort requests cancellation of the task's context. Go has no primitive
// to forcibly suspend a running goroutine, so a task body that never
// checks ctx.Done() runs to completion regardless; one that does observe
// cancellation should return ErrCancelled, which Wait then surfaces.
func (h *JoinHandle[T]) Abort() {
	h.cancel()
}

// IsDone reports whether the task has already produced a result.
func (h *JoinHandle[T]) IsDone() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
