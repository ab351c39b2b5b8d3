package gorun

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// driverPumpInterval bounds how long the background driver-pump
// goroutine can sit inside one Park call before re-checking for
// shutdown. I/O readiness, an explicit Unpark, and a timer deadline
// already registered when the park began end it sooner; a timer
// registered during the park, and a shutdown request, are only acted on
// once it returns.
const driverPumpInterval = 250 * time.Millisecond

// BasicScheduler is the single-thread cooperative executor (spec.md
// §4.7, C7). Spawned tasks each get their own goroutine (the idiomatic
// Go rendition of a future, see SPEC_FULL.md's grounding note on the task
// model), but a one-ticket ticketPool ensures at most one of them is
// ever actually running user code at a time — recovering the
// single-thread-cooperative guarantee spec.md's scheduler model assumes.
// A dedicated background goroutine continuously pumps the driver stack
// so timers and I/O readiness are serviced independent of which task
// happens to be running.
type BasicScheduler struct {
	handle  *Handle
	tickets *ticketPool
	stack   *DriverStack
	metrics *Metrics

	mu       sync.Mutex
	slotFull bool

	pumpStop chan struct{}
	pumpDone chan struct{}
	closed   atomic.Bool
}

func newBasicScheduler(stack *DriverStack, metrics *Metrics) *BasicScheduler {
	s := &BasicScheduler{
		tickets:  newTicketPool(1),
		stack:    stack,
		metrics:  metrics,
		slotFull: true,
		pumpStop: make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *BasicScheduler) setHandle(h *Handle) { s.handle = h }

func (s *BasicScheduler) pump() {
	defer close(s.pumpDone)
	for {
		select {
		case <-s.pumpStop:
			return
		default:
		}
		s.stack.ParkTimeout(driverPumpInterval)
		s.metrics.incParks()
	}
}

// schedule implements taskScheduler: the task body runs on its own
// goroutine but must acquire the scheduler's sole run ticket first.
func (s *BasicScheduler) schedule(ctx context.Context, body func(context.Context)) {
	s.metrics.incTasksSpawned()
	go func() {
		if err := s.tickets.acquire(context.Background()); err != nil {
			return
		}
		runTaskBody(s.handle, s.tickets, "basic", ctx, body)
		s.tickets.release()
		s.metrics.incTasksCompleted()
	}()
}

func (s *BasicScheduler) shutdown() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.pumpStop)
	}
}

// waitStopped blocks until the driver pump goroutine has exited or ctx is
// done first, returning whether it exited in time.
func (s *BasicScheduler) waitStopped(ctx context.Context) bool {
	select {
	case <-s.pumpDone:
		return true
	case <-ctx.Done():
		return false
	}
}

// blockOnBasic drives fn to completion (spec.md §4.7). It implements the
// take-slot re-entrancy pattern described there: the first call on a
// goroutine takes the scheduler "out of the slot" and drives fn as a
// spawned, ticketed task; a call observing the slot already empty — true
// recursion on the same goroutine, or a second concurrent caller, which
// spec.md leaves as an implementation choice (see DESIGN.md) — instead
// runs fn directly with no scheduler underneath it at all: no spawn, no
// task polling, just the driver stack (Testable Property 4, "slot
// conservation").
func blockOnBasic[T any](h *Handle, s *BasicScheduler, fn func(context.Context) (T, error)) (T, error) {
	s.mu.Lock()
	full := s.slotFull
	if full {
		s.slotFull = false
	}
	s.mu.Unlock()

	guard := enter(h, false, "basic")
	defer guard.Exit()

	if !full {
		return safeExecute(context.Background(), fn)
	}

	defer func() {
		s.mu.Lock()
		s.slotFull = true
		s.mu.Unlock()
	}()

	jh := spawnTask[T](s, context.Background(), fn)
	return jh.Wait(context.Background())
}
