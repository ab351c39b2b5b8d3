package gorun

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"
)

// TimerHandle identifies a registered deadline so it can be reset or
// cancelled (spec.md §4.3).
type TimerHandle struct {
	id uint64
}

type timerEntry struct {
	id       uint64
	deadline time.Time
	waker    func()
	index    int
	cancelled bool
}

// timerHeap is a min-heap of pending deadlines, the same shape as the
// teacher's timerHeap (eventloop/loop.go), generalized from one-shot
// fire-and-forget timers to entries that carry an id so they can be
// reset or cancelled independently.
type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// TimerDriver maintains a set of future deadlines, firing wakers for any
// deadline at or before "now" each Turn, and supplying the minimum
// outstanding deadline as a Parker timeout hint so the I/O driver's own
// wait is bounded by the next timer (spec.md §4.3).
type TimerDriver struct {
	mu      sync.Mutex
	heap    timerHeap
	byID    map[uint64]*timerEntry
	nextID  atomic.Uint64
	closed  atomic.Bool
}

func newTimerDriver() *TimerDriver {
	return &TimerDriver{byID: make(map[uint64]*timerEntry)}
}

// Register schedules waker to fire at deadline (monotonic clock).
func (d *TimerDriver) Register(deadline time.Time, waker func()) TimerHandle {
	id := d.nextID.Add(1)
	e := &timerEntry{id: id, deadline: deadline, waker: waker}

	d.mu.Lock()
	d.byID[id] = e
	heap.Push(&d.heap, e)
	d.mu.Unlock()

	return TimerHandle{id: id}
}

// Reset changes an existing timer's deadline. Returns false if the timer
// already fired or was cancelled.
func (d *TimerDriver) Reset(h TimerHandle, deadline time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.byID[h.id]
	if !ok || e.cancelled {
		return false
	}
	e.deadline = deadline
	heap.Fix(&d.heap, e.index)
	return true
}

// Cancel removes a pending timer. Returns false if it already fired.
func (d *TimerDriver) Cancel(h TimerHandle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.byID[h.id]
	if !ok || e.cancelled {
		return false
	}
	e.cancelled = true
	delete(d.byID, h.id)
	if e.index >= 0 {
		heap.Remove(&d.heap, e.index)
	}
	return true
}

// NextDeadline returns the soonest pending deadline and whether one
// exists. Used by the driver stack as the Parker timeout hint (spec.md
// §4.5): each park is bounded by the soonest deadline known when it
// starts. Register does not wake a park already in progress, so a
// deadline registered during one fires when that park returns.
func (d *TimerDriver) NextDeadline() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.heap) == 0 {
		return time.Time{}, false
	}
	return d.heap[0].deadline, true
}

// Turn advances to now and fires every deadline <= now, returning the
// number fired. Firing order among equal deadlines is unspecified
// (spec.md §4.3 monotonicity invariant).
func (d *TimerDriver) Turn(now time.Time) int {
	var fired []*timerEntry
	d.mu.Lock()
	for len(d.heap) > 0 && !d.heap[0].deadline.After(now) {
		e := heap.Pop(&d.heap).(*timerEntry)
		delete(d.byID, e.id)
		if !e.cancelled {
			fired = append(fired, e)
		}
	}
	d.mu.Unlock()

	for _, e := range fired {
		if e.waker != nil {
			e.waker()
		}
	}
	return len(fired)
}

// Close marks the driver closed. Register, NextDeadline and Turn do not
// check the flag and keep working afterward (matching spec.md's
// driver-gone semantics being a Handle-level, not a Register-level,
// concern); DriverStack.Close does not call it.
func (d *TimerDriver) Close() error {
	d.closed.Store(true)
	return nil
}
