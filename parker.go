package gorun

import (
	"sync/atomic"
	"time"
)

// parkState is the three-state machine backing [Parker]: Idle, Parked,
// Notified. This generalizes the teacher's wakeUpSignalPending dedup CAS
// (eventloop/loop.go) from a single bit (pending/not) into the full
// {Idle,Parked,Notified} machine spec.md §3 names explicitly, so an
// Unpark racing a Park is never lost and never double-fires.
type parkState = uint32

const (
	parkIdle parkState = iota
	parkParked
	parkNotified
)

// Parker blocks a worker goroutine until woken by Unpark or (with
// ParkTimeout) a deadline. A Parker itself does not run any driver's
// "process step"; the layered park of the drivers (spec.md §4.1, §4.5)
// is done by DriverStack.ParkTimeout in stack.go, which falls back to a
// base Parker when no I/O driver is enabled.
type Parker struct {
	state atomic.Uint32
	wake  chan struct{}
	inner *Parker
}

// NewParker creates a base (non-composing) Parker.
func NewParker() *Parker {
	return &Parker{wake: make(chan struct{}, 1)}
}

// compose records inner as the Parker p wraps. Park and ParkTimeout do
// not consult it, and nothing in the package calls compose; the driver
// layering lives in DriverStack (stack.go).
func (p *Parker) compose(inner *Parker) { p.inner = inner }

// Park blocks until a matching Unpark (or a spurious wake, which callers
// must tolerate by re-checking their condition and re-Parking).
func (p *Parker) Park() {
	p.ParkTimeout(-1)
}

// ParkTimeout blocks up to d (d < 0 means unbounded). Returns true if
// woken by Unpark/spurious wake, false if the deadline elapsed first.
func (p *Parker) ParkTimeout(d time.Duration) bool {
	// Notified -> Idle transitions immediately without blocking: a wake
	// issued before this Park is coalesced into at most one wait, never
	// lost (spec.md Testable Property 1).
	if p.state.CompareAndSwap(parkNotified, parkIdle) {
		return true
	}
	if !p.state.CompareAndSwap(parkIdle, parkParked) {
		// Only Idle and Notified are valid entry states; a concurrent
		// Park from a second goroutine would be a caller bug, but we
		// degrade to a no-op wait rather than panic.
		return true
	}

	if d < 0 {
		<-p.wake
		p.state.Store(parkIdle)
		return true
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.wake:
		p.state.Store(parkIdle)
		return true
	case <-t.C:
		// Only revert to Idle if nobody Unparked us in the interim; if
		// they did, Unpark has already moved state back to Idle and left
		// a token in the wake channel, which the next Park receives
		// rather than losing the wake.
		p.state.CompareAndSwap(parkParked, parkIdle)
		return false
	}
}

// Unpark is safe to call from any goroutine, including from inside a
// signal-driver dispatch callback. An Unpark that races a Park, or
// precedes it, is coalesced: at most one wake is ever delivered for any
// number of Unpark calls between two Parks.
func (p *Parker) Unpark() {
	for {
		switch p.state.Load() {
		case parkNotified:
			return
		case parkIdle:
			if p.state.CompareAndSwap(parkIdle, parkNotified) {
				return
			}
		case parkParked:
			if p.state.CompareAndSwap(parkParked, parkIdle) {
				select {
				case p.wake <- struct{}{}:
				default:
				}
				return
			}
		}
	}
}

// Unparker returns a function capturing this Parker's Unpark, matching
// the shape drivers register with the OS (signal handlers, completion
// callbacks) without exposing the whole Parker. For a composite Parker,
// callers should capture the *innermost* Parker's Unparker so a wake is
// never lost waiting on a temporarily-unavailable wrapper (spec.md
// §4.1's "innermost unparker" rule); see stack.go's DriverStack.
func (p *Parker) Unparker() func() {
	return p.Unpark
}
