package gorun

import "time"

// DriverStack composes the enabled drivers as nested Parkers in the fixed
// order spec.md §4.5 names: I/O driver ⊂ signal driver ⊂ timer driver ⊂
// base Parker. Disabled layers are elided, and a stack with nothing
// enabled degrades to a bare Parker — this is what lets the Basic and
// Threaded schedulers park on "the stack" uniformly regardless of which
// Builder.Enable* calls were made.
//
// When the I/O layer is present it also owns the base Parker's wakeup
// path: a plain channel-backed Parker can't be interrupted by an OS-level
// epoll_wait, so cross-thread Unpark is rerouted through its own
// self-pipe registered with the I/O driver, generalizing the teacher's
// wake-eventfd-registered-with-epoll pattern (eventloop/loop.go's
// fastWakeupCh) from "one loop's own wakeup" to "any caller of
// DriverStack.Unpark". Timer registration and task spawning do not call
// Unpark.
type DriverStack struct {
	base   *Parker
	io     *IODriver
	signal *SignalDriver
	timer  *TimerDriver

	wakeWriteFD int
	metrics     *Metrics
}

func newDriverStack(enableIO, enableTime bool) (*DriverStack, error) {
	s := &DriverStack{base: NewParker(), wakeWriteFD: -1}

	if enableIO {
		io, err := newIODriver()
		if err != nil {
			return nil, err
		}
		s.io = io

		sig, err := newSignalDriver(io)
		if err != nil {
			_ = io.Close()
			return nil, err
		}
		s.signal = sig

		if selfPipeSupportsPoll {
			rfd, wfd, err := createSelfPipe()
			if err != nil {
				_ = sig.Close()
				_ = io.Close()
				return nil, err
			}
			if _, err := io.Register(rfd, InterestRead, func() { drainSelfPipe(rfd) }); err != nil {
				closeSelfPipe(rfd, wfd)
				_ = sig.Close()
				_ = io.Close()
				return nil, err
			}
			s.wakeWriteFD = wfd
		}
	}
	if enableTime {
		s.timer = newTimerDriver()
	}
	return s, nil
}

// attachMetrics wires the runtime's counters in after construction (the
// Metrics instance and the stack are both created inside Builder.Build,
// with no dependency order between them).
func (s *DriverStack) attachMetrics(m *Metrics) { s.metrics = m }

// IO returns the stack's I/O driver, or nil if it wasn't enabled.
func (s *DriverStack) IO() *IODriver { return s.io }

// Signal returns the stack's signal driver, or nil if I/O (and therefore
// signal) wasn't enabled.
func (s *DriverStack) Signal() *SignalDriver { return s.signal }

// Timer returns the stack's timer driver, or nil if time wasn't enabled.
func (s *DriverStack) Timer() *TimerDriver { return s.timer }

// Err reports a driver that has poisoned itself after a fatal OS error
// (spec.md §7 kind 6), or nil if the stack is healthy.
func (s *DriverStack) Err() error {
	if s.io == nil {
		return nil
	}
	if fatal := s.io.fatal.Load(); fatal != nil {
		return fatal
	}
	return nil
}

// Park blocks until woken.
func (s *DriverStack) Park() { s.ParkTimeout(-1) }

// ParkTimeout performs one full park() step (spec.md §4.5): compute the
// bound from the timer wheel, park the innermost layer with it, process
// whatever that layer woke for, then fire any timers now due. Returns
// true if progress is likely waiting (an event was observed), false if
// the call returned purely because the timeout elapsed.
func (s *DriverStack) ParkTimeout(d time.Duration) bool {
	timeout := d
	if s.timer != nil {
		if deadline, ok := s.timer.NextDeadline(); ok {
			until := time.Until(deadline)
			if until < 0 {
				until = 0
			}
			if timeout < 0 || until < timeout {
				timeout = until
			}
		}
	}

	var woke bool
	if s.io != nil {
		n, err := s.io.Turn(timeout)
		woke = err != nil || n > 0
	} else {
		woke = s.base.ParkTimeout(timeout)
	}

	if s.timer != nil {
		if fired := s.timer.Turn(time.Now()); fired > 0 {
			woke = true
			s.metrics.addTimerFires(fired)
		}
	}
	return woke
}

// Unpark wakes a parked call to Park/ParkTimeout. Safe from any goroutine.
func (s *DriverStack) Unpark() {
	if s.wakeWriteFD >= 0 {
		writeSelfPipe(s.wakeWriteFD)
		return
	}
	s.base.Unpark()
}

// Unparker captures Unpark without exposing the rest of the stack,
// mirroring Parker.Unparker (spec.md §4.1).
func (s *DriverStack) Unparker() func() { return s.Unpark }

// Close tears the stack down in the reverse of construction order:
// signal before I/O, since the signal driver's self-pipe read end is
// registered with the I/O driver and must be torn down first.
func (s *DriverStack) Close() error {
	if s.signal != nil {
		_ = s.signal.Close()
	}
	if s.io != nil {
		_ = s.io.Close()
	}
	return nil
}
