package gorun

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// signalGlobals is the process-wide object spec.md §4.4 describes: a
// shared registry mapping a signal number to the set of SignalDriver
// instances that currently care about it, guarded by one lock taken only
// at (de)registration. Rather than hand-roll the OS-level self-pipe
// inside a signal handler (not something plain Go code can safely do),
// this builds on os/signal, which already implements the async-signal-safe
// half of the pattern; signalGlobals only adds the broadcast fan-out spec.md
// wants on top of it, and each SignalDriver still owns its own private
// self-pipe so that one driver's Turn never starves another's (the exact
// hazard spec.md calls out), without two drivers ever sharing a descriptor.
type signalGlobals struct {
	mu   sync.Mutex
	subs map[syscall.Signal]*sigSub
}

type sigSub struct {
	osCh    chan os.Signal
	drivers map[*SignalDriver]bool
}

var globalSignals = &signalGlobals{subs: make(map[syscall.Signal]*sigSub)}

func (g *signalGlobals) subscribe(sig syscall.Signal, d *SignalDriver) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.subs[sig]
	if !ok {
		s = &sigSub{osCh: make(chan os.Signal, 16), drivers: make(map[*SignalDriver]bool)}
		g.subs[sig] = s
		signal.Notify(s.osCh, sig)
		go g.forward(sig, s)
	}
	s.drivers[d] = true
}

// unsubscribe drops d's interest in sig. The underlying os/signal
// registration and forwarder goroutine are left running even once no
// driver cares anymore: the set of distinct signals a process observes
// over its lifetime is small and bounded, so this is simpler than
// tearing down and safer than a repeated Notify/Stop race on the same
// channel.
func (g *signalGlobals) unsubscribe(sig syscall.Signal, d *SignalDriver) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.subs[sig]; ok {
		delete(s.drivers, d)
	}
}

func (g *signalGlobals) forward(sig syscall.Signal, s *sigSub) {
	for range s.osCh {
		g.mu.Lock()
		targets := make([]*SignalDriver, 0, len(s.drivers))
		for d := range s.drivers {
			targets = append(targets, d)
		}
		g.mu.Unlock()
		for _, d := range targets {
			d.notify(sig)
		}
	}
}

// SignalDriver converts OS signal delivery into driver-stack readiness
// (spec.md §4.4, C4): every live listener registered before a signal
// arrives observes it exactly once, and a Turn-based consumer parked in
// the I/O driver wakes promptly when one lands.
type SignalDriver struct {
	readFD, writeFD int
	reg             *Registration

	mu        sync.Mutex
	listeners map[syscall.Signal][]chan struct{}
	closed    atomic.Bool
}

func newSignalDriver(io *IODriver) (*SignalDriver, error) {
	rfd, wfd, err := createSelfPipe()
	if err != nil {
		return nil, err
	}
	d := &SignalDriver{
		readFD:    rfd,
		writeFD:   wfd,
		listeners: make(map[syscall.Signal][]chan struct{}),
	}
	if selfPipeSupportsPoll && io != nil {
		reg, err := io.Register(rfd, InterestRead, d.onReadable)
		if err != nil {
			closeSelfPipe(rfd, wfd)
			return nil, err
		}
		d.reg = reg
	}
	return d, nil
}

func (d *SignalDriver) onReadable() {
	drainSelfPipe(d.readFD)
}

// notify runs on signalGlobals' forwarder goroutine: it delivers to every
// listener immediately (channel sends are safe off the parked thread) and
// separately nudges the self-pipe so a Turn blocked in the I/O driver's
// wait doesn't sit past its next natural wakeup.
func (d *SignalDriver) notify(sig syscall.Signal) {
	if d.closed.Load() {
		return
	}
	d.mu.Lock()
	chs := append([]chan struct{}(nil), d.listeners[sig]...)
	d.mu.Unlock()
	for _, ch := range chs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	writeSelfPipe(d.writeFD)
}

// Listen registers interest in sig, returning a coalescing channel (one
// pending delivery buffered, matching the Parker's own coalescing
// semantics) and a cancel func that removes the listener.
func (d *SignalDriver) Listen(sig syscall.Signal) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	d.mu.Lock()
	d.listeners[sig] = append(d.listeners[sig], ch)
	d.mu.Unlock()
	globalSignals.subscribe(sig, d)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			lst := d.listeners[sig]
			for i, c := range lst {
				if c == ch {
					d.listeners[sig] = append(lst[:i], lst[i+1:]...)
					break
				}
			}
			// Other listeners on this driver for sig still need delivery.
			if len(d.listeners[sig]) == 0 {
				globalSignals.unsubscribe(sig, d)
			}
		})
	}
	return ch, cancel
}

// Close releases the driver's self-pipe and drops all of its listener
// subscriptions. Listeners on other live drivers for the same signal are
// unaffected (spec.md §4.4 per-driver isolation).
func (d *SignalDriver) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.mu.Lock()
	sigs := make([]syscall.Signal, 0, len(d.listeners))
	for s := range d.listeners {
		sigs = append(sigs, s)
	}
	d.listeners = nil
	d.mu.Unlock()

	for _, s := range sigs {
		globalSignals.unsubscribe(s, d)
	}
	if d.reg != nil {
		_ = d.reg.Deregister()
	}
	closeSelfPipe(d.readFD, d.writeFD)
	return nil
}
