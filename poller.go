package gorun

import (
	"sync"
	"sync/atomic"
	"time"
)

// Interest is a readiness mask a caller registers for (spec.md §3,
// Registration).
type Interest uint32

const (
	// InterestRead requests wakeups when a source becomes readable.
	InterestRead Interest = 1 << iota
	// InterestWrite requests wakeups when a source becomes writable.
	InterestWrite
)

// pollerBackend is the OS-specific half of the I/O Driver: one syscall
// multiplexor (epoll/kqueue/...), with no knowledge of Registration
// bookkeeping. Platform files (poller_linux.go, poller_darwin.go,
// poller_other.go) each provide one implementation, following the
// teacher's per-OS poller_*.go split (eventloop).
type pollerBackend interface {
	add(fd int, interest Interest) error
	modify(fd int, interest Interest) error
	remove(fd int) error
	// wait blocks up to timeout (timeout < 0 means forever) and appends
	// ready (fd, interest) pairs observed to dst, returning the updated
	// slice.
	wait(timeout time.Duration, dst []pollEvent) ([]pollEvent, error)
	close() error
}

type pollEvent struct {
	fd       int
	interest Interest
}

// ioEntry is the driver's bookkeeping for one registered fd, shared by
// every platform backend.
type ioEntry struct {
	fd         int
	interest   Interest
	readReady  atomic.Bool
	writeReady atomic.Bool
	waker      func()
}

// Registration is the handle returned by IODriver.Register (spec.md §3).
// It is the caller's only way to read accumulated readiness and to
// deregister; it intentionally exposes no way back to the driver's
// internals.
type Registration struct {
	driver *IODriver
	entry  *ioEntry
}

// TakeReadReady consumes and clears the read-readiness flag, returning
// whether the source was observed readable since the last call.
func (r *Registration) TakeReadReady() bool {
	return r.entry.readReady.Swap(false)
}

// TakeWriteReady consumes and clears the write-readiness flag.
func (r *Registration) TakeWriteReady() bool {
	return r.entry.writeReady.Swap(false)
}

// Reregister updates the interest mask for this registration in place.
func (r *Registration) Reregister(interest Interest) error {
	return r.driver.modify(r.entry, interest)
}

// Deregister removes the source from the I/O driver. After it returns, no
// further readiness for the source reaches the driver (spec.md §4.2).
func (r *Registration) Deregister() error {
	return r.driver.deregister(r)
}

// IODriver demultiplexes OS readiness events to registered resources
// (spec.md §4.2, C2). DriverStack.ParkTimeout drives it through Turn,
// which waits on the I/O multiplexor and then dispatches readiness to the
// resources it woke (spec.md §4.5's "process I/O events" step).
type IODriver struct {
	backend pollerBackend

	mu      sync.RWMutex
	entries map[int]*ioEntry

	closed atomic.Bool
	fatal  atomic.Pointer[FatalDriverError]

	evBuf []pollEvent
}

// newIODriver constructs the I/O driver for the current platform.
func newIODriver() (*IODriver, error) {
	backend, err := newPollerBackend()
	if err != nil {
		return nil, err
	}
	return &IODriver{
		backend: backend,
		entries: make(map[int]*ioEntry),
		evBuf:   make([]pollEvent, 0, 128),
	}, nil
}

// Register binds fd to the driver with the given initial interest. waker
// is invoked (from the driver's own goroutine, during Turn) whenever new
// readiness for fd is observed; it should be cheap (typically a
// Parker.Unpark of whatever task is waiting on this resource).
func (d *IODriver) Register(fd int, interest Interest, waker func()) (*Registration, error) {
	if d.closed.Load() {
		return nil, ErrPollerClosed
	}
	d.mu.Lock()
	if _, exists := d.entries[fd]; exists {
		d.mu.Unlock()
		return nil, ErrFDAlreadyRegistered
	}
	entry := &ioEntry{fd: fd, interest: interest, waker: waker}
	d.entries[fd] = entry
	d.mu.Unlock()

	if err := d.backend.add(fd, interest); err != nil {
		d.mu.Lock()
		delete(d.entries, fd)
		d.mu.Unlock()
		return nil, err
	}

	getLogger().Debug().Int(`fd`, int64(fd)).Log(`gorun: io: registered`)
	return &Registration{driver: d, entry: entry}, nil
}

func (d *IODriver) modify(entry *ioEntry, interest Interest) error {
	d.mu.Lock()
	if _, ok := d.entries[entry.fd]; !ok {
		d.mu.Unlock()
		return ErrFDNotRegistered
	}
	entry.interest = interest
	d.mu.Unlock()
	return d.backend.modify(entry.fd, interest)
}

func (d *IODriver) deregister(r *Registration) error {
	d.mu.Lock()
	if _, ok := d.entries[r.entry.fd]; !ok {
		d.mu.Unlock()
		return ErrFDNotRegistered
	}
	delete(d.entries, r.entry.fd)
	d.mu.Unlock()
	return d.backend.remove(r.entry.fd)
}

// Turn waits up to timeout (negative means forever) and dispatches
// readiness to registered wakers, returning the number of events
// observed. A fatal OS error poisons the driver: every future Turn
// returns the same FatalDriverError, including after Close (spec.md
// §4.2 failure model, §7 kind 6).
func (d *IODriver) Turn(timeout time.Duration) (int, error) {
	if fatal := d.fatal.Load(); fatal != nil {
		return 0, fatal
	}
	if d.closed.Load() {
		return 0, ErrPollerClosed
	}

	d.evBuf = d.evBuf[:0]
	events, err := d.backend.wait(timeout, d.evBuf)
	if err != nil {
		fatal := &FatalDriverError{Driver: "io", Cause: err}
		d.fatal.Store(fatal)
		return 0, fatal
	}

	for _, ev := range events {
		d.mu.RLock()
		entry, ok := d.entries[ev.fd]
		d.mu.RUnlock()
		if !ok {
			continue
		}
		if ev.interest&InterestRead != 0 {
			entry.readReady.Store(true)
		}
		if ev.interest&InterestWrite != 0 {
			entry.writeReady.Store(true)
		}
		if entry.waker != nil {
			entry.waker()
		}
	}
	return len(events), nil
}

// Close shuts the driver down. Register and Turn return ErrPollerClosed
// afterward. Reregister and Deregister on an existing Registration do not
// check for Close; they return whatever error the closed backend reports.
// Handle accessors report ErrDriverGone from the runtime's driverRef,
// independently of this driver.
func (d *IODriver) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.backend.close()
}
