package gorun

import (
	"context"
	"sync/atomic"
)

// driverRef emulates a weak reference to a DriverStack (spec.md §3, §9
// "Weak driver handles"): gone is flipped exactly once, by the owning
// Runtime's shutdown, after which every Handle accessor reports
// ErrDriverGone instead of touching a stack that may already be closed.
// Go has no managed-memory weak pointer in the sense spec.md's source
// language does, so this uses the generation-counter-like substitute
// spec.md §9 explicitly sanctions: "model this with a generation counter
// plus atomic pointer"; here the "generation" collapses to one bit since
// a Runtime only ever transitions live→gone once.
type driverRef struct {
	stack *DriverStack
	gone  atomic.Bool
}

func newDriverRef(stack *DriverStack) *driverRef {
	return &driverRef{stack: stack}
}

func (r *driverRef) invalidate() { r.gone.Store(true) }

// Handle is the cheap, cloneable public capability token (spec.md §4.10,
// C10): copying one by value is the supported "clone". It carries a
// Spawner (sched/pool) and weak references to the driver stack; it has no
// way back to the Runtime value itself, matching the "back reference,
// never ownership" relationship spec.md §9 calls out.
type Handle struct {
	sched   taskScheduler // nil on a Shell-kind runtime
	pool    *BlockingPool
	drivers *driverRef
	name    string
	metrics *Metrics
}

// IO returns the runtime's I/O driver, nil if it wasn't enabled, or
// ErrDriverGone if the runtime has shut down.
func (h *Handle) IO() (*IODriver, error) {
	if h.drivers.gone.Load() {
		return nil, ErrDriverGone
	}
	return h.drivers.stack.IO(), nil
}

// Timer returns the runtime's timer driver, nil if time wasn't enabled,
// or ErrDriverGone if the runtime has shut down.
func (h *Handle) Timer() (*TimerDriver, error) {
	if h.drivers.gone.Load() {
		return nil, ErrDriverGone
	}
	return h.drivers.stack.Timer(), nil
}

// Signal returns the runtime's signal driver, nil if I/O wasn't enabled,
// or ErrDriverGone if the runtime has shut down.
func (h *Handle) Signal() (*SignalDriver, error) {
	if h.drivers.gone.Load() {
		return nil, ErrDriverGone
	}
	return h.drivers.stack.Signal(), nil
}

// Pool returns the runtime's blocking pool, or ErrDriverGone once shut
// down.
func (h *Handle) Pool() (*BlockingPool, error) {
	if h.drivers.gone.Load() {
		return nil, ErrDriverGone
	}
	return h.pool, nil
}

// Spawn submits fn to the runtime's scheduler. It panics with
// ErrShellNoExec on a Shell-kind runtime (spec.md §7 kind 4, "task
// execution disabled").
func Spawn[T any](h *Handle, fn func(context.Context) (T, error)) *JoinHandle[T] {
	if h.sched == nil {
		panic(ErrShellNoExec)
	}
	return spawnTask(h.sched, context.Background(), fn)
}

// Shutdown delivers a shutdown signal that workers observe at their next
// park boundary (spec.md §4.10). It does not wait for them to stop; see
// Runtime.ShutdownTimeout for a bounded join.
func (h *Handle) Shutdown() {
	if h.sched != nil {
		h.sched.shutdown()
	}
}
