package gorun

// EnterGuard is returned by Handle.Enter. Exit pops exactly the Context
// frame this guard installed, restoring Context to what it was before
// Enter was called — including across a panic, since callers are expected
// to `defer guard.Exit()` (spec.md Testable Property 3).
type EnterGuard struct {
	gid    uint64
	popped bool
}

// Exit pops this guard's Context frame. Idempotent: only the first call
// has an effect.
func (g *EnterGuard) Exit() {
	if g.popped {
		return
	}
	g.popped = true
	popContext(g.gid)
}

// enter installs a Context frame for h on the calling goroutine and
// returns a guard to pop it. inTask marks frames pushed around a
// scheduler's own task-body execution, not user calls to Handle.Enter —
// see checkNotInTask.
func enter(h *Handle, inTask bool, worker string) *EnterGuard {
	gid := pushContext(&contextFrame{handle: h, inTask: inTask, worker: worker})
	return &EnterGuard{gid: gid}
}

// Enter installs Context for the dynamic extent of fn and guarantees its
// removal on return, including by panic (spec.md §4.10).
func (h *Handle) Enter(fn func()) {
	guard := enter(h, false, "")
	defer guard.Exit()
	fn()
}
