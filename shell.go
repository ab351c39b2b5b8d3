package gorun

import "context"

// ShellScheduler backs a Kind with no task execution at all (spec.md
// §4.9, C9): only the driver stack is available. There is no
// taskScheduler implementation for Shell — Handle.sched stays nil, so
// Spawn panics with ErrShellNoExec before ever reaching a scheduler.
// ShellScheduler's only job is to own and pump the driver stack.
type ShellScheduler struct {
	stack    *DriverStack
	pumpStop chan struct{}
	pumpDone chan struct{}
}

func newShellScheduler(stack *DriverStack) *ShellScheduler {
	s := &ShellScheduler{stack: stack, pumpStop: make(chan struct{}), pumpDone: make(chan struct{})}
	go s.pump()
	return s
}

func (s *ShellScheduler) pump() {
	defer close(s.pumpDone)
	for {
		select {
		case <-s.pumpStop:
			return
		default:
		}
		s.stack.ParkTimeout(driverPumpInterval)
	}
}

func (s *ShellScheduler) shutdown() { close(s.pumpStop) }

func (s *ShellScheduler) waitStopped(ctx context.Context) bool {
	select {
	case <-s.pumpDone:
		return true
	case <-ctx.Done():
		return false
	}
}

// blockOnShell uses a raw enter and runs fn directly against the driver
// stack, with no scheduler underneath it at all (spec.md §4.9): every
// call, nested or not, takes this same path since there is no slot to
// conserve.
func blockOnShell[T any](h *Handle, fn func(context.Context) (T, error)) (T, error) {
	guard := enter(h, false, "shell")
	defer guard.Exit()
	return safeExecute(context.Background(), fn)
}
