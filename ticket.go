package gorun

import "context"

// ticketPool backs the run-ticket discipline that recovers spec.md's
// single-runner-per-scheduler guarantee on top of real goroutines (see
// SPEC_FULL.md's "Grounding note on task model"). A worker may execute
// task code only while holding one of the pool's tickets; it must give
// the ticket back before any await point and take one back before
// resuming. Basic scheduler pools have exactly one ticket; Threaded pools
// have one per worker thread.
type ticketPool struct {
	tickets chan struct{}
}

func newTicketPool(n int) *ticketPool {
	p := &ticketPool{tickets: make(chan struct{}, n)}
	for i := 0; i < n; i++ {
		p.tickets <- struct{}{}
	}
	return p
}

func (p *ticketPool) acquire(ctx context.Context) error {
	select {
	case <-p.tickets:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ticketPool) release() {
	select {
	case p.tickets <- struct{}{}:
	default:
		// A release with no corresponding acquire is a bug in the
		// scheduler, not something a caller can trigger.
		panic("gorun: ticket released without being held")
	}
}

func (p *ticketPool) size() int { return cap(p.tickets) }

type ticketCtxKey struct{}

func withTicketPool(ctx context.Context, p *ticketPool) context.Context {
	return context.WithValue(ctx, ticketCtxKey{}, p)
}

func ticketPoolFromContext(ctx context.Context) *ticketPool {
	p, _ := ctx.Value(ticketCtxKey{}).(*ticketPool)
	return p
}

// yieldTicket releases the calling task's run ticket for the duration of
// fn and takes one back before returning. Sleep and JoinHandle.Wait
// (including the JoinHandle SpawnOnPool returns) go through this, which
// is what lets a Basic runtime's single worker ticket be held by at most
// one goroutine's task code at any instant even though the task body is a
// real, independently-schedulable goroutine rather than a polled future.
// BlockingPool.Run does not call it. Contexts with no pool attached (a
// Shell runtime, or code running outside any task) run fn directly.
func yieldTicket(ctx context.Context, fn func()) {
	p := ticketPoolFromContext(ctx)
	if p == nil {
		fn()
		return
	}
	p.release()
	fn()
	_ = p.acquire(context.Background())
}
