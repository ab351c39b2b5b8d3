package gorun

import (
	"context"
	"time"
)

// Sleep suspends the calling task until d has elapsed, releasing its run
// ticket for the duration so other tasks make progress meanwhile (spec.md
// §4.3's Sleep future, §4.7/§4.8's await-point ticket handoff). Outside a
// task (no ambient ticket pool) it degenerates to a plain blocking sleep,
// still honoring ctx cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	h, err := requireRuntime()
	if err != nil {
		return err
	}
	timer, terr := h.Timer()
	if terr != nil {
		return terr
	}
	if timer == nil {
		return &FatalDriverError{Driver: "timer", Cause: ErrDriverGone}
	}

	woke := make(chan struct{}, 1)
	handle := timer.Register(time.Now().Add(d), func() {
		select {
		case woke <- struct{}{}:
		default:
		}
	})

	wait := func() {
		select {
		case <-woke:
		case <-ctx.Done():
			timer.Cancel(handle)
		}
	}
	yieldTicket(ctx, wait)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}
