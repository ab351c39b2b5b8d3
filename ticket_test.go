package gorun

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTicketPool_BoundsConcurrency(t *testing.T) {
	pool := newTicketPool(2)
	var active atomic.Int32
	var maxActive atomic.Int32

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			require.NoError(t, pool.acquire(context.Background()))
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			pool.release()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	require.LessOrEqual(t, int(maxActive.Load()), 2)
}

func TestTicketPool_AcquireRespectsContext(t *testing.T) {
	pool := newTicketPool(1)
	require.NoError(t, pool.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTicketPool_ReleaseWithoutAcquirePanics(t *testing.T) {
	pool := newTicketPool(1)
	pool.release()
	require.Panics(t, func() { pool.release() })
}

func TestYieldTicket_ReleasesAndReacquires(t *testing.T) {
	pool := newTicketPool(1)
	require.NoError(t, pool.acquire(context.Background()))
	ctx := withTicketPool(context.Background(), pool)

	var sawReleased bool
	yieldTicket(ctx, func() {
		// the ticket must be free for another acquirer during fn
		err := pool.acquire(context.Background())
		sawReleased = err == nil
		if err == nil {
			pool.release()
		}
	})
	require.True(t, sawReleased)
	// and it must be held again once yieldTicket returns
	require.Equal(t, 0, len(pool.tickets))
}

func TestYieldTicket_NoopWithoutPool(t *testing.T) {
	ran := false
	yieldTicket(context.Background(), func() { ran = true })
	require.True(t, ran)
}
