package gorun

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThreadedScheduler_BoundsConcurrencyToCoreThreads(t *testing.T) {
	stack, err := newDriverStack(false, true)
	require.NoError(t, err)
	defer stack.Close()

	sched := newThreadedScheduler(3, stack, nil)
	defer sched.shutdown()
	h := &Handle{sched: sched, name: "threaded"}
	sched.setHandle(h)

	const n = 30
	var active atomic.Int32
	var maxActive atomic.Int32
	release := make(chan struct{})

	handles := make([]*JoinHandle[int], n)
	for i := 0; i < n; i++ {
		handles[i] = Spawn(h, func(ctx context.Context) (int, error) {
			c := active.Add(1)
			for {
				m := maxActive.Load()
				if c <= m || maxActive.CompareAndSwap(m, c) {
					break
				}
			}
			<-release
			active.Add(-1)
			return 0, nil
		})
	}

	require.Eventually(t, func() bool { return active.Load() == 3 }, time.Second, 5*time.Millisecond)
	close(release)
	for _, jh := range handles {
		_, err := jh.Wait(context.Background())
		require.NoError(t, err)
	}
	require.LessOrEqual(t, int(maxActive.Load()), 3)
}

func TestThreadedScheduler_BlockOnRejectsCallFromWithinATask(t *testing.T) {
	stack, err := newDriverStack(false, true)
	require.NoError(t, err)
	defer stack.Close()

	sched := newThreadedScheduler(2, stack, nil)
	defer sched.shutdown()
	h := &Handle{sched: sched, name: "threaded"}
	sched.setHandle(h)

	panicked := make(chan bool, 1)
	jh := Spawn(h, func(ctx context.Context) (int, error) {
		defer func() { panicked <- recover() != nil }()
		return blockOnThreaded[int](h, sched, func(ctx context.Context) (int, error) {
			return 0, nil
		})
	})
	_, _ = jh.Wait(context.Background())
	require.True(t, <-panicked)
}

func TestThreadedScheduler_BlockOnFromOutsideATaskSucceeds(t *testing.T) {
	stack, err := newDriverStack(false, true)
	require.NoError(t, err)
	defer stack.Close()

	sched := newThreadedScheduler(2, stack, nil)
	defer sched.shutdown()
	h := &Handle{sched: sched, name: "threaded"}
	sched.setHandle(h)

	v, err := blockOnThreaded[int](h, sched, func(ctx context.Context) (int, error) {
		return 5, nil
	})
	require.NoError(t, err)
	require.Equal(t, 5, v)
}
