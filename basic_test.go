package gorun

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestBasicScheduler_SlotConservation covers Testable Property 4: after
// any number of nested BlockOn calls, the scheduler slot is non-empty iff
// it was non-empty initially.
func TestBasicScheduler_SlotConservation(t *testing.T) {
	stack, err := newDriverStack(false, true)
	require.NoError(t, err)
	defer stack.Close()

	sched := newBasicScheduler(stack, nil)
	defer sched.shutdown()
	h := &Handle{sched: sched, name: "basic"}
	sched.setHandle(h)

	require.True(t, sched.slotFull)

	v, err := blockOnBasic[int](h, sched, func(ctx context.Context) (int, error) {
		require.False(t, sched.slotFull)
		inner, err := blockOnBasic[int](h, sched, func(ctx context.Context) (int, error) {
			return 99, nil
		})
		require.NoError(t, err)
		return inner, nil
	})
	require.NoError(t, err)
	require.Equal(t, 99, v)
	require.True(t, sched.slotFull)
}

func TestBasicScheduler_OnlyOneTaskRunsAtATime(t *testing.T) {
	stack, err := newDriverStack(false, true)
	require.NoError(t, err)
	defer stack.Close()

	sched := newBasicScheduler(stack, nil)
	defer sched.shutdown()
	h := &Handle{sched: sched, name: "basic"}
	sched.setHandle(h)

	var active int
	maxActive := 0
	release := make(chan struct{})

	jh1 := spawnTask[int](sched, context.Background(), func(ctx context.Context) (int, error) {
		active++
		if active > maxActive {
			maxActive = active
		}
		<-release
		active--
		return 1, nil
	})
	jh2 := Spawn(h, func(ctx context.Context) (int, error) {
		active++
		if active > maxActive {
			maxActive = active
		}
		active--
		return 2, nil
	})

	time.Sleep(20 * time.Millisecond)
	close(release)

	v1, err := jh1.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v1)
	v2, err := jh2.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, v2)
	require.Equal(t, 1, maxActive)
}
