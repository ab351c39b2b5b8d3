package gorun

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuilder_DefaultsToThreadedWithNoDrivers(t *testing.T) {
	rt, err := NewBuilder().Build()
	require.NoError(t, err)
	defer rt.ShutdownBackground()
	require.Equal(t, KindThreaded, rt.kind)

	io, err := rt.Handle().IO()
	require.NoError(t, err)
	require.Nil(t, io)

	timer, err := rt.Handle().Timer()
	require.NoError(t, err)
	require.Nil(t, timer)
}

func TestNew_IsThreadedWithAllDriversEnabled(t *testing.T) {
	rt, err := New()
	require.NoError(t, err)
	defer rt.ShutdownBackground()

	io, err := rt.Handle().IO()
	require.NoError(t, err)
	require.NotNil(t, io)

	timer, err := rt.Handle().Timer()
	require.NoError(t, err)
	require.NotNil(t, timer)
}

// TestE2_SleepThenSpawn mirrors spec.md E2: on a threaded runtime with 2
// cores, 1000 tasks each sleep 10ms then return their index; the result
// set must equal {0..999} and wall time must stay well under 500ms since
// tasks sleep concurrently rather than serially.
func TestE2_SleepThenSpawn(t *testing.T) {
	rt, err := NewBuilder().Threaded().CoreThreads(2).EnableAll().Build()
	require.NoError(t, err)
	defer rt.ShutdownTimeout(time.Second)

	const n = 1000
	handles := make([]*JoinHandle[int], n)
	start := time.Now()
	for i := 0; i < n; i++ {
		i := i
		handles[i] = Spawn(rt.Handle(), func(ctx context.Context) (int, error) {
			if err := Sleep(ctx, 10*time.Millisecond); err != nil {
				return 0, err
			}
			return i, nil
		})
	}

	seen := make(map[int]bool, n)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, h := range handles {
		h := h
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := h.Wait(context.Background())
			require.NoError(t, err)
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	require.Len(t, seen, n)
	for i := 0; i < n; i++ {
		require.True(t, seen[i], "missing result %d", i)
	}
	require.Less(t, elapsed, 500*time.Millisecond)
}

// TestE3_NestedBlockOnOnBasic mirrors spec.md E3: a nested BlockOn call on
// the Basic scheduler succeeds rather than deadlocking or panicking.
func TestE3_NestedBlockOnOnBasic(t *testing.T) {
	rt, err := NewBuilder().Basic().EnableAll().Build()
	require.NoError(t, err)
	defer rt.ShutdownTimeout(time.Second)

	v, err := BlockOn(rt, context.Background(), func(ctx context.Context) (int, error) {
		return BlockOn(rt, context.Background(), func(ctx context.Context) (int, error) {
			return 42, nil
		})
	})
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

// TestE4_BlockOnInsideTaskOnThreadedPanics mirrors spec.md E4: calling
// BlockOn from within a task running on the threaded scheduler panics with
// a recognizable message rather than deadlocking.
func TestE4_BlockOnInsideTaskOnThreadedPanics(t *testing.T) {
	rt, err := NewBuilder().Threaded().CoreThreads(2).EnableAll().Build()
	require.NoError(t, err)
	defer rt.ShutdownTimeout(time.Second)

	panicCh := make(chan any, 1)
	h := Spawn(rt.Handle(), func(ctx context.Context) (int, error) {
		defer func() {
			panicCh <- recover()
		}()
		return BlockOn(rt, context.Background(), func(ctx context.Context) (int, error) {
			return 1, nil
		})
	})
	_, _ = h.Wait(context.Background())

	r := <-panicCh
	require.NotNil(t, r)
	reentrant, ok := r.(*ReentrantBlockOnError)
	require.True(t, ok, "expected a *ReentrantBlockOnError, got %T", r)
	require.True(t, strings.Contains(reentrant.Error(), "cannot call BlockOn"))
}

// TestE5_ShutdownTimeoutBoundedDespiteLongBlockingWork mirrors spec.md E5:
// a blocking closure that runs far longer than the shutdown deadline does
// not delay ShutdownTimeout's return.
func TestE5_ShutdownTimeoutBoundedDespiteLongBlockingWork(t *testing.T) {
	rt, err := NewBuilder().Threaded().EnableAll().MaxBlockingThreads(4).Build()
	require.NoError(t, err)

	pool, err := rt.Handle().Pool()
	require.NoError(t, err)
	started := make(chan struct{})
	_ = SpawnOnPool[struct{}](context.Background(), pool, func() (struct{}, error) {
		close(started)
		time.Sleep(10 * time.Second)
		return struct{}{}, nil
	})
	<-started

	start := time.Now()
	rt.ShutdownTimeout(100 * time.Millisecond)
	elapsed := time.Since(start)
	require.Less(t, elapsed, 300*time.Millisecond)
}

func TestHandle_AccessorsFailAfterShutdown(t *testing.T) {
	rt, err := New()
	require.NoError(t, err)
	h := rt.Handle()
	rt.ShutdownBackground()

	_, err = h.IO()
	require.ErrorIs(t, err, ErrDriverGone)
	_, err = h.Timer()
	require.ErrorIs(t, err, ErrDriverGone)
	_, err = h.Pool()
	require.ErrorIs(t, err, ErrDriverGone)
}

func TestHandle_SpawnPanicsOnShellRuntime(t *testing.T) {
	rt, err := NewBuilder().Shell().EnableAll().Build()
	require.NoError(t, err)
	defer rt.ShutdownBackground()

	require.PanicsWithValue(t, ErrShellNoExec, func() {
		Spawn(rt.Handle(), func(ctx context.Context) (int, error) { return 0, nil })
	})
}

func TestRuntime_MetricsTracksTaskCompletion(t *testing.T) {
	rt, err := NewBuilder().Basic().EnableAll().EnableMetrics().Build()
	require.NoError(t, err)
	defer rt.ShutdownTimeout(time.Second)

	h := Spawn(rt.Handle(), func(ctx context.Context) (int, error) { return 7, nil })
	_, err = h.Wait(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap := rt.Metrics()
		return snap.TasksSpawned >= 1 && snap.TasksCompleted >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestRuntime_MetricsZeroWhenDisabled(t *testing.T) {
	rt, err := NewBuilder().Basic().EnableAll().Build()
	require.NoError(t, err)
	defer rt.ShutdownTimeout(time.Second)

	h := Spawn(rt.Handle(), func(ctx context.Context) (int, error) { return 7, nil })
	_, err = h.Wait(context.Background())
	require.NoError(t, err)

	snap := rt.Metrics()
	require.Zero(t, snap.TasksSpawned)
	require.Zero(t, snap.TasksCompleted)
}
