package gorun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stubScheduler runs bodies inline on their own goroutine with an
// unbounded ticket pool, enough to exercise JoinHandle without needing a
// full Basic/Threaded scheduler.
type stubScheduler struct {
	tickets *ticketPool
}

func newStubScheduler() *stubScheduler {
	return &stubScheduler{tickets: newTicketPool(4)}
}

func (s *stubScheduler) schedule(ctx context.Context, body func(context.Context)) {
	go body(withTicketPool(ctx, s.tickets))
}

func (s *stubScheduler) shutdown() {}

func TestSpawnTask_WaitReturnsValue(t *testing.T) {
	sched := newStubScheduler()
	jh := spawnTask[int](sched, context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	v, err := jh.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestSpawnTask_WaitReturnsError(t *testing.T) {
	sched := newStubScheduler()
	wantErr := errors.New("boom")
	jh := spawnTask[int](sched, context.Background(), func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	_, err := jh.Wait(context.Background())
	require.ErrorIs(t, err, wantErr)
}

func TestSpawnTask_PanicSurfacesAsTaskPanicError(t *testing.T) {
	sched := newStubScheduler()
	jh := spawnTask[int](sched, context.Background(), func(ctx context.Context) (int, error) {
		panic("kaboom")
	})
	_, err := jh.Wait(context.Background())
	var panicErr *TaskPanicError
	require.ErrorAs(t, err, &panicErr)
	require.Equal(t, "kaboom", panicErr.Value)
}

func TestJoinHandle_AbortCancelsContext(t *testing.T) {
	sched := newStubScheduler()
	started := make(chan struct{})
	jh := spawnTask[int](sched, context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	<-started
	jh.Abort()
	_, err := jh.Wait(context.Background())
	require.ErrorIs(t, err, context.Canceled)
}

func TestJoinHandle_IsDone(t *testing.T) {
	sched := newStubScheduler()
	release := make(chan struct{})
	jh := spawnTask[int](sched, context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	require.False(t, jh.IsDone())
	close(release)
	_, err := jh.Wait(context.Background())
	require.NoError(t, err)
	require.True(t, jh.IsDone())
}

func TestJoinHandle_WaitRespectsContext(t *testing.T) {
	sched := newStubScheduler()
	jh := spawnTask[int](sched, context.Background(), func(ctx context.Context) (int, error) {
		time.Sleep(time.Hour)
		return 0, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := jh.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
