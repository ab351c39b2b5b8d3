package gorun

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSleep_WaitsApproximatelyTheRequestedDuration(t *testing.T) {
	rt, err := NewBuilder().Basic().EnableAll().Build()
	require.NoError(t, err)
	defer rt.ShutdownTimeout(time.Second)

	v, err := BlockOn(rt, context.Background(), func(ctx context.Context) (time.Duration, error) {
		start := time.Now()
		if err := Sleep(ctx, 30*time.Millisecond); err != nil {
			return 0, err
		}
		return time.Since(start), nil
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, v, 30*time.Millisecond)
	require.Less(t, v, 300*time.Millisecond)
}

func TestSleep_CancelledByContext(t *testing.T) {
	rt, err := NewBuilder().Basic().EnableAll().Build()
	require.NoError(t, err)
	defer rt.ShutdownTimeout(time.Second)

	_, err = BlockOn(rt, context.Background(), func(ctx context.Context) (int, error) {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		return 0, Sleep(cctx, time.Hour)
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSleep_ErrorsOutsideAnyRuntime(t *testing.T) {
	err := Sleep(context.Background(), time.Millisecond)
	require.ErrorIs(t, err, ErrNotInRuntime)
}
