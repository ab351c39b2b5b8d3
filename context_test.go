package gorun

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestEnter_ContextScopingRestoresPriorState covers Testable Property 3:
// after enter(f) returns, by normal return or panic, Context is exactly
// what it was before.
func TestEnter_ContextScopingRestoresPriorState(t *testing.T) {
	require.Nil(t, currentHandle())

	h1 := &Handle{name: "outer"}
	guard1 := enter(h1, false, "")
	require.Same(t, h1, currentHandle())

	h2 := &Handle{name: "inner"}
	guard2 := enter(h2, false, "")
	require.Same(t, h2, currentHandle())

	guard2.Exit()
	require.Same(t, h1, currentHandle())

	guard1.Exit()
	require.Nil(t, currentHandle())
}

func TestEnter_RestoresContextAcrossPanic(t *testing.T) {
	require.Nil(t, currentHandle())
	h := &Handle{name: "panicky"}

	func() {
		defer func() { _ = recover() }()
		h.Enter(func() {
			require.Same(t, h, currentHandle())
			panic("boom")
		})
	}()

	require.Nil(t, currentHandle())
}

func TestEnter_ExitIsIdempotent(t *testing.T) {
	h := &Handle{name: "solo"}
	guard := enter(h, false, "")
	guard.Exit()
	require.NotPanics(t, func() { guard.Exit() })
	require.Nil(t, currentHandle())
}

func TestCheckNotInTask_PanicsOnlyWhenInTaskFrameIsTop(t *testing.T) {
	require.NotPanics(t, func() { checkNotInTask() })

	h := &Handle{name: "worker"}
	guard := enter(h, true, "w0")
	defer guard.Exit()

	require.PanicsWithValue(t, &ReentrantBlockOnError{Worker: "w0"}, func() {
		checkNotInTask()
	})
}

func TestRequireRuntime_ErrorsOutsideAnyRuntime(t *testing.T) {
	_, err := requireRuntime()
	require.ErrorIs(t, err, ErrNotInRuntime)
}
