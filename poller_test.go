package gorun

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestIODriver_TakeReadReadyReflectsPipeWrites covers the C2 contract's
// "Owner reads readiness events via take_read_ready/take_write_ready"
// requirement: TakeReadReady must report true exactly once per observed
// readiness, and false once it's been consumed with nothing new written.
func TestIODriver_TakeReadReadyReflectsPipeWrites(t *testing.T) {
	driver, err := newIODriver()
	require.NoError(t, err)
	defer driver.Close()

	r, w := mustPipe(t)
	defer r.Close()
	defer w.Close()

	var woken int
	reg, err := driver.Register(int(r.Fd()), InterestRead, func() { woken++ })
	require.NoError(t, err)

	require.False(t, reg.TakeReadReady(), "no data written yet")

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	n, err := driver.Turn(time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, woken)

	require.True(t, reg.TakeReadReady())
	require.False(t, reg.TakeReadReady(), "readiness must be cleared after being taken")
}

// TestIODriver_ReregisterSwitchesInterestToWrite covers Reregister: a
// registration started with InterestRead only observes write readiness
// once switched via Reregister.
func TestIODriver_ReregisterSwitchesInterestToWrite(t *testing.T) {
	driver, err := newIODriver()
	require.NoError(t, err)
	defer driver.Close()

	r, w := mustPipe(t)
	defer r.Close()
	defer w.Close()

	reg, err := driver.Register(int(w.Fd()), InterestRead, func() {})
	require.NoError(t, err)

	require.NoError(t, reg.Reregister(InterestWrite))

	_, err = driver.Turn(time.Second)
	require.NoError(t, err)

	require.True(t, reg.TakeWriteReady(), "pipe write end should be writable once polled for write interest")
	require.False(t, reg.TakeReadReady(), "no read interest was registered")
}

func mustPipe(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	return r, w
}
