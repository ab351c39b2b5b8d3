//go:build linux

package gorun

import "golang.org/x/sys/unix"

// selfPipeSupportsPoll is true here: the read end is a real fd that can be
// registered with IODriver's epoll backend.
const selfPipeSupportsPoll = true

// createSelfPipe opens the self-pipe backing a SignalDriver, grounded on
// the teacher's createWakeFd (eventloop/wakeup_linux.go) but built from
// pipe2 rather than eventfd: signal delivery needs "at least one byte per
// wakeup, drained independently per driver", not an accumulating counter.
func createSelfPipe() (readFD, writeFD int, err error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

// writeSelfPipe posts one wakeup byte, matching the teacher's
// submitGenericWakeup intent of a best-effort non-blocking nudge: a full
// pipe buffer means a wakeup is already pending, so EAGAIN is not an error.
func writeSelfPipe(writeFD int) {
	var b [1]byte
	for {
		_, err := unix.Write(writeFD, b[:])
		if err == unix.EINTR {
			continue
		}
		return
	}
}

// drainSelfPipe empties the pipe, mirroring the teacher's
// drainWakeUpPipe loop-until-EAGAIN shape.
func drainSelfPipe(readFD int) int {
	var buf [64]byte
	n := 0
	for {
		m, err := unix.Read(readFD, buf[:])
		if m > 0 {
			n += m
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil || m <= 0 {
			return n
		}
	}
}

func closeSelfPipe(readFD, writeFD int) {
	if readFD >= 0 {
		_ = unix.Close(readFD)
	}
	if writeFD >= 0 && writeFD != readFD {
		_ = unix.Close(writeFD)
	}
}
