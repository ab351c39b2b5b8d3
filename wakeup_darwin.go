//go:build darwin

package gorun

import "syscall"

// selfPipeSupportsPoll is true here: the read end is a real fd that can be
// registered with IODriver's kqueue backend.
const selfPipeSupportsPoll = true

// createSelfPipe is grounded directly on the teacher's createWakeFd
// (eventloop/wakeup_darwin.go): Darwin has no eventfd, so the teacher
// already falls back to syscall.Pipe plus manual non-blocking/cloexec
// setup, which is exactly the self-pipe signal.go needs.
func createSelfPipe() (readFD, writeFD int, err error) {
	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return -1, -1, err
	}
	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])
	if err := syscall.SetNonblock(fds[0], true); err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return -1, -1, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

func writeSelfPipe(writeFD int) {
	var b [1]byte
	for {
		_, err := syscall.Write(writeFD, b[:])
		if err == syscall.EINTR {
			continue
		}
		return
	}
}

func drainSelfPipe(readFD int) int {
	var buf [64]byte
	n := 0
	for {
		m, err := syscall.Read(readFD, buf[:])
		if m > 0 {
			n += m
		}
		if err == syscall.EINTR {
			continue
		}
		if err != nil || m <= 0 {
			return n
		}
	}
}

func closeSelfPipe(readFD, writeFD int) {
	if readFD >= 0 {
		_ = syscall.Close(readFD)
	}
	if writeFD >= 0 && writeFD != readFD {
		_ = syscall.Close(writeFD)
	}
}
