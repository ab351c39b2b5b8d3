//go:build !linux && !darwin && !windows

package gorun

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// selectBackend is the portable fallback pollerBackend for POSIX
// platforms without a dedicated epoll/kqueue file (eventloop has no
// equivalent of this; every pack platform it targets gets a native
// backend). unix.Select has no incremental registration API, so this
// backend just tracks the registered set and rebuilds fd_sets on each
// wait — adequate for the driver contract (turn-based readiness
// dispatch), not for extreme fd counts.
type selectBackend struct {
	mu    sync.Mutex
	reads map[int]bool
	wrs   map[int]bool
}

func newPollerBackend() (pollerBackend, error) {
	return &selectBackend{reads: map[int]bool{}, wrs: map[int]bool{}}, nil
}

func (b *selectBackend) add(fd int, interest Interest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads[fd] = interest&InterestRead != 0
	b.wrs[fd] = interest&InterestWrite != 0
	return nil
}

func (b *selectBackend) modify(fd int, interest Interest) error {
	return b.add(fd, interest)
}

func (b *selectBackend) remove(fd int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.reads, fd)
	delete(b.wrs, fd)
	return nil
}

func (b *selectBackend) wait(timeout time.Duration, dst []pollEvent) ([]pollEvent, error) {
	b.mu.Lock()
	var rfds, wfds unix.FdSet
	maxFD := 0
	for fd, on := range b.reads {
		if on {
			fdSet(&rfds, fd)
			if fd > maxFD {
				maxFD = fd
			}
		}
	}
	for fd, on := range b.wrs {
		if on {
			fdSet(&wfds, fd)
			if fd > maxFD {
				maxFD = fd
			}
		}
	}
	b.mu.Unlock()

	var tv *unix.Timeval
	if timeout >= 0 {
		t := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &t
	}
	n, err := unix.Select(maxFD+1, &rfds, &wfds, nil, tv)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	if n == 0 {
		return dst, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for fd := range b.reads {
		if fdIsSet(&rfds, fd) {
			dst = append(dst, pollEvent{fd: fd, interest: InterestRead})
		}
	}
	for fd := range b.wrs {
		if fdIsSet(&wfds, fd) {
			dst = append(dst, pollEvent{fd: fd, interest: InterestWrite})
		}
	}
	return dst, nil
}

func (b *selectBackend) close() error {
	return nil
}

// fdSet/fdIsSet manipulate a unix.FdSet's Bits array directly: the x/sys
// package defines the struct layout per-platform but, unlike the
// standard C library, provides no FD_SET/FD_ISSET helpers itself.
func fdSet(set *unix.FdSet, fd int) {
	idx := fd / 64
	bit := uint(fd % 64)
	set.Bits[idx] |= 1 << bit
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	idx := fd / 64
	bit := uint(fd % 64)
	return set.Bits[idx]&(1<<bit) != 0
}
