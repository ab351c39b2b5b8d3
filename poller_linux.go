//go:build linux

package gorun

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollBackend implements pollerBackend using epoll, following the
// teacher's FastPoller (eventloop/poller_linux.go) minus its direct-index
// fdInfo array: ioEntry bookkeeping already lives in IODriver, so this
// type only wraps the epoll fd and the preallocated event buffer.
type epollBackend struct {
	epfd     int
	eventBuf [256]unix.EpollEvent
}

func newPollerBackend() (pollerBackend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollBackend{epfd: epfd}, nil
}

func (b *epollBackend) add(fd int, interest Interest) error {
	ev := &unix.EpollEvent{Events: interestToEpoll(interest), Fd: int32(fd)}
	return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, ev)
}

func (b *epollBackend) modify(fd int, interest Interest) error {
	ev := &unix.EpollEvent{Events: interestToEpoll(interest), Fd: int32(fd)}
	return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, ev)
}

func (b *epollBackend) remove(fd int) error {
	return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (b *epollBackend) wait(timeout time.Duration, dst []pollEvent) ([]pollEvent, error) {
	timeoutMs := -1
	if timeout >= 0 {
		timeoutMs = int(timeout.Milliseconds())
	}
	n, err := unix.EpollWait(b.epfd, b.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	for i := 0; i < n; i++ {
		dst = append(dst, pollEvent{
			fd:       int(b.eventBuf[i].Fd),
			interest: epollToInterest(b.eventBuf[i].Events),
		})
	}
	return dst, nil
}

func (b *epollBackend) close() error {
	return unix.Close(b.epfd)
}

func interestToEpoll(interest Interest) uint32 {
	var e uint32
	if interest&InterestRead != 0 {
		e |= unix.EPOLLIN
	}
	if interest&InterestWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func epollToInterest(events uint32) Interest {
	var i Interest
	if events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		i |= InterestRead
	}
	if events&unix.EPOLLOUT != 0 {
		i |= InterestWrite
	}
	return i
}
