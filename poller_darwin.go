//go:build darwin

package gorun

import (
	"time"

	"golang.org/x/sys/unix"
)

// kqueueBackend implements pollerBackend using kqueue, following the
// teacher's Darwin FastPoller (eventloop/poller_darwin.go).
type kqueueBackend struct {
	kq       int
	eventBuf [256]unix.Kevent_t
}

func newPollerBackend() (pollerBackend, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &kqueueBackend{kq: kq}, nil
}

func (b *kqueueBackend) changes(fd int, interest Interest, flags uint16) []unix.Kevent_t {
	var changes []unix.Kevent_t
	if interest&InterestRead != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if interest&InterestWrite != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return changes
}

func (b *kqueueBackend) add(fd int, interest Interest) error {
	changes := b.changes(fd, interest, unix.EV_ADD|unix.EV_ENABLE|unix.EV_CLEAR)
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(b.kq, changes, nil, nil)
	return err
}

func (b *kqueueBackend) modify(fd int, interest Interest) error {
	// kqueue has no single "modify": remove both filters then re-add the
	// requested ones. Benign if a filter wasn't previously registered.
	_, _ = unix.Kevent(b.kq, []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}, nil, nil)
	return b.add(fd, interest)
}

func (b *kqueueBackend) remove(fd int) error {
	_, err := unix.Kevent(b.kq, []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}, nil, nil)
	return err
}

func (b *kqueueBackend) wait(timeout time.Duration, dst []pollEvent) ([]pollEvent, error) {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	n, err := unix.Kevent(b.kq, nil, b.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	for i := 0; i < n; i++ {
		ev := b.eventBuf[i]
		var interest Interest
		switch ev.Filter {
		case unix.EVFILT_READ:
			interest = InterestRead
		case unix.EVFILT_WRITE:
			interest = InterestWrite
		}
		dst = append(dst, pollEvent{fd: int(ev.Ident), interest: interest})
	}
	return dst, nil
}

func (b *kqueueBackend) close() error {
	return unix.Close(b.kq)
}
