//go:build linux

package epoll

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// linuxPoller is a Poller backed directly by the epoll(7) syscalls via
// golang.org/x/sys/unix, with a cookie kept alongside each registration so
// Wait can return it without a second lookup.
type linuxPoller struct {
	mu     sync.Mutex
	epfd   int
	cookie map[int]uint64
	closed bool
}

// New creates a Poller using epoll_create1.
func New() (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll: epoll_create1: %w", err)
	}
	return &linuxPoller{epfd: fd, cookie: make(map[int]uint64)}, nil
}

func (p *linuxPoller) Add(fd int, events EventMask, cookie uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ev := &unix.EpollEvent{Events: uint32(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return fmt.Errorf("epoll: ctl add fd=%d: %w", fd, err)
	}
	p.cookie[fd] = cookie
	return nil
}

func (p *linuxPoller) Modify(fd int, events EventMask, cookie uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ev := &unix.EpollEvent{Events: uint32(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev); err != nil {
		return fmt.Errorf("epoll: ctl mod fd=%d: %w", fd, err)
	}
	p.cookie[fd] = cookie
	return nil
}

func (p *linuxPoller) Del(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cookie, fd)
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err != nil && err != unix.ENOENT {
		return fmt.Errorf("epoll: ctl del fd=%d: %w", fd, err)
	}
	return nil
}

func (p *linuxPoller) Wait(dst []Event, timeout time.Duration) ([]Event, error) {
	cap := cap(dst)
	if cap == 0 {
		cap = DefaultMaxEvents
	}
	raw := make([]unix.EpollEvent, cap)

	ms := int(timeout / time.Millisecond)
	if timeout < 0 {
		ms = -1
	}

	n, err := unix.EpollWait(p.epfd, raw, ms)
	if err != nil {
		if err == unix.EINTR {
			return dst[:0], nil
		}
		return nil, fmt.Errorf("epoll: epoll_wait: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	out := dst[:0]
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		out = append(out, Event{
			Fd:     fd,
			Events: EventMask(raw[i].Events),
			Cookie: p.cookie[fd],
		})
	}
	return out, nil
}

func (p *linuxPoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.epfd)
}
