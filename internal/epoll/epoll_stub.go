//go:build !linux

package epoll

import (
	"errors"
	"time"
)

// ErrUnsupported is returned by every operation on non-Linux platforms;
// acceptord's readiness multiplexer is epoll-specific.
var ErrUnsupported = errors.New("epoll: not supported on this platform")

type stubPoller struct{}

// New returns no Poller and ErrUnsupported; stubPoller's methods likewise
// report ErrUnsupported. acceptord targets Linux; this exists so the rest
// of the module still builds elsewhere for editing and vetting.
func New() (Poller, error) {
	return nil, ErrUnsupported
}

func (stubPoller) Add(fd int, events EventMask, cookie uint64) error { return ErrUnsupported }
func (stubPoller) Modify(fd int, events EventMask, cookie uint64) error { return ErrUnsupported }
func (stubPoller) Del(fd int) error { return ErrUnsupported }
func (stubPoller) Wait(dst []Event, timeout time.Duration) ([]Event, error) {
	return nil, ErrUnsupported
}
func (stubPoller) Close() error { return ErrUnsupported }
