package acceptord

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured acceptord error with context and errno
// mapping. The root package's Server returns one of these, wrapping the
// plain errors of the process spawner, the task bus and the listener, so
// callers can branch on Code.
type Error struct {
	Op    string    // Operation that failed (e.g. "init", "spawn", "listen")
	Fd    int       // File descriptor involved, -1 if not applicable
	Code  ErrorCode // High-level error category
	Errno syscall.Errno
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Fd >= 0 {
		parts = append(parts, fmt.Sprintf("fd=%d", e.Fd))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("acceptord: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("acceptord: %s", msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode categorizes an Error's failure mode.
type ErrorCode string

const (
	ErrCodeNotImplemented ErrorCode = "not implemented"
	ErrCodeBusy           ErrorCode = "busy"
	ErrCodeInvalidParams  ErrorCode = "invalid parameters"
	ErrCodeNotSupported   ErrorCode = "operation not supported"
	ErrCodePermission     ErrorCode = "permission denied"
	ErrCodeResourceLimit  ErrorCode = "insufficient resources"
	ErrCodeIO             ErrorCode = "I/O error"
	ErrCodeTimeout        ErrorCode = "timeout"
	ErrCodeClosed         ErrorCode = "closed"
)

// NewError creates a structured error with no fd or errno context.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Fd: -1, Code: code, Msg: msg}
}

// NewErrorWithErrno creates a structured error carrying a kernel errno.
func NewErrorWithErrno(op string, code ErrorCode, errno syscall.Errno) *Error {
	return &Error{Op: op, Fd: -1, Code: code, Errno: errno, Msg: errno.Error()}
}

// NewFdError creates a structured error tied to a specific descriptor.
func NewFdError(op string, fd int, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Fd: fd, Code: code, Msg: msg}
}

// WrapError wraps inner with acceptord context, mapping a raw
// syscall.Errno to an ErrorCode where possible.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ae, ok := inner.(*Error); ok {
		return &Error{Op: op, Fd: ae.Fd, Code: ae.Code, Errno: ae.Errno, Msg: ae.Msg, Inner: ae.Inner}
	}
	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Fd: -1, Code: mapErrnoToCode(errno), Errno: errno, Msg: errno.Error(), Inner: inner}
	}
	return &Error{Op: op, Fd: -1, Code: ErrCodeIO, Msg: inner.Error(), Inner: inner}
}

func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.EBUSY:
		return ErrCodeBusy
	case syscall.EINVAL, syscall.E2BIG:
		return ErrCodeInvalidParams
	case syscall.ENOSYS, syscall.EOPNOTSUPP:
		return ErrCodeNotSupported
	case syscall.EPERM, syscall.EACCES:
		return ErrCodePermission
	case syscall.ENOMEM, syscall.ENOSPC, syscall.EMFILE, syscall.ENFILE:
		return ErrCodeResourceLimit
	case syscall.ETIMEDOUT:
		return ErrCodeTimeout
	case syscall.EPIPE, syscall.ECONNRESET:
		return ErrCodeClosed
	default:
		return ErrCodeIO
	}
}

// IsCode reports whether err is, or wraps, an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
