package acceptord

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewErrorFormatsOpAndMsg(t *testing.T) {
	err := NewError("accept", ErrCodeIO, "listener closed")
	require.Contains(t, err.Error(), "op=accept")
	require.Contains(t, err.Error(), "listener closed")
}

func TestWrapErrorMapsErrno(t *testing.T) {
	err := WrapError("spawn", syscall.EMFILE)
	require.True(t, IsCode(err, ErrCodeResourceLimit))
	require.Equal(t, syscall.EMFILE, err.Errno)
}

func TestWrapErrorPreservesStructuredError(t *testing.T) {
	inner := NewFdError("send", 7, ErrCodeClosed, "peer hung up")
	wrapped := WrapError("dispatch", inner)
	require.Equal(t, 7, wrapped.Fd)
	require.Equal(t, ErrCodeClosed, wrapped.Code)
}

func TestIsCodeViaErrorsAs(t *testing.T) {
	err := NewError("bus.submit", ErrCodeBusy, "queue full")
	var wrapped error = errors.New("context: " + err.Error())
	require.False(t, IsCode(wrapped, ErrCodeBusy))
	require.True(t, IsCode(err, ErrCodeBusy))
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := NewError("op1", ErrCodeTimeout, "slow")
	b := NewError("op2", ErrCodeTimeout, "also slow")
	require.True(t, errors.Is(a, b))
}
