package process

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSplitProducesConnectedEndpoints(t *testing.T) {
	parent, child, err := Split()
	require.NoError(t, err)
	defer parent.Close()
	defer child.Close()

	require.NotEqual(t, parent.Fd(), child.Fd())
}

func TestSendRecvFD(t *testing.T) {
	parent, child, err := Split()
	require.NoError(t, err)
	defer parent.Close()
	defer child.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	tcpConn, err := ln.(*net.TCPListener).File()
	require.NoError(t, err)
	defer tcpConn.Close()

	require.NoError(t, parent.SendFD(int(tcpConn.Fd())))

	got, err := child.RecvFD()
	require.NoError(t, err)
	require.NotEqual(t, 0, got)
	unix.Close(got)
}

func TestRecvFDShutdown(t *testing.T) {
	parent, child, err := Split()
	require.NoError(t, err)
	defer parent.Close()
	defer child.Close()

	require.NoError(t, parent.SendShutdown())

	fd, err := child.RecvFD()
	require.NoError(t, err)
	require.Equal(t, ShutdownFD, fd)
}

func TestEndpointCloseIdempotent(t *testing.T) {
	parent, child, err := Split()
	require.NoError(t, err)
	defer child.Close()

	require.NoError(t, parent.Close())
	require.NoError(t, parent.Close())
}
