package usock

import (
	"net"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func socketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.sock")
}

func TestInitRequiresUninit(t *testing.T) {
	s := New()
	require.NoError(t, s.Init(Params{Path: socketPath(t), IsServer: true}))
	defer s.Close()
	require.ErrorIs(t, s.Init(Params{}), ErrWrongState)
}

func TestListenConnectAcceptRoundTrip(t *testing.T) {
	path := socketPath(t)

	server := New()
	require.NoError(t, server.Init(Params{Path: path, IsServer: true}))
	require.NoError(t, server.Listen())
	defer server.Close()

	client := New()
	require.NoError(t, client.Init(Params{Path: path}))
	require.NoError(t, client.Connect())
	defer client.Close()

	accepted, err := server.Accept()
	require.NoError(t, err)
	defer accepted.Close()

	const msg = "ping"
	n, err := client.Send([]byte(msg))
	require.NoError(t, err)
	require.Equal(t, len(msg), n)

	buf := make([]byte, 16)
	n, err = accepted.Recv(buf)
	require.NoError(t, err)
	require.Equal(t, msg, string(buf[:n]))
}

func TestListenRequiresIsServer(t *testing.T) {
	s := New()
	require.NoError(t, s.Init(Params{Path: socketPath(t)}))
	defer s.Close()
	require.Error(t, s.Listen())
}

func TestConnectRejectsIsServer(t *testing.T) {
	s := New()
	require.NoError(t, s.Init(Params{Path: socketPath(t), IsServer: true}))
	defer s.Close()
	require.Error(t, s.Connect())
}

func TestSendBeforeConnectFails(t *testing.T) {
	s := New()
	require.NoError(t, s.Init(Params{Path: socketPath(t)}))
	defer s.Close()

	_, err := s.Send([]byte("x"))
	require.ErrorIs(t, err, ErrWrongState)
}

func TestCloseIdempotent(t *testing.T) {
	s := New()
	require.NoError(t, s.Init(Params{Path: socketPath(t)}))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.Equal(t, StateClosed, s.State())
}

func TestCloseUnlinksUnixServerPath(t *testing.T) {
	path := socketPath(t)
	s := New()
	require.NoError(t, s.Init(Params{Path: path, IsServer: true}))
	require.NoError(t, s.Listen())
	require.NoError(t, s.Close())

	require.NoFileExists(t, path)
}

func TestFromFdStartsConnected(t *testing.T) {
	path := socketPath(t)
	server := New()
	require.NoError(t, server.Init(Params{Path: path, IsServer: true}))
	require.NoError(t, server.Listen())
	defer server.Close()

	client := New()
	require.NoError(t, client.Init(Params{Path: path}))
	require.NoError(t, client.Connect())
	defer client.Close()

	wrapped := FromFd(client.Fd())
	require.Equal(t, StateConnected, wrapped.State())
}

func requireLoopbackTCP(t *testing.T) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skip("loopback TCP not available in this sandbox")
	}
	ln.Close()
}

func TestTCPListenConnectAcceptRoundTrip(t *testing.T) {
	requireLoopbackTCP(t)

	server := New()
	require.NoError(t, server.Init(Params{Network: NetworkTCP, Addr: "127.0.0.1", Port: 0, IsServer: true}))
	require.NoError(t, server.Listen())
	defer server.Close()

	addr, err := server.LocalAddr()
	require.NoError(t, err)
	require.NotEmpty(t, addr)

	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", host)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client := New()
	require.NoError(t, client.Init(Params{Network: NetworkTCP, Addr: "127.0.0.1", Port: port}))
	require.NoError(t, client.Connect())
	defer client.Close()

	accepted, err := server.Accept()
	require.NoError(t, err)
	defer accepted.Close()

	const msg = "ping"
	n, err := client.Send([]byte(msg))
	require.NoError(t, err)
	require.Equal(t, len(msg), n)

	buf := make([]byte, 16)
	n, err = accepted.Recv(buf)
	require.NoError(t, err)
	require.Equal(t, msg, string(buf[:n]))
}

func TestUDPSkipsListenButBinds(t *testing.T) {
	requireLoopbackTCP(t)

	s := New()
	require.NoError(t, s.Init(Params{Network: NetworkUDP, Addr: "127.0.0.1", Port: 0, IsServer: true}))
	require.NoError(t, s.Listen())
	defer s.Close()

	addr, err := s.LocalAddr()
	require.NoError(t, err)
	require.NotEmpty(t, addr)
}
