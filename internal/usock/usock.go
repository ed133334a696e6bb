// Package usock implements the socket abstraction (component B): a thin
// state machine over IPv4 TCP, IPv4 UDP, and Unix-domain stream sockets,
// enforcing an Uninit/Initialized/Connected/Closed lifecycle before
// allowing Send/Recv.
package usock

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

// State is the socket's lifecycle stage.
type State int

const (
	StateUninit State = iota
	StateInitialized
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninit:
		return "uninit"
	case StateInitialized:
		return "initialized"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Network selects the address family/socket type a Socket is created
// with; it's the discriminant of the sum-typed Params the way spec.md's
// SocketParams unions an inet and a Unix-domain address struct, except
// Go gets one field instead of two.
type Network int

const (
	// NetworkUnix is a Unix-domain stream socket addressed by Params.Path.
	NetworkUnix Network = iota
	// NetworkTCP is an IPv4 stream socket addressed by Params.Addr/Port.
	NetworkTCP
	// NetworkUDP is an IPv4 datagram socket addressed by Params.Addr/Port.
	NetworkUDP
)

func (n Network) String() string {
	switch n {
	case NetworkUnix:
		return "unix"
	case NetworkTCP:
		return "tcp"
	case NetworkUDP:
		return "udp"
	default:
		return "unknown"
	}
}

// ErrWrongState is returned when an operation is attempted outside the
// state it requires.
var ErrWrongState = errors.New("usock: wrong state for operation")

// Params configures a new Socket. It carries both the inet fields
// (Addr/Port) and the Unix-domain field (Path); only the one selected by
// Network is authoritative, exactly as spec.md §3's SocketParams keeps
// both address structs but trusts only the one is-inet names.
type Params struct {
	// Network selects inet-TCP, inet-UDP, or Unix-domain.
	Network Network
	// Addr is the inet host to bind or connect to. Empty means the
	// wildcard address (INADDR_ANY) for a server, invalid for a client.
	Addr string
	// Port is the inet port to bind or connect to.
	Port int
	// Path is the Unix-domain socket path for Listen/Connect.
	Path string
	// IsServer marks this Params for the Listen (not Connect) path;
	// Listen and Connect each check it and fail on a mismatch.
	IsServer bool
	// NonBlocking switches the fd to non-blocking mode once created.
	NonBlocking bool
	// Backlog is the listen(2) backlog, used only by Listen.
	Backlog int
}

// IsInet reports whether params names an IPv4 socket rather than a
// Unix-domain one.
func (p Params) IsInet() bool { return p.Network != NetworkUnix }

// IsUDP reports whether params names a datagram socket.
func (p Params) IsUDP() bool { return p.Network == NetworkUDP }

// Socket wraps a single socket fd (Unix-domain stream, IPv4 TCP, or IPv4
// UDP) with an Init/Listen-or-Connect/Send/Recv/Close state machine. It is
// safe for concurrent Send and Recv from different goroutines, but not
// for concurrent Close alongside either (Close is idempotent and will not
// race incorrectly, but in-flight Send/Recv calls may return errors once
// it runs).
type Socket struct {
	mu     sync.Mutex
	fd     int
	state  State
	params Params
	once   sync.Once
}

// New returns an uninitialized Socket.
func New() *Socket {
	return &Socket{state: StateUninit}
}

// FromFd wraps an already-connected fd (e.g. one handed across a process
// boundary or returned by Accept) as a Connected Socket.
func FromFd(fd int) *Socket {
	return &Socket{fd: fd, state: StateConnected}
}

// Init creates the underlying socket(2) fd according to params.Network,
// advancing Uninit -> Initialized. NonBlocking, if set, switches the fd
// to non-blocking mode immediately.
func (s *Socket) Init(params Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUninit {
		return fmt.Errorf("usock: init: %w (state=%s)", ErrWrongState, s.state)
	}

	domain := unix.AF_LOCAL
	typ := unix.SOCK_STREAM
	if params.IsInet() {
		domain = unix.AF_INET
	}
	if params.IsUDP() {
		typ = unix.SOCK_DGRAM
	}

	fd, err := unix.Socket(domain, typ, 0)
	if err != nil {
		return fmt.Errorf("usock: socket: %w", err)
	}
	if params.NonBlocking {
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fd)
			return fmt.Errorf("usock: set non-blocking: %w", err)
		}
	}
	s.fd = fd
	s.params = params
	s.state = StateInitialized
	return nil
}

func sockaddrInet4(addr string, port int) (*unix.SockaddrInet4, error) {
	ip := net.IPv4zero
	if addr != "" {
		parsed := net.ParseIP(addr)
		if parsed == nil {
			return nil, fmt.Errorf("usock: invalid address %q", addr)
		}
		ip = parsed
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("usock: address %q is not IPv4", addr)
	}
	var out [4]byte
	copy(out[:], ip4)
	return &unix.SockaddrInet4{Port: port, Addr: out}, nil
}

func (s *Socket) sockaddr() (unix.Sockaddr, error) {
	if s.params.IsInet() {
		return sockaddrInet4(s.params.Addr, s.params.Port)
	}
	return &unix.SockaddrUnix{Name: s.params.Path}, nil
}

// Listen binds and, for TCP/Unix, listens on params.Addr:Port or
// params.Path, advancing Initialized -> Connected (a listening socket is
// considered "connected" in the sense that it's ready for Accept). UDP
// sockets bind but skip listen(2), matching spec.md §4.B's "UDP may
// no-op". Requires params.IsServer.
func (s *Socket) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitialized {
		return fmt.Errorf("usock: listen: %w (state=%s)", ErrWrongState, s.state)
	}
	if !s.params.IsServer {
		return fmt.Errorf("usock: listen: params.IsServer is false")
	}

	if s.params.Network == NetworkUnix {
		unix.Unlink(s.params.Path)
	}
	addr, err := s.sockaddr()
	if err != nil {
		return fmt.Errorf("usock: listen: %w", err)
	}
	if err := unix.Bind(s.fd, addr); err != nil {
		return fmt.Errorf("usock: bind: %w", err)
	}

	if !s.params.IsUDP() {
		backlog := s.params.Backlog
		if backlog <= 0 {
			backlog = 128
		}
		if err := unix.Listen(s.fd, backlog); err != nil {
			return fmt.Errorf("usock: listen: %w", err)
		}
	}
	s.state = StateConnected
	return nil
}

// Connect dials params.Addr:Port or params.Path, advancing Initialized ->
// Connected. Requires !params.IsServer.
func (s *Socket) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitialized {
		return fmt.Errorf("usock: connect: %w (state=%s)", ErrWrongState, s.state)
	}
	if s.params.IsServer {
		return fmt.Errorf("usock: connect: params.IsServer is true")
	}
	addr, err := s.sockaddr()
	if err != nil {
		return fmt.Errorf("usock: connect: %w", err)
	}
	if err := unix.Connect(s.fd, addr); err != nil {
		return fmt.Errorf("usock: connect: %w", err)
	}
	s.state = StateConnected
	return nil
}

// Accept blocks for the next incoming connection on a listening Socket
// and returns it as a new, already-Connected Socket.
func (s *Socket) Accept() (*Socket, error) {
	s.mu.Lock()
	fd := s.fd
	state := s.state
	s.mu.Unlock()
	if state != StateConnected {
		return nil, fmt.Errorf("usock: accept: %w (state=%s)", ErrWrongState, state)
	}
	nfd, _, err := unix.Accept(fd)
	if err != nil {
		return nil, fmt.Errorf("usock: accept: %w", err)
	}
	return FromFd(nfd), nil
}

// LocalAddr reports the address this Socket is bound to: "host:port" for
// TCP/UDP (resolving a ":0" wildcard port to the kernel-assigned one), or
// the Unix-domain path.
func (s *Socket) LocalAddr() (string, error) {
	s.mu.Lock()
	fd := s.fd
	params := s.params
	s.mu.Unlock()

	if !params.IsInet() {
		return params.Path, nil
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return "", fmt.Errorf("usock: getsockname: %w", err)
	}
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return "", fmt.Errorf("usock: unexpected sockaddr type %T", sa)
	}
	ip := net.IP(sa4.Addr[:])
	return net.JoinHostPort(ip.String(), strconv.Itoa(sa4.Port)), nil
}

// Send writes p in full, retrying on EINTR. In non-blocking mode, a
// would-block on the first write returns (0, nil): no progress, no
// error, caller retries later. It requires the Connected state.
func (s *Socket) Send(p []byte) (int, error) {
	s.mu.Lock()
	state := s.state
	fd := s.fd
	s.mu.Unlock()
	if state != StateConnected {
		return 0, fmt.Errorf("usock: send: %w (state=%s)", ErrWrongState, state)
	}
	total := 0
	for total < len(p) {
		n, err := unix.Write(fd, p[total:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if total == 0 && (err == unix.EAGAIN || err == unix.EWOULDBLOCK) {
				return 0, nil
			}
			return total, fmt.Errorf("usock: write: %w", err)
		}
		if n == 0 {
			return total, fmt.Errorf("usock: write: %w", unix.EPIPE)
		}
		total += n
	}
	return total, nil
}

// Recv reads up to len(p) bytes, retrying on EINTR. Would-block reads
// return (0, nil): no data, no error. A return of (0,
// nil) from a readable event otherwise means the peer closed its side in
// an orderly shutdown.
func (s *Socket) Recv(p []byte) (int, error) {
	s.mu.Lock()
	state := s.state
	fd := s.fd
	s.mu.Unlock()
	if state != StateConnected {
		return 0, fmt.Errorf("usock: recv: %w (state=%s)", ErrWrongState, state)
	}
	for {
		n, err := unix.Read(fd, p)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return 0, nil
			}
			return 0, fmt.Errorf("usock: read: %w", err)
		}
		return n, nil
	}
}

// Fd returns the underlying descriptor.
func (s *Socket) Fd() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fd
}

// State reports the current lifecycle stage.
func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close shuts down and releases the fd, unlinking the Unix-domain path if
// this handle was bound as a Unix-domain server. It is idempotent.
func (s *Socket) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state == StateUninit {
			s.state = StateClosed
			return
		}
		err = unix.Close(s.fd)
		s.fd = -1
		s.state = StateClosed
		if s.params.Network == NetworkUnix && s.params.IsServer && s.params.Path != "" {
			unix.Unlink(s.params.Path)
		}
	})
	return err
}
