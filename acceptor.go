// Package acceptord accepts TCP connections and hands each one off, as a
// live file descriptor, to an external business process (component G).
// It never reads a byte of client traffic itself.
package acceptord

import (
	"context"
	"net"
	"strconv"
	"sync"

	"github.com/ehrlich-b/acceptord/internal/bus"
	"github.com/ehrlich-b/acceptord/internal/iface"
	"github.com/ehrlich-b/acceptord/internal/process"
	"github.com/ehrlich-b/acceptord/internal/usock"
	"golang.org/x/sys/unix"
)

// Business is the external collaborator that serves handed-off clients.
type Business = iface.Business

// State is the server's lifecycle stage.
type State string

const (
	StateCreated State = "created"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// Params configures a new Server.
type Params struct {
	// Addr is the TCP listen address, e.g. "127.0.0.1:9999".
	Addr string
	// EntryName is not read by Init; the business process entry point is
	// Init's business argument, which must match a name previously passed
	// to process.RegisterEntry.
	EntryName string
	// DispatchWorkers is the size of the internal task-bus pool used to
	// fan incoming connections out to SendFD calls. Defaults to 2.
	DispatchWorkers int
}

// Options carries optional collaborators.
type Options struct {
	Logger   iface.Logger
	Observer iface.Observer
}

// Server accepts TCP connections on Params.Addr and hands each accepted
// fd to a forked business subprocess via a process.Endpoint.
type Server struct {
	addr string

	ctx    context.Context
	cancel context.CancelFunc

	ln       *usock.Socket
	pool     *bus.Pool
	endpoint *process.Endpoint
	child    *process.Handle

	logger   iface.Logger
	observer iface.Observer

	mu      sync.Mutex
	started bool
}

// Init creates the Server: it spawns the business subprocess, wires up
// its own task-bus dispatch pool, and binds the TCP listener, but does
// not yet start accepting connections. Call Run to begin serving.
func Init(business string, params Params, options *Options) (*Server, error) {
	if business == "" {
		return nil, NewError("init", ErrCodeInvalidParams, "business entry name required")
	}
	if params.Addr == "" {
		params.Addr = "127.0.0.1:9999"
	}
	workers := params.DispatchWorkers
	if workers <= 0 {
		workers = 2
	}
	if options == nil {
		options = &Options{}
	}
	logger := options.Logger
	observer := options.Observer
	if observer == nil {
		observer = iface.NoOpObserver{}
	}

	endpoint, child, err := process.Spawn(business)
	if err != nil {
		return nil, WrapError("spawn", err)
	}

	pool, err := bus.New(bus.Config{Workers: workers, Observer: observer, Logger: logger})
	if err != nil {
		endpoint.Close()
		child.Kill()
		return nil, WrapError("bus.new", err)
	}

	host, portStr, err := net.SplitHostPort(params.Addr)
	if err != nil {
		pool.Close()
		endpoint.Close()
		child.Kill()
		return nil, WrapError("listen", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		pool.Close()
		endpoint.Close()
		child.Kill()
		return nil, WrapError("listen", err)
	}

	ln := usock.New()
	if err := ln.Init(usock.Params{Network: usock.NetworkTCP, Addr: host, Port: port, IsServer: true, Backlog: 32}); err != nil {
		pool.Close()
		endpoint.Close()
		child.Kill()
		return nil, WrapError("listen", err)
	}
	if err := ln.Listen(); err != nil {
		ln.Close()
		pool.Close()
		endpoint.Close()
		child.Kill()
		return nil, WrapError("listen", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:     params.Addr,
		ctx:      ctx,
		cancel:   cancel,
		ln:       ln,
		pool:     pool,
		endpoint: endpoint,
		child:    child,
		logger:   logger,
		observer: observer,
	}
	return s, nil
}

// Run starts the dispatch pool and the accept loop. It blocks until the
// listener is closed or the context is cancelled, parking on
// usock.Socket.Accept rather than polling.
func (s *Server) Run() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return NewError("run", ErrCodeInvalidParams, "server already running")
	}
	s.started = true
	s.mu.Unlock()

	s.pool.Start(s.ctx)

	for {
		client, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return nil
			default:
			}
			s.observer.ObserveAccept(false)
			if s.logger != nil {
				s.logger.Printf("acceptord: accept: %v", err)
			}
			continue
		}
		s.observer.ObserveAccept(true)
		s.dispatch(client)
	}
}

func (s *Server) dispatch(client *usock.Socket) {
	err := s.pool.Submit(func() {
		defer client.Close()
		if sendErr := s.endpoint.SendFD(client.Fd()); sendErr != nil {
			s.observer.ObserveHandoff(false)
			if s.logger != nil {
				s.logger.Printf("acceptord: send client fd: %v", sendErr)
			}
			return
		}
		s.observer.ObserveHandoff(true)
	})
	if err != nil {
		client.Close()
		s.observer.ObserveHandoff(false)
	}
}

// State reports the server's current lifecycle stage.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return StateCreated
	}
	select {
	case <-s.ctx.Done():
		return StateStopped
	default:
		return StateRunning
	}
}

// Addr returns the actual listen address, including the port the kernel
// assigned when Params.Addr used a ":0" wildcard port.
func (s *Server) Addr() string {
	if s.ln != nil {
		if addr, err := s.ln.LocalAddr(); err == nil {
			return addr
		}
	}
	return s.addr
}

// Close stops accepting connections, notifies the business subprocess to
// shut down, and releases every resource. It does not wait for the
// subprocess to exit; call Wait for that.
func (s *Server) Close() error {
	s.cancel()
	if s.ln != nil {
		// Closing the fd alone does not wake a goroutine blocked in
		// accept(2); shutting the listener down first does.
		unix.Shutdown(s.ln.Fd(), unix.SHUT_RDWR)
		s.ln.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.endpoint != nil {
		s.endpoint.SendShutdown()
		s.endpoint.Close()
	}
	return nil
}

// Wait blocks until the business subprocess has exited.
func (s *Server) Wait() error {
	if s.child == nil {
		return nil
	}
	return s.child.Wait()
}

// ChildPID returns the business subprocess's PID.
func (s *Server) ChildPID() int {
	if s.child == nil {
		return 0
	}
	return s.child.Pid()
}
