package logsrv

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ehrlich-b/acceptord/internal/epoll"
	"github.com/ehrlich-b/acceptord/internal/iface"
	"github.com/ehrlich-b/acceptord/internal/usock"
)

// DefaultDir is the directory the log file and server socket are written
// into, relative to the process's working directory.
const DefaultDir = "./log"

// maxRecordSize bounds a single Recv to one record's worth of bytes.
const maxRecordSize = 1024 * 1024

// Server accepts Record bytes from any number of Client connections and
// appends each one to a single log file, flushing after every write.
type Server struct {
	dir        string
	socketPath string
	logPath    string

	file     *os.File
	listener *usock.Socket
	poller   epoll.Poller
	registry *epoll.Registry
	logger   iface.Logger
	observer iface.Observer

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewServer prepares a Server writing into dir (created if missing). The
// log file name is derived from the current time. observer may be nil, in
// which case every write is observed by a no-op.
func NewServer(dir string, logger iface.Logger, observer iface.Observer) (*Server, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logsrv: mkdir %s: %w", dir, err)
	}
	if observer == nil {
		observer = iface.NoOpObserver{}
	}
	logPath := filepath.Join(dir, TimeStamp()+".log")
	return &Server{
		dir:        dir,
		socketPath: filepath.Join(dir, "server.sock"),
		logPath:    logPath,
		logger:     logger,
		observer:   observer,
	}, nil
}

// SocketPath returns the Unix-domain path Clients connect to.
func (s *Server) SocketPath() string { return s.socketPath }

// Start opens the log file, binds the listening socket and launches the
// accept/receive loop in a goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("logsrv: server already started")
	}

	file, err := os.OpenFile(s.logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("logsrv: open %s: %w", s.logPath, err)
	}
	s.file = file

	listener := usock.New()
	if err := listener.Init(usock.Params{Path: s.socketPath, IsServer: true}); err != nil {
		file.Close()
		return fmt.Errorf("logsrv: init listener: %w", err)
	}
	if err := listener.Listen(); err != nil {
		file.Close()
		listener.Close()
		return fmt.Errorf("logsrv: listen %s: %w", s.socketPath, err)
	}
	s.listener = listener

	poller, err := epoll.New()
	if err != nil {
		file.Close()
		listener.Close()
		return fmt.Errorf("logsrv: new poller: %w", err)
	}
	s.poller = poller
	s.registry = epoll.NewRegistry()
	cookie := s.registry.Put(listener)
	if err := poller.Add(listener.Fd(), epoll.EventIn, cookie); err != nil {
		file.Close()
		listener.Close()
		poller.Close()
		return fmt.Errorf("logsrv: register listener: %w", err)
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.started = true
	go s.loop()
	return nil
}

func (s *Server) loop() {
	defer close(s.doneCh)
	events := make([]epoll.Event, 0, epoll.DefaultMaxEvents)
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}
		var err error
		events, err = s.poller.Wait(events[:0], epoll.DefaultWait)
		if err != nil {
			if s.logger != nil {
				s.logger.Printf("logsrv: wait: %v", err)
			}
			return
		}
		for _, ev := range events {
			s.handleEvent(ev)
		}
	}
}

func (s *Server) handleEvent(ev epoll.Event) {
	v, ok := s.registry.Get(ev.Cookie)
	if !ok {
		return
	}
	sock, ok := v.(*usock.Socket)
	if !ok {
		return
	}
	if sock == s.listener {
		s.acceptClient()
		return
	}
	s.recvFromClient(sock, ev.Cookie)
}

func (s *Server) acceptClient() {
	client, err := s.listener.Accept()
	if err != nil {
		return
	}
	cookie := s.registry.Put(client)
	if err := s.poller.Add(client.Fd(), epoll.EventIn, cookie); err != nil {
		client.Close()
		s.registry.Delete(cookie)
	}
}

func (s *Server) recvFromClient(sock *usock.Socket, cookie uint64) {
	buf := make([]byte, maxRecordSize)
	n, err := sock.Recv(buf)
	if err != nil || n == 0 {
		s.poller.Del(sock.Fd())
		s.registry.Delete(cookie)
		sock.Close()
		return
	}
	s.writeLine(buf[:n])
}

func (s *Server) writeLine(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		s.observer.ObserveLogWrite(len(p), false)
		return
	}
	if _, err := s.file.Write(p); err != nil {
		if s.logger != nil {
			s.logger.Printf("logsrv: write: %v", err)
		}
		s.observer.ObserveLogWrite(len(p), false)
		return
	}
	s.observer.ObserveLogWrite(len(p), true)
	s.file.Sync()
}

// Close stops the accept loop and releases every resource.
func (s *Server) Close() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poller != nil {
		s.poller.Close()
	}
	if s.listener != nil {
		s.listener.Close()
		os.Remove(s.socketPath)
	}
	if s.file != nil {
		s.file.Close()
	}
	return nil
}
