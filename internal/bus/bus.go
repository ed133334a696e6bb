// Package bus implements the task bus (component F): a pool of worker
// goroutines that pull work items off a shared queue. The queue is also
// exposed as a listening Unix-domain socket, accepting an 8-byte payload
// per submission, so the fd accounting and listen-socket lifecycle of a
// wire-level task handoff can be exercised end to end. A raw pointer
// can't safely cross a byte channel under the Go GC, so that wire path
// carries an opaque handle into a lookup table rather than a pointer.
// Submit, the primary path, instead hands tasks to the pool directly
// through a buffered Go channel and never touches the wire at all.
package bus

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ehrlich-b/acceptord/internal/epoll"
	"github.com/ehrlich-b/acceptord/internal/iface"
	"github.com/ehrlich-b/acceptord/internal/usock"
	"github.com/ehrlich-b/acceptord/internal/worker"
)

// Task is a unit of work submitted to the Pool.
type Task func()

// SocketPath generates a task-bus socket path from the current time:
// seconds and nanoseconds, joined as "<sec>.<nsec>.sock" under dir.
func SocketPath(dir string) string {
	now := time.Now()
	sec := now.Unix() % 100000
	nsec := now.Nanosecond() % 1000000
	return fmt.Sprintf("%s/%d.%d.sock", dir, sec, nsec)
}

// Pool is a fixed-size set of worker goroutines draining a shared task
// queue, fronted by a listening Unix-domain socket for the wire-level
// submission path (see package doc).
type Pool struct {
	path     string
	tasks    chan Task
	workers  []*worker.Worker
	listener *usock.Socket
	poller   epoll.Poller
	registry *epoll.Registry
	observer iface.Observer
	logger   iface.Logger

	mu      sync.Mutex
	handles map[uint64]Task
	nextH   uint64
}

// Config configures a Pool.
type Config struct {
	// Path is the task-bus socket path. Defaults to SocketPath(os.TempDir()).
	Path     string
	Workers  int
	Observer iface.Observer
	Logger   iface.Logger
}

// New creates and binds a Pool's listening socket but does not yet start
// its workers; call Start.
func New(cfg Config) (*Pool, error) {
	path := cfg.Path
	if path == "" {
		path = SocketPath(os.TempDir())
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	obs := cfg.Observer
	if obs == nil {
		obs = iface.NoOpObserver{}
	}

	listener := usock.New()
	if err := listener.Init(usock.Params{Path: path, IsServer: true, Backlog: workers * 2}); err != nil {
		return nil, fmt.Errorf("bus: init listener: %w", err)
	}
	if err := listener.Listen(); err != nil {
		listener.Close()
		return nil, fmt.Errorf("bus: listen %s: %w", path, err)
	}

	poller, err := epoll.New()
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("bus: new poller: %w", err)
	}
	registry := epoll.NewRegistry()
	cookie := registry.Put(listener)
	if err := poller.Add(listener.Fd(), epoll.EventIn, cookie); err != nil {
		listener.Close()
		poller.Close()
		return nil, fmt.Errorf("bus: register listener: %w", err)
	}

	p := &Pool{
		path:     path,
		tasks:    make(chan Task, workers*64),
		listener: listener,
		poller:   poller,
		registry: registry,
		observer: obs,
		logger:   cfg.Logger,
		handles:  make(map[uint64]Task),
	}
	p.workers = make([]*worker.Worker, workers)
	for i := range p.workers {
		p.workers[i] = worker.New(p.dispatchOnce)
	}
	return p, nil
}

// Start launches the pool's worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		w.Start(ctx)
	}
}

// Submit enqueues fn for execution by the next free worker. It never
// blocks on the wire path; the socket exists for parity and for external
// processes that want to observe bus activity via the epoll set, not as
// the only way in.
func (p *Pool) Submit(fn Task) error {
	select {
	case p.tasks <- fn:
		p.observer.ObserveTaskSubmit(true)
		return nil
	default:
		p.observer.ObserveTaskSubmit(false)
		return fmt.Errorf("bus: queue full")
	}
}

func (p *Pool) dispatchOnce(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case fn, ok := <-p.tasks:
		if !ok {
			return nil
		}
		start := time.Now()
		fn()
		p.observer.ObserveTaskExec(uint64(time.Since(start).Nanoseconds()))
		return nil
	}
}

// Close stops all workers and tears down the listening socket.
func (p *Pool) Close() error {
	for _, w := range p.workers {
		w.Stop()
	}
	for _, w := range p.workers {
		w.Wait()
	}
	p.poller.Close()
	err := p.listener.Close()
	os.Remove(p.path)
	return err
}

// Path returns the bus's socket path.
func (p *Pool) Path() string { return p.path }
