// Package iface holds the small interfaces shared across acceptord's
// packages. Kept separate from the concrete implementations to avoid import
// cycles between the root package and internal/process, internal/bus, etc.
package iface

import "github.com/ehrlich-b/acceptord/internal/process"

// Business is the external collaborator that receives handed-off TCP
// clients. The core (component G) never inspects the client bytes itself;
// it spawns a process running Business.Serve and ships every accepted
// connection to it as a live file descriptor over a process.Endpoint.
// acceptord ships one trivial implementation under examples/echobusiness.
type Business interface {
	// Serve runs in the forked child process. It must loop on
	// ep.RecvFD until the endpoint reports the shutdown sentinel
	// (fd == -1) or an unrecoverable error, handling each delivered
	// client fd as a complete connection.
	Serve(ep *process.Endpoint) error
}

// Logger is the minimal logging surface used by internal packages that
// can't import internal/logging directly without a cycle (process,
// notably, is imported by iface, which logging does not depend on, so this
// indirection exists mainly to keep call sites swappable in tests).
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Observer receives point-in-time counters from the accept/dispatch core,
// the task bus, and the logger server. Implementations must be safe for
// concurrent use; methods are called from hot paths.
type Observer interface {
	ObserveAccept(success bool)
	ObserveHandoff(success bool)
	ObserveTaskSubmit(success bool)
	ObserveTaskExec(latencyNs uint64)
	ObserveLogWrite(bytes int, success bool)
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveAccept(bool)        {}
func (NoOpObserver) ObserveHandoff(bool)       {}
func (NoOpObserver) ObserveTaskSubmit(bool)    {}
func (NoOpObserver) ObserveTaskExec(uint64)    {}
func (NoOpObserver) ObserveLogWrite(int, bool) {}
