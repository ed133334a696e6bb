// Package process implements the subprocess spawner (component D): a
// socketpair-connected channel between a parent and a child process, used
// to hand live file descriptors (accepted client connections) across the
// process boundary with SCM_RIGHTS ancillary messages.
//
// A bare fork() in Go cannot safely continue running arbitrary Go code in
// the child: the runtime's other goroutines, timers and the GC simply
// vanish without the exec() that POSIX fork+exec pairs rely on. acceptord
// instead registers entry points by name in a process-wide table and
// re-execs the current binary with an environment variable naming which
// one to run; the child's first action is to look itself up in the table
// and call it. This keeps the spawn call synchronous while routing the
// parent/child split through exec instead of a bare fork.
package process

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// EntryFunc is a registered child entry point. It receives the Endpoint
// connected back to the parent and returns when the child should exit.
type EntryFunc func(ep *Endpoint) error

const entryEnvVar = "ACCEPTORD_ENTRY"
const fdEnvVar = "ACCEPTORD_ENTRY_FD"

var (
	registryMu sync.Mutex
	registry   = map[string]EntryFunc{}
)

// RegisterEntry names fn so it can be selected as a child entry point by
// Spawn. Call this from an init() in the same binary that calls Spawn;
// registration must happen before Maybe ReExec runs, which main() should
// call first thing.
func RegisterEntry(name string, fn EntryFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// MaybeReExec checks whether this process was started as a registered
// child entry point (ACCEPTORD_ENTRY set in the environment) and, if so,
// runs the matching entry function against the inherited fd and exits the
// process with its return status. It is a no-op, returning immediately,
// for the parent process. Call this as the first statement of main().
func MaybeReExec() {
	name := os.Getenv(entryEnvVar)
	if name == "" {
		return
	}
	registryMu.Lock()
	fn, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		fmt.Fprintf(os.Stderr, "acceptord: unknown subprocess entry %q\n", name)
		os.Exit(1)
	}

	var fd int
	if _, err := fmt.Sscanf(os.Getenv(fdEnvVar), "%d", &fd); err != nil {
		fmt.Fprintf(os.Stderr, "acceptord: malformed %s: %v\n", fdEnvVar, err)
		os.Exit(1)
	}
	ep := newEndpoint(fd)
	defer ep.Close()

	if err := fn(ep); err != nil {
		fmt.Fprintf(os.Stderr, "acceptord: subprocess entry %q: %v\n", name, err)
		os.Exit(1)
	}
	os.Exit(0)
}

// Split creates a connected pair of Unix-domain stream sockets and wraps
// each end in an Endpoint, in one atomic step: either both handles come
// back initialized or neither does, so a failed peer never leaks a
// dangling fd to the caller.
func Split() (parent, child *Endpoint, err error) {
	fds, err := unix.Socketpair(unix.AF_LOCAL, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("process: socketpair: %w", err)
	}
	return newEndpoint(fds[0]), newEndpoint(fds[1]), nil
}

// Handle identifies a spawned child process.
type Handle struct {
	cmd *exec.Cmd
	pid int
}

// Pid returns the child's process ID.
func (h *Handle) Pid() int { return h.pid }

// Wait blocks until the child exits and returns its error, if any.
func (h *Handle) Wait() error { return h.cmd.Wait() }

// Kill sends SIGKILL to the child.
func (h *Handle) Kill() error { return h.cmd.Process.Kill() }

// Spawn starts a copy of the current binary re-executed with entry named,
// hands it one end of a fresh socketpair as its entry fd, and returns the
// parent-side Endpoint together with a Handle for the child. entry must
// have been registered with RegisterEntry, including in the child's own
// init() chain (it's the same binary).
func Spawn(entry string) (*Endpoint, *Handle, error) {
	parent, child, err := Split()
	if err != nil {
		return nil, nil, err
	}

	exePath, err := os.Executable()
	if err != nil {
		parent.Close()
		child.Close()
		return nil, nil, fmt.Errorf("process: resolve executable: %w", err)
	}

	cmd := exec.Command(exePath, os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	cmd.ExtraFiles = []*os.File{child.file}
	cmd.Env = append(os.Environ(),
		entryEnvVar+"="+entry,
		fmt.Sprintf("%s=%d", fdEnvVar, 3+len(cmd.ExtraFiles)-1),
	)

	if err := cmd.Start(); err != nil {
		parent.Close()
		child.Close()
		return nil, nil, fmt.Errorf("process: start: %w", err)
	}
	// The child has its own fd table now; close our copy of its end.
	child.Close()

	return parent, &Handle{cmd: cmd, pid: cmd.Process.Pid}, nil
}

// SwitchDaemon detaches the current process from its controlling terminal
// and session. Called in the original process, it re-execs the current
// binary once, in a new session (Setsid) with stdin/stdout/stderr on
// /dev/null and a sentinel environment variable set, and then exits the
// calling process; this single fork+exec stands in for the POSIX double
// fork, since Go cannot safely keep running in a bare forked child. Called
// in the re-exec'd copy (sentinel set), it makes sure the process leads
// its own session and returns nil so the caller continues as the daemon.
func SwitchDaemon() error {
	const daemonEnvVar = "ACCEPTORD_DAEMONIZED"
	if os.Getenv(daemonEnvVar) == "1" {
		// EPERM means this process already leads a session, which is the
		// case when the parent started it with Setsid.
		if err := unix.Setsid(); err != nil && err != unix.EPERM {
			return fmt.Errorf("process: setsid: %w", err)
		}
		return nil
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("process: resolve executable: %w", err)
	}
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("process: open devnull: %w", err)
	}
	defer devnull.Close()

	cmd := exec.Command(exePath, os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonEnvVar+"=1")
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("process: daemonize start: %w", err)
	}
	os.Exit(0)
	return nil
}
