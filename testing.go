package acceptord

import (
	"sync"

	"github.com/ehrlich-b/acceptord/internal/process"
)

// MockBusiness is a Business implementation that records every fd it
// receives, for use in tests that exercise Server without a real
// subprocess-facing handler.
type MockBusiness struct {
	mu        sync.Mutex
	received  []int
	shutdowns int
}

// NewMockBusiness returns an empty MockBusiness.
func NewMockBusiness() *MockBusiness { return &MockBusiness{} }

// Serve implements Business by looping on RecvFD until it observes the
// shutdown sentinel, recording every fd it sees along the way.
func (m *MockBusiness) Serve(ep *process.Endpoint) error {
	for {
		fd, err := ep.RecvFD()
		if err != nil {
			return err
		}
		if fd == process.ShutdownFD {
			m.mu.Lock()
			m.shutdowns++
			m.mu.Unlock()
			return nil
		}
		m.mu.Lock()
		m.received = append(m.received, fd)
		m.mu.Unlock()
	}
}

// Received returns a copy of every fd recorded so far.
func (m *MockBusiness) Received() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.received))
	copy(out, m.received)
	return out
}

// Shutdowns returns how many times Serve observed the shutdown sentinel.
func (m *MockBusiness) Shutdowns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdowns
}

// MockObserver is an Observer implementation that tallies every call, for
// assertions in tests.
type MockObserver struct {
	mu sync.Mutex

	AcceptSuccess, AcceptFailure         int
	HandoffSuccess, HandoffFailure       int
	TaskSubmitSuccess, TaskSubmitFailure int
	TaskExecCount                        int
	TaskExecLatencyNs                    uint64
	LogWriteSuccess, LogWriteFailure     int
	LogWriteBytes                        int
}

func (o *MockObserver) ObserveAccept(success bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if success {
		o.AcceptSuccess++
	} else {
		o.AcceptFailure++
	}
}

func (o *MockObserver) ObserveHandoff(success bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if success {
		o.HandoffSuccess++
	} else {
		o.HandoffFailure++
	}
}

func (o *MockObserver) ObserveTaskSubmit(success bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if success {
		o.TaskSubmitSuccess++
	} else {
		o.TaskSubmitFailure++
	}
}

func (o *MockObserver) ObserveTaskExec(latencyNs uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.TaskExecCount++
	o.TaskExecLatencyNs += latencyNs
}

func (o *MockObserver) ObserveLogWrite(bytes int, success bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if success {
		o.LogWriteSuccess++
		o.LogWriteBytes += bytes
	} else {
		o.LogWriteFailure++
	}
}
