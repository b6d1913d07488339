// Package jobmgr tracks the host's named background loops (clock, input)
// with cancellation and lifecycle reporting. Loops run in their own
// goroutines and deregister themselves on exit.
package jobmgr

import (
	"context"
	"fmt"
	"sync"
)

// StatusReporter receives lifecycle events, e.g. "running:clock" or
// "error:clock:<msg>".
type StatusReporter func(string)

// Manager starts, stops and tracks background loops. Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	wg       sync.WaitGroup
	Reporter StatusReporter
}

// NewManager creates a manager. The reporter may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		cancels:  make(map[string]context.CancelFunc),
		Reporter: reporter,
	}
}

// Start launches runner under name in its own goroutine. The runner's context
// is cancelled by Stop, StopAll, or parent cancellation. Starting a name that
// is already running is an error.
func (m *Manager) Start(parent context.Context, name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	if _, exists := m.cancels[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("loop %q is already running", name)
	}
	ctx, cancel := context.WithCancel(parent)
	m.cancels[name] = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.report("running:" + name)

		if err := runner(ctx); err != nil {
			m.report("error:" + name + ":" + err.Error())
		} else {
			m.report("done:" + name)
		}

		m.mu.Lock()
		delete(m.cancels, name)
		m.mu.Unlock()
		cancel()
	}()
	return nil
}

// Stop cancels the named loop. Unknown names are an error.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cancel, ok := m.cancels[name]
	if !ok {
		return fmt.Errorf("loop %q not running", name)
	}
	cancel()
	delete(m.cancels, name)
	return nil
}

// StopAll cancels every running loop and waits for them to exit.
func (m *Manager) StopAll() {
	m.mu.Lock()
	for name, cancel := range m.cancels {
		cancel()
		delete(m.cancels, name)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// List returns the names of the running loops.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.cancels))
	for k := range m.cancels {
		out = append(out, k)
	}
	return out
}

func (m *Manager) report(s string) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
