// Package metrics defines a minimal counter/histogram abstraction so pipeline
// code never depends on a specific vendor client. The default backend
// discards everything; commands opt in by installing a real backend (see
// internal/metrics/datadog).
package metrics

import "sync"

// Labels are free-form metric dimensions.
type Labels map[string]string

// Backend receives metric observations. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer observations in memory.
type Flusher interface {
	Flush() error
}

var (
	mu      sync.RWMutex
	backend Backend = Noop{}
)

// SetBackend installs the process-wide backend. A nil backend resets to the
// no-op default.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = Noop{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter on the active backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample on the active backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the active backend if it buffers; otherwise it is a no-op.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Noop discards all observations. It is the default backend.
type Noop struct{}

func (Noop) IncCounter(string, float64, Labels)       {}
func (Noop) ObserveHistogram(string, float64, Labels) {}
