package metrics

import (
	"errors"
	"testing"
)

type recordingBackend struct {
	counters   map[string]float64
	histograms map[string][]float64
	flushed    int
	flushErr   error
}

func (r *recordingBackend) IncCounter(name string, delta float64, _ Labels) {
	if r.counters == nil {
		r.counters = map[string]float64{}
	}
	r.counters[name] += delta
}

func (r *recordingBackend) ObserveHistogram(name string, value float64, _ Labels) {
	if r.histograms == nil {
		r.histograms = map[string][]float64{}
	}
	r.histograms[name] = append(r.histograms[name], value)
}

func (r *recordingBackend) Flush() error {
	r.flushed++
	return r.flushErr
}

// TestPackageLevelDispatch verifies the package-level helpers reach the
// installed backend and that SetBackend(nil) restores the no-op default.
func TestPackageLevelDispatch(t *testing.T) {
	rb := &recordingBackend{}
	SetBackend(rb)
	t.Cleanup(func() { SetBackend(nil) })

	IncCounter("c", 2, nil)
	IncCounter("c", 3, Labels{"k": "v"})
	ObserveHistogram("h", 1.5, nil)

	if rb.counters["c"] != 5 {
		t.Fatalf("counter c=%v, want 5", rb.counters["c"])
	}
	if len(rb.histograms["h"]) != 1 || rb.histograms["h"][0] != 1.5 {
		t.Fatalf("histogram h=%v, want [1.5]", rb.histograms["h"])
	}

	SetBackend(nil)
	// Must not panic with the no-op default installed.
	IncCounter("c", 1, nil)
	ObserveHistogram("h", 1, nil)
}

// TestFlush verifies Flush reaches Flusher backends and is a no-op otherwise.
func TestFlush(t *testing.T) {
	rb := &recordingBackend{flushErr: errors.New("intake down")}
	SetBackend(rb)
	t.Cleanup(func() { SetBackend(nil) })

	if err := Flush(); err == nil || err.Error() != "intake down" {
		t.Fatalf("Flush err=%v, want intake down", err)
	}
	if rb.flushed != 1 {
		t.Fatalf("flushed=%d, want 1", rb.flushed)
	}

	SetBackend(Noop{})
	if err := Flush(); err != nil {
		t.Fatalf("Flush on non-Flusher: %v", err)
	}
}
