// Package metrics decouples the pipeline from any metrics vendor.
//
// The pipeline calls the package-level helpers; a process wires a concrete
// Backend (datadog, prompush) at startup via SetBackend. With no backend set
// every call is a cheap no-op, so metrics can never fail a run.
package metrics

import "sync/atomic"

// Backend receives pipeline measurements. Implementations may buffer;
// Flush submits anything buffered and is called once at process exit.
type Backend interface {
	ObserveStageDuration(stage string, seconds float64)
	AddRows(stage string, n int)
	IncRun(mode string, success bool)
	Flush() error
}

var backend atomic.Value // Backend

type nopBackend struct{}

func (nopBackend) ObserveStageDuration(string, float64) {}
func (nopBackend) AddRows(string, int)                  {}
func (nopBackend) IncRun(string, bool)                  {}
func (nopBackend) Flush() error                         { return nil }

func init() { backend.Store(Backend(nopBackend{})) }

// SetBackend installs the process-wide metrics backend.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	backend.Store(b)
}

func current() Backend { return backend.Load().(Backend) }

// ObserveStageDuration records how long a pipeline stage took.
func ObserveStageDuration(stage string, seconds float64) {
	current().ObserveStageDuration(stage, seconds)
}

// AddRows records how many records a stage produced or persisted.
func AddRows(stage string, n int) { current().AddRows(stage, n) }

// IncRun records a completed run and its outcome.
func IncRun(mode string, success bool) { current().IncRun(mode, success) }

// Flush submits buffered metrics through the active backend.
func Flush() error { return current().Flush() }
