package testutil

import "sync"

// Recorder collects values in arrival order. Its Record method has the shape
// of a sink callback, so a Recorder[engine.Match] can be handed to
// engine.WithMatchSink directly.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Recorder[T any] struct {
	mu    sync.Mutex
	items []T
}

// NewRecorder creates an empty Recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{}
}

// Record appends v.
func (r *Recorder[T]) Record(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, v)
}

// All returns a copy of everything recorded so far.
func (r *Recorder[T]) All() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of recorded values.
func (r *Recorder[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Reset drops everything recorded.
//
// Used for test reuse. After Reset(), Len() returns 0.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
