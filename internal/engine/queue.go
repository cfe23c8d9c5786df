package engine

import (
	"sync"

	"github.com/roach88/paramtrace/internal/alphabet"
)

// task is one unit of Runner work: an event, the release of an object, or
// a cleanup pass.
type task struct {
	event   alphabet.Event
	release any
	cleanup bool
}

// taskQueue is a thread-safe FIFO queue of tasks waiting for the Runner.
// Releases travel through the same queue as events so they take effect
// between exactly the events they were submitted between.
//
// The queue is unbounded so producers never block on a slow monitor.
// It uses a channel for signaling to enable context-aware waiting in the
// Run loop.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []task
	closed bool
	signal chan struct{} // Signals task availability (buffered, size 1)
}

// newTaskQueue creates an empty task queue.
func newTaskQueue() *taskQueue {
	return &taskQueue{
		tasks:  make([]task, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a task to the back of the queue.
// Returns false if the queue is closed.
func (q *taskQueue) Enqueue(t task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.tasks = append(q.tasks, t)

	// Non-blocking: a buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (task{}, false) if the queue is empty.
func (q *taskQueue) TryDequeue() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return task{}, false
	}

	t := q.tasks[0]

	// Clear the slot so the backing array does not keep bound objects
	// reachable; they are weakly referenced everywhere else.
	q.tasks[0] = task{}

	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}

	return t, true
}

// Wait returns a channel that signals when tasks may be available.
func (q *taskQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Closed reports whether Close was called. Once it returns true the length
// can only shrink.
func (q *taskQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more tasks will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
