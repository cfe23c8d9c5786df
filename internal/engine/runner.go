package engine

import (
	"context"

	"github.com/roach88/paramtrace/internal/alphabet"
)

// Runner feeds a ParametricMonitor from a FIFO queue on a single goroutine.
// Releases and cleanup passes are queued with the events, so they apply in
// submission order.
//
// Thread-safety model:
//   - Enqueue(), EnqueueRelease(), EnqueueCleanup(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Runner struct {
	monitor *ParametricMonitor
	queue   *taskQueue
	failed  func(alphabet.Event, error)
}

// NewRunner creates a Runner for pm.
func NewRunner(pm *ParametricMonitor) *Runner {
	return &Runner{
		monitor: pm,
		queue:   newTaskQueue(),
	}
}

// OnError registers fn to be called for every event the monitor rejected,
// after it has been logged.
func (r *Runner) OnError(fn func(alphabet.Event, error)) {
	r.failed = fn
}

// Enqueue submits an event for processing by the Run loop.
// Returns false if the runner has been stopped.
func (r *Runner) Enqueue(ev alphabet.Event) bool {
	return r.queue.Enqueue(task{event: ev})
}

// EnqueueRelease submits the release of obj. Events queued before it still
// see obj alive. Returns false if the runner has been stopped.
func (r *Runner) EnqueueRelease(obj any) bool {
	if obj == nil {
		return false
	}
	return r.queue.Enqueue(task{release: obj})
}

// EnqueueCleanup submits a cleanup pass.
// Returns false if the runner has been stopped.
func (r *Runner) EnqueueCleanup() bool {
	return r.queue.Enqueue(task{cleanup: true})
}

// QueueLen returns the number of tasks waiting.
func (r *Runner) QueueLen() int {
	return r.queue.Len()
}

// Run processes queued tasks until ctx is cancelled or Stop is called and
// the queue has drained.
//
// ERROR HANDLING: a rejected event is logged with its symbol and processing
// continues. Retrying would reorder events and corrupt the timestamps.
func (r *Runner) Run(ctx context.Context) error {
	r.monitor.logger.Info("runner starting")

	for {
		t, ok := r.queue.TryDequeue()
		if ok {
			r.do(t)
			continue
		}

		select {
		case <-ctx.Done():
			r.monitor.logger.Info("runner stopping: context cancelled")
			r.queue.Close()
			return ctx.Err()

		case <-r.queue.Wait():
			// The signal channel closes with the queue, so a closed and
			// empty queue ends the loop.
			if r.queue.Closed() && r.queue.Len() == 0 {
				r.monitor.logger.Info("runner stopping: queue closed")
				return nil
			}
		}
	}
}

func (r *Runner) do(t task) {
	switch {
	case t.release != nil:
		if !r.monitor.Release(t.release) {
			r.monitor.logger.Debug("release of unbound object ignored", "object", t.release)
		}
	case t.cleanup:
		r.monitor.Cleanup()
	default:
		if err := r.monitor.ProcessEvent(t.event); err != nil {
			r.logEventError(t.event, err)
		}
	}
}

// Stop closes the queue. Run returns once the queued tasks are processed.
func (r *Runner) Stop() {
	r.queue.Close()
}

func (r *Runner) logEventError(ev alphabet.Event, err error) {
	attrs := []any{"error", err}
	if ev.Base != nil {
		attrs = append(attrs, "event", ev.Base.Name())
	}
	r.monitor.logger.Error("event processing failed", attrs...)
	if r.failed != nil {
		r.failed(ev, err)
	}
}
