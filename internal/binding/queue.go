package binding

import "sync"

// refQueue collects bindings whose objects died. Cleanups push from the
// runtime's cleanup goroutine; the store drains under its owner's lock.
type refQueue struct {
	mu    sync.Mutex
	items []*Binding
}

func (q *refQueue) push(b *Binding) {
	q.mu.Lock()
	q.items = append(q.items, b)
	q.mu.Unlock()
}

func (q *refQueue) drain() []*Binding {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *refQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
