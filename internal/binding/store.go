package binding

import "runtime"

// DefaultSweepInterval is the number of Resolve calls between sweeps.
const DefaultSweepInterval = 100

// Store owns the lifecycle of bindings. It is driven by a single writer; only
// the reference queue is touched by other goroutines.
type Store struct {
	table     map[any]*Binding
	cache     []*Binding
	queue     *refQueue
	interval  int
	calls     int
	nextID    uint64
	onCreate  []func(*Binding)
	onRelease []func(*Binding)
}

// Option configures a Store.
type Option func(*Store)

// WithSweepInterval sweeps the reference queue every n Resolve calls.
// n <= 0 disables automatic sweeps.
func WithSweepInterval(n int) Option {
	return func(s *Store) {
		s.interval = n
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		table:    make(map[any]*Binding),
		queue:    &refQueue{},
		interval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnCreate registers fn to run for every new binding.
func (s *Store) OnCreate(fn func(*Binding)) {
	s.onCreate = append(s.onCreate, fn)
}

// OnRelease registers fn to run for every binding removed by Sweep.
func (s *Store) OnRelease(fn func(*Binding)) {
	s.onRelease = append(s.onRelease, fn)
}

// Resolve returns the binding for every non-nil object, positionally. A
// position reuses the binding it returned last time if that still refers to
// the same object.
func (s *Store) Resolve(objects []any) []*Binding {
	s.calls++
	if s.interval > 0 && s.calls%s.interval == 0 {
		s.Sweep()
	}
	if len(s.cache) < len(objects) {
		s.cache = append(s.cache, make([]*Binding, len(objects)-len(s.cache))...)
	}
	bindings := make([]*Binding, len(objects))
	for i, obj := range objects {
		if obj == nil {
			continue
		}
		if b := s.cache[i]; b != nil && b.refersTo(obj) {
			bindings[i] = b
			continue
		}
		b := s.GetOrCreate(obj)
		s.cache[i] = b
		bindings[i] = b
	}
	return bindings
}

// GetOrCreate returns the binding for obj, creating it if needed. Pointer
// objects are held weakly; anything else must be comparable.
func (s *Store) GetOrCreate(obj any) *Binding {
	key, ptr := keyFor(obj)
	if b, ok := s.table[key]; ok && !b.released.Load() {
		return b
	}
	s.nextID++
	b := &Binding{id: s.nextID, key: key}
	if ptr == nil {
		b.immortal = true
		b.strong = obj
	} else {
		wk := key.(weakKey)
		b.typ = wk.typ
		b.ptr = wk.ptr
		q := s.queue
		runtime.AddCleanup(ptr, func(b *Binding) { q.push(b) }, b)
	}
	s.table[key] = b
	for _, fn := range s.onCreate {
		fn(b)
	}
	return b
}

// Get returns the live binding for obj, if any.
func (s *Store) Get(obj any) (*Binding, bool) {
	key, _ := keyFor(obj)
	b, ok := s.table[key]
	if !ok || b.released.Load() {
		return nil, false
	}
	return b, true
}

// Remove drops b from the table without notifying listeners.
func (s *Store) Remove(b *Binding) bool {
	if cur, ok := s.table[b.key]; ok && cur == b {
		delete(s.table, b.key)
		return true
	}
	return false
}

// Release marks the binding of obj as dead, exactly as if the object had
// been collected. It is the only way to retire objects held by value.
func (s *Store) Release(obj any) bool {
	b, ok := s.Get(obj)
	if !ok {
		return false
	}
	b.released.Store(true)
	s.queue.push(b)
	return true
}

// Sweep drains the reference queue, removes the dead bindings and notifies
// release listeners. It returns the number of bindings released.
func (s *Store) Sweep() int {
	n := 0
	for _, b := range s.queue.drain() {
		if b.swept {
			continue
		}
		b.swept = true
		b.released.Store(true)
		s.Remove(b)
		n++
		for _, fn := range s.onRelease {
			fn(b)
		}
	}
	if n > 0 {
		for i, b := range s.cache {
			if b != nil && b.released.Load() {
				s.cache[i] = nil
			}
		}
	}
	return n
}

// Pending returns the number of bindings waiting for the next sweep.
func (s *Store) Pending() int { return s.queue.len() }

// Size returns the number of bindings in the table.
func (s *Store) Size() int { return len(s.table) }

// Reset forgets every binding. Cleanups still registered for old objects
// push into a queue that is no longer drained.
func (s *Store) Reset() {
	s.table = make(map[any]*Binding)
	s.cache = nil
	s.queue = &refQueue{}
	s.calls = 0
}
