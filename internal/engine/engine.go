package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/roach88/paramtrace/internal/alphabet"
	"github.com/roach88/paramtrace/internal/binding"
	"github.com/roach88/paramtrace/internal/index"
	"github.com/roach88/paramtrace/internal/monitor"
	"github.com/roach88/paramtrace/internal/staticdata"
)

// DefaultCleanupInterval is the number of events between cleanup passes.
const DefaultCleanupInterval = 1000

// ParametricMonitor dispatches events of one property to its instances.
//
// Thread-safety model:
//   - ProcessEvent, Reset, Release, Cleanup: safe from any goroutine,
//     serialised by one mutex
//   - Stats, Timestamp: safe from any goroutine, lock-free
//
// INVARIANTS:
//   - Events are processed strictly in lock acquisition order
//   - The static model is never mutated
//   - Nodes are stamped only with the timestamp of the event being processed
type ParametricMonitor struct {
	mu sync.Mutex

	model     *staticdata.Model
	env       *monitor.Env
	prototype *monitor.Monitor
	bindings  *binding.Store
	nodes     *index.Store
	clock     *Clock
	stats     *Stats
	logger    *slog.Logger
	sink      MatchSink

	active          bool
	current         *alphabet.BaseEvent
	cleanupInterval int64
	sweepInterval   int
	recordTrace     bool
}

// Option configures a ParametricMonitor.
type Option func(*ParametricMonitor)

// WithCleanupInterval runs a cleanup pass every n events.
// n <= 0 leaves cleanup to explicit Cleanup calls.
func WithCleanupInterval(n int) Option {
	return func(pm *ParametricMonitor) {
		pm.cleanupInterval = int64(n)
	}
}

// WithBindingSweepInterval sweeps dead bindings every n binding resolutions.
//
// Default: 100 (binding.DefaultSweepInterval)
func WithBindingSweepInterval(n int) Option {
	return func(pm *ParametricMonitor) {
		pm.sweepInterval = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(pm *ParametricMonitor) {
		pm.logger = l
	}
}

// WithStats makes the engine count into s instead of a private Stats.
func WithStats(s *Stats) Option {
	return func(pm *ParametricMonitor) {
		pm.stats = s
	}
}

// WithMatchSink delivers every match to sink.
func WithMatchSink(sink MatchSink) Option {
	return func(pm *ParametricMonitor) {
		pm.sink = sink
	}
}

// WithTraceRecording makes monitors keep the symbols they processed.
func WithTraceRecording() Option {
	return func(pm *ParametricMonitor) {
		pm.recordTrace = true
	}
}

// New creates an engine for a compiled property.
func New(model *staticdata.Model, opts ...Option) *ParametricMonitor {
	pm := &ParametricMonitor{
		model:           model,
		clock:           NewClock(),
		stats:           &Stats{},
		logger:          slog.Default(),
		cleanupInterval: DefaultCleanupInterval,
		sweepInterval:   binding.DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(pm)
	}

	pm.env = &monitor.Env{
		Model:       model,
		OnMatch:     pm.onMatch,
		OnTerminate: func(*monitor.Monitor) { pm.stats.TerminatedMonitors.Add(1) },
		RecordTrace: pm.recordTrace,
	}
	pm.prototype = monitor.NewPrototype(pm.env)
	pm.bindings = binding.NewStore(binding.WithSweepInterval(pm.sweepInterval))
	pm.nodes = index.NewStore(model,
		index.OnNodeCreated(func() { pm.stats.NodesCreated.Add(1) }),
		index.OnNodesRemoved(func(n int) { pm.stats.NodesRemoved.Add(int64(n)) }),
	)
	pm.bindings.OnCreate(func(*binding.Binding) { pm.stats.BindingsCreated.Add(1) })
	pm.bindings.OnRelease(func(b *binding.Binding) {
		pm.stats.BindingsReleased.Add(1)
		pm.nodes.Release(b)
	})
	return pm
}

// Model returns the compiled property.
func (pm *ParametricMonitor) Model() *staticdata.Model { return pm.model }

// Stats returns the engine's counters.
func (pm *ParametricMonitor) Stats() *Stats { return pm.stats }

// Timestamp returns the logical time the next event will get.
func (pm *ParametricMonitor) Timestamp() int64 { return pm.clock.Current() }

// Active reports whether a creation event has been seen.
func (pm *ParametricMonitor) Active() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.active
}

// ProcessEvent runs one event through the update, derive, create and join
// phases. Events seen before the first creation event, and events whose
// condition rejects their auxiliary data, are ignored.
//
// Returns a *RuntimeError for malformed events; nothing is changed then.
func (pm *ParametricMonitor) ProcessEvent(ev alphabet.Event) error {
	objects, err := pm.validate(ev)
	if err != nil {
		return err
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	base := ev.Base
	if !ev.Accepted() {
		pm.stats.IgnoredEvents.Add(1)
		return nil
	}
	if !pm.active {
		if !pm.model.Creation(base) {
			pm.stats.IgnoredEvents.Add(1)
			return nil
		}
		pm.active = true
		pm.logger.Info("monitoring activated", "event", base.Name())
	}
	pm.stats.Events.Add(1)
	pm.current = base
	defer func() { pm.current = nil }()

	now := pm.clock.Current()
	bindings := pm.bindings.Resolve(objects)
	mask := pm.model.EventSet(base)
	node := pm.nodes.GetNode(bindings, mask)

	if m := node.Monitor(); m != nil {
		if !m.Dead() && !m.Terminated() {
			pm.stats.UpdatedMonitors.Add(1)
			m.ProcessEvent(ev)
		}
		pm.propagate(node, ev)
	} else {
		pm.propagate(node, ev)
		if !pm.derive(ev, bindings, mask) {
			pm.create(ev, bindings, mask, now)
		}
		pm.join(ev, bindings)
	}

	pm.nodes.GetOrCreateNode(bindings, mask).SetTimestamp(now)
	next := pm.clock.Next()
	if pm.cleanupInterval > 0 && next%pm.cleanupInterval == 0 {
		pm.cleanup()
	}
	return nil
}

// validate checks ev against the alphabet and returns its objects with
// positions the symbol does not bind cleared.
func (pm *ParametricMonitor) validate(ev alphabet.Event) ([]any, error) {
	if ev.Base == nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidEvent, Message: "event has no symbol"}
	}
	if !pm.model.Alphabet().Owns(ev.Base) {
		return nil, &RuntimeError{
			Code:    ErrCodeUnknownEvent,
			Message: "symbol is not part of the property's alphabet",
			Event:   ev.Base.Name(),
		}
	}
	n := pm.model.ParameterCount()
	if len(ev.Objects) != n {
		return nil, &RuntimeError{
			Code:    ErrCodeArityMismatch,
			Message: fmt.Sprintf("expected %d objects, got %d", n, len(ev.Objects)),
			Event:   ev.Base.Name(),
		}
	}
	objects := ev.Objects
	copied := false
	for i, obj := range ev.Objects {
		bound := ev.Base.Binds(i)
		switch {
		case bound && obj == nil:
			return nil, &RuntimeError{
				Code:    ErrCodeInvalidEvent,
				Message: fmt.Sprintf("parameter %s is unbound", pm.model.Alphabet().Parameters()[i].Name()),
				Event:   ev.Base.Name(),
			}
		case bound:
			if err := binding.Bindable(obj); err != nil {
				return nil, &RuntimeError{
					Code:    ErrCodeInvalidEvent,
					Message: fmt.Sprintf("parameter %s: %v", pm.model.Alphabet().Parameters()[i].Name(), err),
					Event:   ev.Base.Name(),
					Err:     err,
				}
			}
		case !bound && obj != nil:
			if !copied {
				objects = make([]any, n)
				copy(objects, ev.Objects)
				copied = true
			}
			objects[i] = nil
		}
	}
	return objects, nil
}

// propagate delivers ev to every monitor chained below node.
func (pm *ParametricMonitor) propagate(node *index.Node, ev alphabet.Event) {
	for _, set := range node.MonitorSets() {
		if set != nil {
			pm.stats.UpdatedMonitors.Add(int64(set.PropagateUpdate(pm.nodes, ev)))
		}
	}
}

// derive copies the most informative admissible monitor of a sub-instance to
// the event's instance.
func (pm *ParametricMonitor) derive(ev alphabet.Event, bindings []*binding.Binding, mask staticdata.Set) bool {
	for _, fm := range pm.model.MaxData(ev.Base) {
		cand := pm.nodes.GetNode(bindings, fm.NodeMask).Monitor()
		if cand == nil || !pm.admissible(cand.Timestamp(), bindings, fm.DisableMasks) {
			continue
		}
		node := pm.nodes.GetOrCreateNode(bindings, mask)
		if cand.Dead() {
			node.SetMonitor(monitor.NewDead(pm.env, node.Bindings(), mask, cand.Timestamp()))
			pm.stats.DeadMonitors.Add(1)
			return true
		}
		m := cand.Copy(node.Bindings(), mask, cand.Timestamp())
		node.SetMonitor(m)
		pm.stats.DerivedMonitors.Add(1)
		if m.ProcessEvent(ev) {
			pm.nodes.Chain(node)
		}
		return true
	}
	return false
}

// admissible reports whether a candidate created at ts saw everything the
// disable instances saw.
func (pm *ParametricMonitor) admissible(ts int64, bindings []*binding.Binding, disable []staticdata.Set) bool {
	for _, d := range disable {
		dn := pm.nodes.GetNode(bindings, d)
		if dn.Timestamp() > ts {
			return false
		}
		if dm := dn.Monitor(); dm != nil && dm.Timestamp() < ts {
			return false
		}
	}
	return true
}

// create starts a fresh instance for a creation event unless a
// sub-instance already carries a monitor.
func (pm *ParametricMonitor) create(ev alphabet.Event, bindings []*binding.Binding, mask staticdata.Set, now int64) {
	if !pm.model.Creation(ev.Base) {
		return
	}
	for _, x := range pm.model.ExistingMonitorMasks(ev.Base) {
		if pm.nodes.GetNode(bindings, x).Monitor() != nil {
			return
		}
	}
	node := pm.nodes.GetOrCreateNode(bindings, mask)
	if pm.model.Disabling(ev.Base) {
		node.SetMonitor(monitor.NewDead(pm.env, node.Bindings(), mask, now))
		pm.stats.DeadMonitors.Add(1)
		return
	}
	m := pm.prototype.Copy(node.Bindings(), mask, now)
	node.SetMonitor(m)
	pm.stats.CreatedMonitors.Add(1)
	if m.ProcessEvent(ev) {
		pm.nodes.Chain(node)
	}
}

// join merges the event's objects with every admissible compatible
// instance.
func (pm *ParametricMonitor) join(ev alphabet.Event, bindings []*binding.Binding) {
	joins := pm.model.JoinData(ev.Base)
	for i := range joins {
		ja := &joins[i]
		pool := pm.nodes.GetNode(bindings, ja.NodeMask).ExistingMonitorSet(ja.MonitorSetID)
		if pool == nil || pool.Size() == 0 {
			continue
		}
		tmax, tmin := int64(math.MinInt64), int64(math.MaxInt64)
		for _, d := range ja.DisableMasks {
			dn := pm.nodes.GetOrCreateNode(bindings, d)
			tmax = max(tmax, dn.Timestamp())
			if dm := dn.Monitor(); dm != nil {
				tmin = min(tmin, dm.Timestamp())
			}
		}
		res := pool.Join(pm.nodes, ev, bindings, ja, tmin, tmax)
		pm.stats.JoinedMonitors.Add(int64(res.Joined))
	}
}

func (pm *ParametricMonitor) onMatch(m *monitor.Monitor, bindings []any, aux any) {
	seq := pm.stats.Matches.Add(1)
	match := Match{
		Seq:       seq,
		Timestamp: pm.clock.Current(),
		State:     m.State().Name(),
		Bindings:  bindings,
		Aux:       aux,
	}
	if pm.current != nil {
		match.Event = pm.current.Name()
	}
	pm.logger.Debug("match",
		"seq", match.Seq,
		"state", match.State,
		"event", match.Event,
		"timestamp", match.Timestamp,
	)
	if pm.sink != nil {
		pm.sink(match)
	}
}

// Release retires obj as if it had been collected. The binding is dropped at
// the next cleanup pass.
func (pm *ParametricMonitor) Release(obj any) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.bindings.Release(obj)
}

// Cleanup sweeps dead bindings and prunes the nodes keyed by them.
func (pm *ParametricMonitor) Cleanup() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.cleanup()
}

func (pm *ParametricMonitor) cleanup() {
	before := pm.nodes.Size()
	released := pm.bindings.Sweep()
	if released == 0 {
		return
	}
	pm.logger.Debug("cleanup",
		"bindings_released", released,
		"nodes_removed", before-pm.nodes.Size(),
		"timestamp", pm.clock.Current(),
	)
}

// Reset drops every binding, node and monitor, zeroes the counters and
// deactivates monitoring until the next creation event.
func (pm *ParametricMonitor) Reset() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.bindings.Reset()
	pm.nodes.Reset()
	pm.clock.Reset()
	pm.stats.Reset()
	pm.active = false
	pm.logger.Info("monitor reset")
}

// Bindings returns the number of live bindings.
func (pm *ParametricMonitor) Bindings() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.bindings.Size()
}

// Nodes returns the number of tree nodes, the root excluded.
func (pm *ParametricMonitor) Nodes() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.nodes.Size()
}

// Monitors returns the number of nodes carrying a monitor.
func (pm *ParametricMonitor) Monitors() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.nodes.Monitors()
}

// Inspect runs fn with the node and binding stores under the engine lock.
func (pm *ParametricMonitor) Inspect(fn func(nodes *index.Store, bindings *binding.Store)) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	fn(pm.nodes, pm.bindings)
}
