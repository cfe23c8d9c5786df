package staticdata

import (
	"github.com/roach88/paramtrace/internal/alphabet"
	"github.com/roach88/paramtrace/internal/fsm"
)

// Alphabet returns the property's alphabet.
func (m *Model) Alphabet() *alphabet.Alphabet { return m.alphabet }

// FSM returns the compiled automaton.
func (m *Model) FSM() *fsm.FSM { return m.fsm }

// ParameterCount is the width of uncompressed binding arrays.
func (m *Model) ParameterCount() int { return m.alphabet.ParameterCount() }

// EventSet returns the parameter subset bound by e.
func (m *Model) EventSet(e *alphabet.BaseEvent) Set { return m.eventSets[e.Index()] }

// Creation reports whether e may start a brand-new monitor.
func (m *Model) Creation(e *alphabet.BaseEvent) bool { return m.creation[e.Index()] }

// Disabling reports whether e, seen first by an instance, rules out acceptance
// for it forever.
func (m *Model) Disabling(e *alphabet.BaseEvent) bool { return m.disabling[e.Index()] }

// EnableSets returns the parameter sets that may already be bound when e
// advances an instance towards acceptance, ascending.
func (m *Model) EnableSets(e *alphabet.BaseEvent) []Set { return m.enable[e.Index()] }

// MaxData returns the derive candidates for e, most informative first.
func (m *Model) MaxData(e *alphabet.BaseEvent) []FindMaxArgs { return m.maxData[e.Index()] }

// JoinData returns the joins to attempt for e.
func (m *Model) JoinData(e *alphabet.BaseEvent) []JoinArgs { return m.joinData[e.Index()] }

// ExistingMonitorMasks returns the strict sub-instances of a creation event
// that may carry monitors. A monitor at any of them blocks creation.
func (m *Model) ExistingMonitorMasks(e *alphabet.BaseEvent) []Set { return m.existing[e.Index()] }

// AliveMasks returns the minimal parameter sets needed by the remaining
// accepting paths from s. An empty result means s cannot accept again.
func (m *Model) AliveMasks(s *fsm.State) []Set { return m.alive[s.Index()] }

// MonitorMasks lists every parameter subset that can carry a monitor.
func (m *Model) MonitorMasks() []Set { return m.monitors }

// Root returns the shape of the tree root.
func (m *Model) Root() *Shape { return m.root }

// Shape returns the shape for s, or nil if no node can be bound to s.
func (m *Model) Shape(s Set) *Shape { return m.shapes[s] }

// Shapes returns every shape in ascending set order.
func (m *Model) Shapes() []*Shape {
	sets := make([]Set, 0, len(m.shapes))
	for s := range m.shapes {
		sets = append(sets, s)
	}
	SortAscending(sets)
	shapes := make([]*Shape, len(sets))
	for i, s := range sets {
		shapes[i] = m.shapes[s]
	}
	return shapes
}
