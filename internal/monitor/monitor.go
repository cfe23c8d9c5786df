// Package monitor implements one automaton instance of a parametric property.
package monitor

import (
	"fmt"
	"slices"

	"github.com/roach88/paramtrace/internal/alphabet"
	"github.com/roach88/paramtrace/internal/binding"
	"github.com/roach88/paramtrace/internal/fsm"
	"github.com/roach88/paramtrace/internal/staticdata"
)

// Kind distinguishes live automaton instances from dead sentinels.
type Kind uint8

const (
	// Stateful monitors hold an automaton state and may match.
	Stateful Kind = iota
	// Dead monitors mark instances a disabling event ruled out. They never
	// change and never accept.
	Dead
)

func (k Kind) String() string {
	if k == Dead {
		return "dead"
	}
	return "stateful"
}

// Env is shared by every monitor of one engine.
type Env struct {
	Model *staticdata.Model
	// OnMatch is called after the state's own handler whenever a monitor
	// enters an accepting state.
	OnMatch func(m *Monitor, bindings []any, aux any)
	// OnTerminate is called once per monitor when it stops.
	OnTerminate func(m *Monitor)
	// RecordTrace makes monitors keep the symbols they processed.
	RecordTrace bool
}

// Monitor is one automaton instance bound to a subset of the parameters.
type Monitor struct {
	kind       Kind
	env        *Env
	state      *fsm.State
	bindings   []*binding.Binding
	mask       staticdata.Set
	timestamp  int64
	terminated bool
	trace      []*alphabet.BaseEvent
}

// NewPrototype returns the unbound monitor in the initial state that fresh
// instances are copied from.
func NewPrototype(env *Env) *Monitor {
	return &Monitor{kind: Stateful, env: env, state: env.Model.FSM().Initial()}
}

// NewDead returns a dead monitor for the instance bound to mask.
func NewDead(env *Env, bindings []*binding.Binding, mask staticdata.Set, ts int64) *Monitor {
	return &Monitor{kind: Dead, env: env, bindings: bindings, mask: mask, timestamp: ts}
}

// Copy derives a monitor in the same state for a more informative instance.
// bindings are compressed to mask.
func (m *Monitor) Copy(bindings []*binding.Binding, mask staticdata.Set, ts int64) *Monitor {
	if m.kind == Dead {
		panic("monitor: copy of a dead monitor")
	}
	return &Monitor{
		kind:       Stateful,
		env:        m.env,
		state:      m.state,
		bindings:   bindings,
		mask:       mask,
		timestamp:  ts,
		terminated: m.terminated,
		trace:      slices.Clone(m.trace),
	}
}

// ProcessEvent moves the automaton along ev and reports whether the monitor
// is still alive. Entering an accepting state fires the match handlers with
// the uncompressed bindings.
func (m *Monitor) ProcessEvent(ev alphabet.Event) bool {
	if m.kind == Dead {
		panic(fmt.Sprintf("monitor: event %s sent to a dead monitor", ev.Base.Name()))
	}
	if m.terminated {
		return false
	}
	if m.env.RecordTrace {
		m.trace = append(m.trace, ev.Base)
	}
	next := m.state.Next(ev.Base)
	if next == nil {
		m.Terminate()
		return false
	}
	m.state = next
	if next.Accepting() {
		bindings := m.Uncompressed()
		if h := next.Handler(); h != nil {
			h(bindings, ev.Aux)
		}
		if m.env.OnMatch != nil {
			m.env.OnMatch(m, bindings, ev.Aux)
		}
		if next.Final() {
			m.Terminate()
			return false
		}
	}
	if !next.CanReachAccepting() {
		m.Terminate()
		return false
	}
	return true
}

// IsAcceptingStateReachable reports whether some remaining accepting path
// does not depend on a collected binding.
func (m *Monitor) IsAcceptingStateReachable() bool {
	if m.kind == Dead || m.terminated {
		return false
	}
	for _, r := range m.env.Model.AliveMasks(m.state) {
		if m.boundAlive(r) {
			return true
		}
	}
	return false
}

func (m *Monitor) boundAlive(r staticdata.Set) bool {
	for _, p := range (r & m.mask).Mask() {
		b := m.bindings[m.mask.Slot(p)]
		if b == nil || !b.Alive() {
			return false
		}
	}
	return true
}

// Terminate stops the monitor for good.
func (m *Monitor) Terminate() {
	if m.terminated {
		return
	}
	m.terminated = true
	if m.env.OnTerminate != nil {
		m.env.OnTerminate(m)
	}
}

// Terminated reports whether the monitor stopped.
func (m *Monitor) Terminated() bool { return m.terminated }

// Kind returns the monitor's variant.
func (m *Monitor) Kind() Kind { return m.kind }

// Dead reports whether m is a dead sentinel.
func (m *Monitor) Dead() bool { return m.kind == Dead }

// State returns the current automaton state, nil for dead monitors.
func (m *Monitor) State() *fsm.State { return m.state }

// Bindings returns the compressed bindings, ascending by parameter index.
func (m *Monitor) Bindings() []*binding.Binding { return m.bindings }

// Mask returns the parameters the monitor is bound to.
func (m *Monitor) Mask() staticdata.Set { return m.mask }

// Timestamp returns the creation time inherited along derivations.
func (m *Monitor) Timestamp() int64 { return m.timestamp }

// Trace returns the processed symbols when trace recording is on.
func (m *Monitor) Trace() []*alphabet.BaseEvent { return m.trace }

// Uncompressed spreads the bound objects over the full parameter range.
// Collected objects and unbound parameters are nil.
func (m *Monitor) Uncompressed() []any {
	out := make([]any, m.env.Model.ParameterCount())
	for i, p := range m.mask.Mask() {
		if b := m.bindings[i]; b != nil {
			out[p] = b.Value()
		}
	}
	return out
}

func (m *Monitor) String() string {
	state := "dead"
	if m.state != nil {
		state = m.state.Name()
	}
	return fmt.Sprintf("%s%v@%d", state, m.bindings, m.timestamp)
}
