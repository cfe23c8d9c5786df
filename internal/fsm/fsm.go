package fsm

import (
	"fmt"

	"github.com/roach88/paramtrace/internal/alphabet"
)

// MatchHandler is invoked when a monitor enters an accepting state.
//
// bindings is positionally aligned to the alphabet's parameter index space.
// Entries are nil for parameters the instance does not bind and for objects
// that were collected before the match fired.
type MatchHandler func(bindings []any, aux any)

// State is one automaton state.
type State struct {
	name        string
	index       int
	accepting   bool
	final       bool
	handler     MatchHandler
	transitions []*State

	// Computed by Validate.
	reachesAccepting bool
}

// Name returns the state's label.
func (s *State) Name() string { return s.name }

// Index returns the state's dense index within its FSM.
func (s *State) Index() int { return s.index }

// Accepting reports whether entering the state fires a match.
func (s *State) Accepting() bool { return s.accepting }

// Final reports whether a monitor stops after entering the state.
func (s *State) Final() bool {
	if s.final {
		return true
	}
	return s.accepting && !s.hasTransitions()
}

// Handler returns the match handler, or nil.
func (s *State) Handler() MatchHandler { return s.handler }

// CanReachAccepting reports whether an accepting state is reachable from s,
// s itself included. Valid only after FSM.Validate.
func (s *State) CanReachAccepting() bool { return s.reachesAccepting }

// On adds a transition from s to target on event e and returns s.
func (s *State) On(e *alphabet.BaseEvent, target *State) *State {
	for len(s.transitions) <= e.Index() {
		s.transitions = append(s.transitions, nil)
	}
	s.transitions[e.Index()] = target
	return s
}

// Next returns the successor on e, or nil if there is none.
func (s *State) Next(e *alphabet.BaseEvent) *State {
	i := e.Index()
	if i >= len(s.transitions) {
		return nil
	}
	return s.transitions[i]
}

func (s *State) hasTransitions() bool {
	for _, t := range s.transitions {
		if t != nil {
			return true
		}
	}
	return false
}

func (s *State) String() string { return s.name }

// FSM is a deterministic finite automaton over an alphabet's base events.
type FSM struct {
	alphabet *alphabet.Alphabet
	states   []*State
	initial  *State
	byName   map[string]*State

	validated bool
}

// New creates an empty automaton over a.
func New(a *alphabet.Alphabet) *FSM {
	return &FSM{alphabet: a, byName: make(map[string]*State)}
}

// Alphabet returns the alphabet the automaton is defined over.
func (f *FSM) Alphabet() *alphabet.Alphabet { return f.alphabet }

// States returns all states in index order.
func (f *FSM) States() []*State { return f.states }

// Initial returns the initial state, or nil before one was created.
func (f *FSM) Initial() *State { return f.initial }

// State looks up a state by name.
func (f *FSM) State(name string) (*State, bool) {
	s, ok := f.byName[name]
	return s, ok
}

// CreateInitialState creates the initial state. An automaton has exactly one.
func (f *FSM) CreateInitialState(name string) *State {
	if f.initial != nil {
		panic(fmt.Sprintf("fsm: initial state already defined (%s)", f.initial.name))
	}
	s := f.add(name)
	f.initial = s
	return s
}

// CreateState creates a non-accepting state.
func (f *FSM) CreateState(name string) *State {
	return f.add(name)
}

// CreateAcceptingState creates an accepting state. handler may be nil.
func (f *FSM) CreateAcceptingState(name string, handler MatchHandler) *State {
	s := f.add(name)
	s.accepting = true
	s.handler = handler
	return s
}

// CreateFinalState creates an accepting state after which monitors stop even
// if it has outgoing transitions.
func (f *FSM) CreateFinalState(name string, handler MatchHandler) *State {
	s := f.CreateAcceptingState(name, handler)
	s.final = true
	return s
}

// SetFinal marks s final.
func (f *FSM) SetFinal(s *State) {
	s.final = true
}

func (f *FSM) add(name string) *State {
	if _, exists := f.byName[name]; exists {
		panic(fmt.Sprintf("fsm: duplicate state %q", name))
	}
	s := &State{name: name, index: len(f.states)}
	f.states = append(f.states, s)
	f.byName[name] = s
	f.validated = false
	return s
}

// Validate checks the automaton and precomputes acceptance reachability.
// It is safe to call more than once.
func (f *FSM) Validate() error {
	if f.alphabet == nil {
		return &ValidationError{Field: "alphabet", Message: "automaton has no alphabet"}
	}
	if f.initial == nil {
		return &ValidationError{Field: "initial", Message: "automaton has no initial state"}
	}
	events := f.alphabet.Events()
	for _, s := range f.states {
		if len(s.transitions) > len(events) {
			return &ValidationError{
				Field:   "state." + s.name,
				Message: "transition on an event outside the alphabet",
			}
		}
		for i, t := range s.transitions {
			if t == nil {
				continue
			}
			if t.index >= len(f.states) || f.states[t.index] != t {
				return &ValidationError{
					Field:   fmt.Sprintf("state.%s.on.%s", s.name, events[i].Name()),
					Message: fmt.Sprintf("target state %q belongs to another automaton", t.name),
				}
			}
		}
	}
	f.computeReachability()
	f.validated = true
	return nil
}

// Validated reports whether Validate succeeded since the last modification.
func (f *FSM) Validated() bool { return f.validated }

// computeReachability marks every state from which an accepting state is
// reachable by fixpoint over the reversed transition relation.
func (f *FSM) computeReachability() {
	for _, s := range f.states {
		s.reachesAccepting = s.accepting
	}
	for changed := true; changed; {
		changed = false
		for _, s := range f.states {
			if s.reachesAccepting {
				continue
			}
			for _, t := range s.transitions {
				if t != nil && t.reachesAccepting {
					s.reachesAccepting = true
					changed = true
					break
				}
			}
		}
	}
}

// ValidationError describes an automaton that cannot be compiled.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("fsm: %s: %s", e.Field, e.Message)
}
