package alphabet

import (
	"fmt"
	"slices"
)

// MaxParameters bounds the number of parameters per alphabet. Parameter sets
// are represented as 64-bit masks by the static model.
const MaxParameters = 64

// Alphabet owns the Parameters and BaseEvents of one property and assigns
// their indices.
//
// An Alphabet is built once during property authoring and is read-only
// afterwards; it is not safe for concurrent mutation.
type Alphabet struct {
	parameters []*Parameter
	events     []*BaseEvent
	byName     map[string]*BaseEvent
}

// New creates an empty Alphabet.
func New() *Alphabet {
	return &Alphabet{byName: make(map[string]*BaseEvent)}
}

// CreateParameter creates a parameter and adds it to the alphabet.
func (a *Alphabet) CreateParameter(name string) *Parameter {
	p := NewParameter(name)
	a.AddParameter(p)
	return p
}

// AddParameter adds an unbound parameter and assigns it the next index.
// Adding a parameter that already belongs to this alphabet is a no-op.
//
// Panics if the parameter belongs to a different alphabet or the alphabet is
// full.
func (a *Alphabet) AddParameter(p *Parameter) {
	if p.alphabet == a {
		return
	}
	if p.alphabet != nil {
		panic(fmt.Sprintf("alphabet: parameter %q is already bound to another alphabet", p.name))
	}
	if len(a.parameters) >= MaxParameters {
		panic(fmt.Sprintf("alphabet: cannot add parameter %q: at most %d parameters are supported", p.name, MaxParameters))
	}
	p.setIndex(len(a.parameters))
	p.alphabet = a
	a.parameters = append(a.parameters, p)
}

// CreateEvent creates a BaseEvent binding the given parameters. Parameters
// not yet part of the alphabet are added to it.
//
// Panics if an event with the same name exists or a parameter is repeated.
func (a *Alphabet) CreateEvent(name string, params ...*Parameter) *BaseEvent {
	if _, exists := a.byName[name]; exists {
		panic(fmt.Sprintf("alphabet: duplicate event %q", name))
	}
	ordered := make([]*Parameter, 0, len(params))
	for _, p := range params {
		a.AddParameter(p)
		if slices.Contains(ordered, p) {
			panic(fmt.Sprintf("alphabet: event %q binds parameter %q twice", name, p.name))
		}
		ordered = append(ordered, p)
	}
	slices.SortFunc(ordered, func(x, y *Parameter) int { return x.index - y.index })

	mask := make([]int, len(ordered))
	for i, p := range ordered {
		mask[i] = p.index
	}

	e := &BaseEvent{
		name:       name,
		index:      len(a.events),
		parameters: ordered,
		mask:       mask,
	}
	a.events = append(a.events, e)
	a.byName[name] = e
	return e
}

// Parameters returns the parameters in index order.
func (a *Alphabet) Parameters() []*Parameter {
	return a.parameters
}

// Events returns the base events in index order.
func (a *Alphabet) Events() []*BaseEvent {
	return a.events
}

// ParameterCount returns the size of the parameter index space.
func (a *Alphabet) ParameterCount() int {
	return len(a.parameters)
}

// Event looks up a base event by name.
func (a *Alphabet) Event(name string) (*BaseEvent, bool) {
	e, ok := a.byName[name]
	return e, ok
}

// Parameter looks up a parameter by name.
func (a *Alphabet) Parameter(name string) (*Parameter, bool) {
	for _, p := range a.parameters {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// Owns reports whether the base event was created by this alphabet.
func (a *Alphabet) Owns(e *BaseEvent) bool {
	return e != nil && e.index < len(a.events) && a.events[e.index] == e
}

// NewEvent builds a runtime Event for base. The objects are given in the
// order of base's parameter mask and are spread into the full parameter
// index space.
//
// Panics if the number of objects does not match the event's arity.
func (a *Alphabet) NewEvent(base *BaseEvent, objects ...any) Event {
	if len(objects) != len(base.mask) {
		panic(fmt.Sprintf("alphabet: event %s expects %d objects, got %d", base, len(base.mask), len(objects)))
	}
	full := make([]any, len(a.parameters))
	for i, idx := range base.mask {
		full[idx] = objects[i]
	}
	return Event{Base: base, Objects: full}
}
