package alphabet

import (
	"fmt"
	"slices"
	"strings"
)

// BaseEvent is an immutable event symbol of a property.
type BaseEvent struct {
	name       string
	index      int
	parameters []*Parameter
	mask       []int
}

// Name returns the symbol's label.
func (e *BaseEvent) Name() string {
	return e.name
}

// Index returns the dense index assigned by the owning Alphabet.
func (e *BaseEvent) Index() int {
	return e.index
}

// Parameters returns the parameters bound by this event, ordered by index.
func (e *BaseEvent) Parameters() []*Parameter {
	return e.parameters
}

// ParameterMask returns the ascending indices of the bound parameters.
// The returned slice is shared and must not be modified.
func (e *BaseEvent) ParameterMask() []int {
	return e.mask
}

// Binds reports whether the event binds the parameter with index i.
func (e *BaseEvent) Binds(i int) bool {
	_, found := slices.BinarySearch(e.mask, i)
	return found
}

func (e *BaseEvent) String() string {
	names := make([]string, len(e.parameters))
	for i, p := range e.parameters {
		names[i] = p.name
	}
	return fmt.Sprintf("%s(%s)", e.name, strings.Join(names, ","))
}

// Condition filters an Event before it reaches the engine. It receives the
// event's auxiliary data.
type Condition func(aux any) bool

// Event is one runtime occurrence of a BaseEvent.
//
// Objects is positionally aligned to the full parameter index space of the
// alphabet: Objects[p.Index()] holds the object bound to parameter p, and
// positions of parameters the BaseEvent does not bind are nil.
type Event struct {
	Base      *BaseEvent
	Objects   []any
	Aux       any
	Condition Condition
}

// Accepted evaluates the event's condition. Events without a condition are
// always accepted.
func (ev Event) Accepted() bool {
	return ev.Condition == nil || ev.Condition(ev.Aux)
}

func (ev Event) String() string {
	if ev.Base == nil {
		return "<nil event>"
	}
	parts := make([]string, 0, len(ev.Base.mask))
	for _, i := range ev.Base.mask {
		if i < len(ev.Objects) {
			parts = append(parts, fmt.Sprintf("%v", ev.Objects[i]))
		}
	}
	return fmt.Sprintf("%s(%s)", ev.Base.name, strings.Join(parts, ","))
}
