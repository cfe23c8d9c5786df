package alphabet

import "fmt"

// Parameter is an object-identity slot of a property.
//
// A Parameter is created unbound and receives its index when it is added to
// an Alphabet. The index never changes afterwards.
type Parameter struct {
	name     string
	index    int
	alphabet *Alphabet
}

// NewParameter creates a Parameter that is not yet part of any Alphabet.
func NewParameter(name string) *Parameter {
	return &Parameter{name: name, index: -1}
}

// Name returns the parameter's label.
func (p *Parameter) Name() string {
	return p.name
}

// Index returns the dense index assigned by the owning Alphabet.
//
// Panics if the parameter has not been added to an Alphabet.
func (p *Parameter) Index() int {
	if p.index < 0 {
		panic(fmt.Sprintf("alphabet: parameter %q used before its index was assigned", p.name))
	}
	return p.index
}

// HasIndex reports whether an index has been assigned.
func (p *Parameter) HasIndex() bool {
	return p.index >= 0
}

// setIndex assigns the index. Reassignment and negative indices are
// configuration errors.
func (p *Parameter) setIndex(i int) {
	if i < 0 {
		panic(fmt.Sprintf("alphabet: parameter %q: index %d out of range", p.name, i))
	}
	if p.index >= 0 && p.index != i {
		panic(fmt.Sprintf("alphabet: parameter %q already has index %d, cannot assign %d", p.name, p.index, i))
	}
	p.index = i
}

func (p *Parameter) String() string {
	return p.name
}
