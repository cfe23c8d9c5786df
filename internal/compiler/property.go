package compiler

import (
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/paramtrace/internal/alphabet"
	"github.com/roach88/paramtrace/internal/fsm"
	"github.com/roach88/paramtrace/internal/ir"
)

// Property is a compiled property definition.
type Property struct {
	Spec     *ir.PropertySpec
	Hash     string
	Alphabet *alphabet.Alphabet
	FSM      *fsm.FSM
}

// Name returns the property name.
func (p *Property) Name() string { return p.Spec.Name }

// Event builds a runtime event for the named symbol. objects maps parameter
// names to the bound objects and must cover exactly the symbol's parameters.
func (p *Property) Event(name string, objects map[string]any) (alphabet.Event, error) {
	base, ok := p.Alphabet.Event(name)
	if !ok {
		return alphabet.Event{}, fmt.Errorf("property %s has no event %q", p.Name(), name)
	}
	params := base.Parameters()
	if len(objects) != len(params) {
		return alphabet.Event{}, fmt.Errorf("event %s binds %d parameters, got %d objects", name, len(params), len(objects))
	}
	ordered := make([]any, len(params))
	for i, param := range params {
		obj, ok := objects[param.Name()]
		if !ok || obj == nil {
			return alphabet.Event{}, fmt.Errorf("event %s: no object for parameter %q", name, param.Name())
		}
		ordered[i] = obj
	}
	return p.Alphabet.NewEvent(base, ordered...), nil
}

// Build constructs the alphabet and automaton of a validated spec.
func Build(spec *ir.PropertySpec) (*Property, error) {
	if errs := Validate(spec); len(errs) > 0 {
		return nil, errs[0]
	}
	hash, err := ir.PropertyHash(spec)
	if err != nil {
		return nil, err
	}

	a := alphabet.New()
	params := make(map[string]*alphabet.Parameter, len(spec.Parameters))
	for _, name := range spec.Parameters {
		params[name] = a.CreateParameter(name)
	}
	events := make(map[string]*alphabet.BaseEvent, len(spec.Events))
	for _, e := range spec.Events {
		bound := make([]*alphabet.Parameter, len(e.Parameters))
		for i, name := range e.Parameters {
			bound[i] = params[name]
		}
		events[e.Name] = a.CreateEvent(e.Name, bound...)
	}

	f := fsm.New(a)
	states := make(map[string]*fsm.State, len(spec.States))
	for _, s := range spec.States {
		switch {
		case s.Name == spec.Initial:
			states[s.Name] = f.CreateInitialState(s.Name)
		case s.Accepting:
			states[s.Name] = f.CreateAcceptingState(s.Name, nil)
			if s.Final {
				f.SetFinal(states[s.Name])
			}
		default:
			states[s.Name] = f.CreateState(s.Name)
		}
	}
	for _, s := range spec.States {
		for _, t := range s.On {
			states[s.Name].On(events[t.Event], states[t.Target])
		}
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("property %s: %w", spec.Name, err)
	}

	return &Property{Spec: spec, Hash: hash, Alphabet: a, FSM: f}, nil
}

// CompileProperty parses, validates and builds one property value.
func CompileProperty(v cue.Value) (*Property, error) {
	spec, err := ParseProperty(v)
	if err != nil {
		return nil, err
	}
	return Build(spec)
}

// CompileValue compiles every property under the "property" field of v,
// sorted by name.
func CompileValue(v cue.Value) ([]*Property, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	propsVal := v.LookupPath(cue.ParsePath("property"))
	if !propsVal.Exists() {
		return nil, &CompileError{Field: "property", Message: "no property definitions found", Pos: v.Pos()}
	}
	iter, err := propsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var props []*Property
	for iter.Next() {
		p, err := CompileProperty(iter.Value())
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Name() < props[j].Name() })
	return props, nil
}

// CompileString compiles the properties declared in CUE source text.
// filename is used in error positions.
func CompileString(src, filename string) ([]*Property, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return CompileValue(v)
}

// CompileFile compiles the properties declared in one CUE file.
func CompileFile(path string) ([]*Property, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return CompileString(string(data), path)
}

// Find returns the property called name.
func Find(props []*Property, name string) (*Property, error) {
	for _, p := range props {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("property %q not found", name)
}
