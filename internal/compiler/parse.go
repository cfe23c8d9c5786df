package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/paramtrace/internal/ir"
)

// ParseProperty parses a CUE value into a PropertySpec and validates it.
// The first problem found is returned as a *CompileError carrying the CUE
// source position.
//
// The CUE value should be the property struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`property: Lock: { ... }`)
//	spec, err := ParseProperty(v.LookupPath(cue.ParsePath("property.Lock")))
func ParseProperty(v cue.Value) (*ir.PropertySpec, error) {
	spec, errs := CheckProperty(v)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return spec, nil
}

// CheckProperty is ParseProperty collecting every problem instead of
// stopping at the first. The property spec is nil if the value could not be parsed.
func CheckProperty(v cue.Value) (*ir.PropertySpec, []error) {
	p := &parser{pos: make(map[string]token.Pos)}
	spec, err := p.parse(v)
	if err != nil {
		return nil, []error{err}
	}
	var errs []error
	for _, ve := range Validate(spec) {
		errs = append(errs, &CompileError{
			Field:   ve.Field,
			Message: fmt.Sprintf("[%s] %s", ve.Code, ve.Message),
			Pos:     p.position(ve.Field),
		})
	}
	if len(errs) > 0 {
		return spec, errs
	}
	return spec, nil
}

// parser remembers where each field was declared so validation errors on
// the parsed property spec can point back into the CUE source.
type parser struct {
	pos map[string]token.Pos
}

func (p *parser) position(field string) token.Pos {
	return p.pos[field]
}

func (p *parser) parse(v cue.Value) (*ir.PropertySpec, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "property", Message: "property not found"}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.PropertySpec{}
	p.pos[""] = v.Pos()

	// Property name is the struct label.
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	paramsVal, err := p.required(v, "parameters")
	if err != nil {
		return nil, err
	}
	spec.Parameters, err = p.stringList(paramsVal, "parameters")
	if err != nil {
		return nil, err
	}

	eventsVal, err := p.required(v, "events")
	if err != nil {
		return nil, err
	}
	spec.Events, err = p.parseEvents(eventsVal)
	if err != nil {
		return nil, err
	}

	initialVal, err := p.required(v, "initial")
	if err != nil {
		return nil, err
	}
	spec.Initial, err = p.str(initialVal, "initial")
	if err != nil {
		return nil, err
	}

	statesVal, err := p.required(v, "states")
	if err != nil {
		return nil, err
	}
	spec.States, err = p.parseStates(statesVal)
	if err != nil {
		return nil, err
	}

	return spec, nil
}

func (p *parser) required(v cue.Value, field string) (cue.Value, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return fv, &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	p.pos[field] = fv.Pos()
	return fv, nil
}

func (p *parser) str(v cue.Value, field string) (string, error) {
	s, err := v.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "must be a string", Pos: v.Pos()}
	}
	return s, nil
}

func (p *parser) stringList(v cue.Value, field string) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: v.Pos()}
	}
	out := []string{}
	for i := 0; iter.Next(); i++ {
		elemField := fmt.Sprintf("%s[%d]", field, i)
		s, err := p.str(iter.Value(), elemField)
		if err != nil {
			return nil, err
		}
		p.pos[elemField] = iter.Value().Pos()
		out = append(out, s)
	}
	return out, nil
}

// parseEvents extracts event symbols in declaration order.
func (p *parser) parseEvents(v cue.Value) ([]ir.EventSpec, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, &CompileError{Field: "events", Message: "must be a struct of parameter lists", Pos: v.Pos()}
	}
	var events []ir.EventSpec
	for iter.Next() {
		name := iter.Label()
		field := "events." + name
		p.pos[field] = iter.Value().Pos()
		params, err := p.stringList(iter.Value(), field)
		if err != nil {
			return nil, err
		}
		events = append(events, ir.EventSpec{Name: name, Parameters: params})
	}
	return events, nil
}

// parseStates extracts states in declaration order, with their transitions
// in declaration order.
func (p *parser) parseStates(v cue.Value) ([]ir.StateSpec, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, &CompileError{Field: "states", Message: "must be a struct of states", Pos: v.Pos()}
	}
	var states []ir.StateSpec
	for iter.Next() {
		sv := iter.Value()
		state := ir.StateSpec{Name: iter.Label()}
		field := "states." + state.Name
		p.pos[field] = sv.Pos()

		if state.Accepting, err = p.flag(sv, field, "accepting"); err != nil {
			return nil, err
		}
		if state.Final, err = p.flag(sv, field, "final"); err != nil {
			return nil, err
		}

		onVal := sv.LookupPath(cue.ParsePath("on"))
		if onVal.Exists() {
			onIter, err := onVal.Fields()
			if err != nil {
				return nil, &CompileError{Field: field + ".on", Message: "must be a struct of event: target", Pos: onVal.Pos()}
			}
			for onIter.Next() {
				tField := field + ".on." + onIter.Label()
				target, err := p.str(onIter.Value(), tField)
				if err != nil {
					return nil, err
				}
				p.pos[tField] = onIter.Value().Pos()
				state.On = append(state.On, ir.TransitionSpec{Event: onIter.Label(), Target: target})
			}
		}
		states = append(states, state)
	}
	return states, nil
}

func (p *parser) flag(sv cue.Value, field, name string) (bool, error) {
	fv := sv.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, &CompileError{Field: field + "." + name, Message: "must be a bool", Pos: fv.Pos()}
	}
	p.pos[field+"."+name] = fv.Pos()
	return b, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// First error with position info.
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
