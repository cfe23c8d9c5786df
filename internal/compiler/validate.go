package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/paramtrace/internal/alphabet"
	"github.com/roach88/paramtrace/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrMissingName          = "E200" // property has no name
	ErrDuplicateParameter   = "E201" // parameter declared twice
	ErrTooManyParameters    = "E202" // more parameters than a mask holds
	ErrNoEvents             = "E203" // at least one event required
	ErrUnknownParameter     = "E204" // event binds an undeclared parameter
	ErrDuplicateBinding     = "E205" // event binds a parameter twice
	ErrMissingInitial       = "E206" // initial state required
	ErrUnknownState         = "E207" // initial or target names no state
	ErrUnknownEvent         = "E208" // transition on an undeclared event
	ErrNoAcceptingState     = "E209" // at least one accepting state required
	ErrFinalNotAccepting    = "E210" // final only applies to accepting states
	ErrAcceptingInitial     = "E211" // initial state cannot be accepting
	ErrNoCreationTransition = "E212" // initial state must leave on some event
)

// ValidationError represents a property validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a property definition.
// Returns all errors found (does not fail-fast).
func Validate(spec *ir.PropertySpec) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	if strings.TrimSpace(spec.Name) == "" {
		add("name", ErrMissingName, "property name is required")
	}

	params := make(map[string]bool, len(spec.Parameters))
	for i, p := range spec.Parameters {
		if params[p] {
			add(fmt.Sprintf("parameters[%d]", i), ErrDuplicateParameter, "duplicate parameter %q", p)
		}
		params[p] = true
	}
	if len(spec.Parameters) > alphabet.MaxParameters {
		add("parameters", ErrTooManyParameters, "at most %d parameters are supported, got %d",
			alphabet.MaxParameters, len(spec.Parameters))
	}

	if len(spec.Events) == 0 {
		add("events", ErrNoEvents, "at least one event is required")
	}
	events := make(map[string]bool, len(spec.Events))
	for _, e := range spec.Events {
		events[e.Name] = true
		bound := make(map[string]bool, len(e.Parameters))
		for i, p := range e.Parameters {
			field := fmt.Sprintf("events.%s[%d]", e.Name, i)
			if !params[p] {
				add(field, ErrUnknownParameter, "event %q binds undeclared parameter %q", e.Name, p)
			}
			if bound[p] {
				add(field, ErrDuplicateBinding, "event %q binds parameter %q twice", e.Name, p)
			}
			bound[p] = true
		}
	}

	states := make(map[string]*ir.StateSpec, len(spec.States))
	accepting := false
	for i := range spec.States {
		s := &spec.States[i]
		states[s.Name] = s
		accepting = accepting || s.Accepting
	}

	switch initial, ok := states[spec.Initial]; {
	case spec.Initial == "":
		add("initial", ErrMissingInitial, "initial state is required")
	case !ok:
		add("initial", ErrUnknownState, "initial state %q is not declared", spec.Initial)
	case initial.Accepting:
		add("initial", ErrAcceptingInitial, "initial state %q cannot be accepting", spec.Initial)
	case len(initial.On) == 0:
		add("initial", ErrNoCreationTransition, "initial state %q has no transitions", spec.Initial)
	}

	if len(spec.States) > 0 && !accepting {
		add("states", ErrNoAcceptingState, "at least one state must be accepting")
	}

	for _, s := range spec.States {
		field := "states." + s.Name
		if s.Final && !s.Accepting {
			add(field+".final", ErrFinalNotAccepting, "state %q is final but not accepting", s.Name)
		}
		for _, t := range s.On {
			tField := field + ".on." + t.Event
			if !events[t.Event] {
				add(tField, ErrUnknownEvent, "transition on undeclared event %q", t.Event)
			}
			if _, ok := states[t.Target]; !ok {
				add(tField, ErrUnknownState, "transition to undeclared state %q", t.Target)
			}
		}
	}

	return errs
}
