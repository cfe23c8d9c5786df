package compiler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/paramtrace/internal/ir"
)

func validLock() *ir.PropertySpec {
	return &ir.PropertySpec{
		Name:       "Lock",
		Parameters: []string{"l"},
		Events: []ir.EventSpec{
			{Name: "acquire", Parameters: []string{"l"}},
			{Name: "release", Parameters: []string{"l"}},
		},
		Initial: "start",
		States: []ir.StateSpec{
			{Name: "start", On: []ir.TransitionSpec{{Event: "acquire", Target: "held"}}},
			{Name: "held", On: []ir.TransitionSpec{{Event: "release", Target: "start"}, {Event: "acquire", Target: "twice"}}},
			{Name: "twice", Accepting: true, On: []ir.TransitionSpec{{Event: "release", Target: "held"}}},
		},
	}
}

func TestValidateValid(t *testing.T) {
	assert.Empty(t, Validate(validLock()))
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.PropertySpec)
		field  string
		code   string
	}{
		{"missing name", func(p *ir.PropertySpec) { p.Name = " " }, "name", ErrMissingName},
		{"duplicate parameter", func(p *ir.PropertySpec) { p.Parameters = []string{"l", "l"} }, "parameters[1]", ErrDuplicateParameter},
		{"no events", func(p *ir.PropertySpec) {
			p.Events = nil
			p.States = []ir.StateSpec{{Name: "start", On: nil}, {Name: "twice", Accepting: true}}
		}, "events", ErrNoEvents},
		{"unknown parameter", func(p *ir.PropertySpec) { p.Events[1].Parameters = []string{"m"} }, "events.release[0]", ErrUnknownParameter},
		{"duplicate binding", func(p *ir.PropertySpec) { p.Events[0].Parameters = []string{"l", "l"} }, "events.acquire[1]", ErrDuplicateBinding},
		{"missing initial", func(p *ir.PropertySpec) { p.Initial = "" }, "initial", ErrMissingInitial},
		{"unknown initial", func(p *ir.PropertySpec) { p.Initial = "nope" }, "initial", ErrUnknownState},
		{"accepting initial", func(p *ir.PropertySpec) { p.Initial = "twice" }, "initial", ErrAcceptingInitial},
		{"initial without transitions", func(p *ir.PropertySpec) { p.States[0].On = nil }, "initial", ErrNoCreationTransition},
		{"no accepting state", func(p *ir.PropertySpec) { p.States[2].Accepting = false }, "states", ErrNoAcceptingState},
		{"final not accepting", func(p *ir.PropertySpec) { p.States[1].Final = true }, "states.held.final", ErrFinalNotAccepting},
		{"unknown event", func(p *ir.PropertySpec) { p.States[1].On[0].Event = "drop" }, "states.held.on.drop", ErrUnknownEvent},
		{"unknown target", func(p *ir.PropertySpec) { p.States[1].On[0].Target = "gone" }, "states.held.on.release", ErrUnknownState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validLock()
			tt.mutate(spec)
			errs := Validate(spec)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, tt.code, errs[0].Code)
		})
	}
}

func TestValidateTooManyParameters(t *testing.T) {
	spec := validLock()
	for i := range 64 {
		spec.Parameters = append(spec.Parameters, fmt.Sprintf("p%d", i))
	}

	errs := Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrTooManyParameters, errs[0].Code)
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "initial", Message: "initial state is required", Code: ErrMissingInitial}
	assert.Equal(t, "[E206] initial: initial state is required", err.Error())
}
