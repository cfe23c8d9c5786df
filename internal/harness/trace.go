package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/paramtrace/internal/alphabet"
	"github.com/roach88/paramtrace/internal/compiler"
	"github.com/roach88/paramtrace/internal/testutil"
)

// Trace is a stand-alone event trace, the input of `paramtrace run`:
//
//	property: Lock
//	steps:
//	  - event: acquire
//	    objects: { l: l1 }
//	  - release: [l1]
type Trace struct {
	// Property optionally names the property the trace is for.
	Property string `yaml:"property,omitempty"`

	// Steps uses the scenario step format.
	Steps []Step `yaml:"steps"`
}

// LoadTrace reads and validates a trace YAML file.
func LoadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}

	var trace Trace
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&trace); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(trace.Steps) == 0 {
		return nil, fmt.Errorf("invalid trace: steps list is required and must be non-empty")
	}
	for i, step := range trace.Steps {
		if err := validateStep(i, step); err != nil {
			return nil, fmt.Errorf("invalid trace: %w", err)
		}
	}
	return &trace, nil
}

// Objects maps symbolic names to the heap objects they stand for.
//
// Objects keeps every live object reachable, so only released names can be
// collected.
type Objects struct {
	live map[string]*testutil.Object
}

// NewObjects creates an empty name table.
func NewObjects() *Objects {
	return &Objects{live: make(map[string]*testutil.Object)}
}

// Get returns the live object called name, allocating it on first use.
func (o *Objects) Get(name string) *testutil.Object {
	obj, ok := o.live[name]
	if !ok {
		obj = testutil.NewObject(name)
		o.live[name] = obj
	}
	return obj
}

// Retire forgets name and returns the object it stood for. A later Get
// allocates a new object.
func (o *Objects) Retire(name string) (*testutil.Object, error) {
	obj, ok := o.live[name]
	if !ok {
		return nil, fmt.Errorf("release of unknown object %q", name)
	}
	delete(o.live, name)
	return obj, nil
}

// Len returns the number of live names.
func (o *Objects) Len() int { return len(o.live) }

// Event builds the runtime event of an event step.
func (o *Objects) Event(prop *compiler.Property, step Step) (alphabet.Event, error) {
	objects := make(map[string]any, len(step.Objects))
	for param, name := range step.Objects {
		objects[param] = o.Get(name)
	}
	ev, err := prop.Event(step.Event, objects)
	if err != nil {
		return alphabet.Event{}, err
	}
	if step.Aux != "" {
		ev.Aux = step.Aux
	}
	return ev, nil
}
