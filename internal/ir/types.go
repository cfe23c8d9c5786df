package ir

// PropertySpec is a parsed property definition: a parametric alphabet and
// the automaton over it.
//
// Parameter and event order is significant: it fixes the indices the
// compiled model works with.
type PropertySpec struct {
	Name       string      `json:"name"`
	Parameters []string    `json:"parameters"`
	Events     []EventSpec `json:"events"`
	Initial    string      `json:"initial"`
	States     []StateSpec `json:"states"`
}

// EventSpec declares an event symbol and the parameters it binds.
type EventSpec struct {
	Name       string   `json:"name"`
	Parameters []string `json:"parameters"`
}

// StateSpec declares an automaton state.
type StateSpec struct {
	Name      string           `json:"name"`
	Accepting bool             `json:"accepting"`
	Final     bool             `json:"final"`
	On        []TransitionSpec `json:"on"`
}

// TransitionSpec moves to Target on Event.
type TransitionSpec struct {
	Event  string `json:"event"`
	Target string `json:"target"`
}

// Value converts the property spec into its canonical object form.
func (p *PropertySpec) Value() Object {
	events := make(Array, len(p.Events))
	for i, e := range p.Events {
		events[i] = Object{
			"name":       String(e.Name),
			"parameters": Strings(e.Parameters...),
		}
	}
	states := make(Array, len(p.States))
	for i, s := range p.States {
		on := make(Array, len(s.On))
		for j, t := range s.On {
			on[j] = Object{"event": String(t.Event), "target": String(t.Target)}
		}
		states[i] = Object{
			"name":      String(s.Name),
			"accepting": Bool(s.Accepting),
			"final":     Bool(s.Final),
			"on":        on,
		}
	}
	return Object{
		"name":       String(p.Name),
		"parameters": Strings(p.Parameters...),
		"events":     events,
		"initial":    String(p.Initial),
		"states":     states,
	}
}

// Run is one monitoring session over an event trace.
type Run struct {
	ID            string `json:"id"`
	Property      string `json:"property"`
	PropertyHash  string `json:"property_hash"`
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`
}

// MatchRecord is a match as stored in the match log.
//
// Bindings maps parameter names to the symbolic names of the bound objects.
// Parameters the instance does not bind are absent.
type MatchRecord struct {
	ID        string `json:"id"`
	RunID     string `json:"run_id"`
	Property  string `json:"property"`
	Seq       int64  `json:"seq"`
	Timestamp int64  `json:"timestamp"`
	Event     string `json:"event"`
	State     string `json:"state"`
	Bindings  Object `json:"bindings"`
	Aux       string `json:"aux,omitempty"`
}
