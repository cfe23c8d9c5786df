package engine

// Match is one entry of a monitor into an accepting state.
type Match struct {
	// Seq numbers matches from 1 in the order they fired.
	Seq int64
	// Timestamp is the logical time of the event that caused the match.
	Timestamp int64
	// Event and State name the symbol and the accepting state.
	Event string
	State string
	// Bindings holds the bound objects by parameter index. An entry is nil
	// if the parameter is unbound or its object was already collected.
	Bindings []any
	// Aux is the auxiliary data of the triggering event.
	Aux any
}

// MatchSink receives matches synchronously, inside ProcessEvent and under
// the engine lock. A sink must not call back into the engine.
type MatchSink func(Match)
