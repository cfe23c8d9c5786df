// Package fsm provides the finite automaton a parametric property is
// expressed in.
//
// An FSM is defined over the BaseEvents of one alphabet.Alphabet. Each State
// maps a BaseEvent to at most one successor; a missing transition means the
// trace slice can no longer match. Accepting states fire their MatchHandler
// when entered. A state is final when it is marked so explicitly or when it
// is accepting and has no outgoing transitions: a monitor reaching it stops
// after firing.
//
// Validate must be called (directly or by staticdata.Compile) before the
// automaton is used; it checks the definition and precomputes which states
// can still reach acceptance.
package fsm
