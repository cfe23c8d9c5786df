// Package staticdata compiles a parametric property (an alphabet plus a
// finite automaton over it) into the immutable tables the engine consults
// per event: creation and disabling flags, derive candidates, join
// descriptors, monitor-set chaining and the shapes of the parameter tree.
//
// A Model is computed once and never mutated, so it is safe to share between
// engines and goroutines.
package staticdata
