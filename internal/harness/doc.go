// Package harness provides conformance testing for paramtrace properties.
//
// The harness compiles a CUE property, drives it with a scripted trace of
// events and object releases, and checks the matches and engine state that
// result.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	file: ../properties.cue
//	property: UnsafeIterator
//	steps:
//	  - event: createColl
//	    objects: { c: c1 }
//	  - event: createIter
//	    objects: { c: c1, i: i1 }
//	  - release: [c1]
//	    cleanup: true
//	assertions:
//	  - type: match_count
//	    count: 0
//	  - type: binding_count
//	    count: 1
//
// Objects are named symbolically; each name stands for one heap object
// until it is released.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - match_count: Verifies exactly N matches were reported
//   - match_bindings: Verifies the bindings (and optionally state and event) of one match
//   - monitor_count: Verifies the number of monitors after the last step
//   - node_count: Verifies the number of parameter tree nodes after the last step
//   - binding_count: Verifies the number of live bindings after the last step
//
// # Deterministic Testing
//
// Each scenario runs against a fresh engine and an in-memory SQLite match
// log. The run ID is derived from the scenario name and the engine's clock
// is logical, so identical scenarios produce byte-identical match traces
// for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/lock.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
