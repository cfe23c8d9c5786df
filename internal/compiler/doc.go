// Package compiler turns CUE property definitions into the alphabet and
// automaton the static model is compiled from.
//
// A property is declared under the top-level "property" field:
//
//	property: UnsafeIterator: {
//		parameters: ["c", "i"]
//		events: {createColl: ["c"], createIter: ["c", "i"], useIter: ["i"], updateColl: ["c"]}
//		initial: "start"
//		states: {
//			start: on: {createColl: "s1"}
//			s1: on: {updateColl: "s1", createIter: "s2"}
//			s2: on: {useIter: "s2", updateColl: "s3"}
//			s3: on: {updateColl: "s3", useIter: "error"}
//			error: accepting: true
//		}
//	}
//
// Parameter and event order is declaration order. Accepting states without
// outgoing transitions are final; "final: true" makes any accepting state
// final.
package compiler
