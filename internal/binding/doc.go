// Package binding maps bound objects to reusable Binding handles.
//
// Pointer objects are held weakly. When the garbage collector reclaims one,
// a cleanup pushes its Binding onto a reference queue, and the next Sweep
// removes it from the table and tells every release listener so the index
// can prune nodes keyed by it. Objects that cannot be weakly referenced
// (strings, integers, structs held by value) live until Release is called
// for them explicitly.
package binding
