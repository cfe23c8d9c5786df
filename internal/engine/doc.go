// Package engine implements the parametric monitoring engine.
//
// ParametricMonitor receives events whose parameters are bound to objects
// and keeps one automaton instance per combination of objects that the
// property can tell apart. Each event runs through four phases:
//
//   - update: the instance of exactly the event's objects, and every more
//     informative instance chained below it, processes the event;
//   - derive: a new instance copies the most informative compatible
//     instance seen so far, if no intervening event invalidates the copy;
//   - create: a creation event starts a fresh instance, or a dead one for
//     disabling events;
//   - join: instances combining the event's objects with objects of
//     compatible partial instances are built by merging bindings.
//
// CONCURRENCY:
//
// ProcessEvent runs under one mutex. Events are processed one at a time in
// arrival order; the algorithm's timestamps assume it. The only asynchronous
// input is the garbage collector, which queues dead bindings for the next
// cleanup pass. Runner adds a FIFO queue and a single-writer loop for
// producers on other goroutines.
//
// TIMESTAMPS:
//
// Every accepted event is stamped from a logical Clock. Nodes record the last
// event at their exact instance; monitors record when their lineage was
// created. Wall-clock time is never used.
package engine
