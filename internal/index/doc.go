// Package index holds the runtime parameter tree. Nodes identify partial
// instances by their (parameter, binding) path from the root and carry the
// instance's monitor, monitor sets and last-event timestamp.
//
// Nodes live in an arena. Monitor sets and binding holders keep NodeRefs,
// which go stale when the node is freed instead of pinning it.
package index
