package index

import (
	"math"

	"github.com/roach88/paramtrace/internal/binding"
	"github.com/roach88/paramtrace/internal/monitor"
	"github.com/roach88/paramtrace/internal/staticdata"
)

// NodeRef is a weak reference to a node: an arena slot plus the generation
// the slot had when the reference was taken.
type NodeRef struct {
	idx int32
	gen uint32
}

type edgeKey struct {
	param   int
	binding *binding.Binding
}

// Node is one instance in the parameter tree.
type Node struct {
	ref       NodeRef
	shape     *staticdata.Shape
	parent    *Node
	edge      edgeKey
	children  map[edgeKey]*Node
	bindings  []*binding.Binding
	monitor   *monitor.Monitor
	sets      []*MonitorSet
	timestamp int64
	null      bool
}

// NullNode stands for an instance that does not exist. It has no monitor,
// no monitor sets and a timestamp older than any event.
var NullNode = &Node{null: true, timestamp: math.MinInt64}

// IsNull reports whether n is the NullNode sentinel.
func (n *Node) IsNull() bool { return n.null }

// Ref returns a weak reference to n.
func (n *Node) Ref() NodeRef { return n.ref }

// Shape returns the static shape of n, nil for NullNode.
func (n *Node) Shape() *staticdata.Shape { return n.shape }

// Mask returns the parameters bound by n.
func (n *Node) Mask() staticdata.Set {
	if n.shape == nil {
		return 0
	}
	return n.shape.Set()
}

// Bindings returns n's bindings compressed to its mask.
func (n *Node) Bindings() []*binding.Binding { return n.bindings }

// Monitor returns the monitor of this exact instance, or nil.
func (n *Node) Monitor() *monitor.Monitor { return n.monitor }

// SetMonitor installs m. It panics on NullNode.
func (n *Node) SetMonitor(m *monitor.Monitor) {
	if n.null {
		panic("index: monitor installed on the null node")
	}
	n.monitor = m
}

// Timestamp returns the time of the last event at this exact instance, or -1
// if there was none.
func (n *Node) Timestamp() int64 { return n.timestamp }

// SetTimestamp stamps n. It panics on NullNode.
func (n *Node) SetTimestamp(ts int64) {
	if n.null {
		panic("index: timestamp set on the null node")
	}
	n.timestamp = ts
}

// MonitorSets returns n's monitor sets indexed by id. Entries are nil until
// first used.
func (n *Node) MonitorSets() []*MonitorSet { return n.sets }

// MonitorSet returns monitor set id, creating it on first use.
func (n *Node) MonitorSet(id int) *MonitorSet {
	if n.sets[id] == nil {
		n.sets[id] = &MonitorSet{}
	}
	return n.sets[id]
}

// ExistingMonitorSet returns monitor set id, or nil if it was never used.
func (n *Node) ExistingMonitorSet(id int) *MonitorSet {
	if n.null || id >= len(n.sets) {
		return nil
	}
	return n.sets[id]
}

// project returns n's bindings restricted to sub, which must be a subset of
// n's mask.
func (n *Node) project(sub staticdata.Set) []*binding.Binding {
	mask := n.Mask()
	out := make([]*binding.Binding, 0, sub.Len())
	for _, p := range sub.Mask() {
		out = append(out, n.bindings[mask.Slot(p)])
	}
	return out
}

func (n *Node) String() string {
	if n.null {
		return "<null>"
	}
	return n.Mask().String()
}
