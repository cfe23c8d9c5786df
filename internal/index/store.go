package index

import (
	"fmt"
	"slices"

	"github.com/roach88/paramtrace/internal/binding"
	"github.com/roach88/paramtrace/internal/staticdata"
)

type slot struct {
	node *Node
	gen  uint32
}

// Store is the arena holding every node of one engine. It is not safe for
// concurrent use.
type Store struct {
	model    *staticdata.Model
	slots    []slot
	free     []int32
	root     *Node
	holders  map[*binding.Binding][]NodeRef
	size     int
	onCreate func()
	onRemove func(n int)
}

// Option configures a Store.
type Option func(*Store)

// OnNodeCreated registers fn to run for every node created.
func OnNodeCreated(fn func()) Option {
	return func(s *Store) {
		s.onCreate = fn
	}
}

// OnNodesRemoved registers fn to run with the number of nodes each release
// pruned.
func OnNodesRemoved(fn func(n int)) Option {
	return func(s *Store) {
		s.onRemove = fn
	}
}

// NewStore creates a tree holding only the root.
func NewStore(model *staticdata.Model, opts ...Option) *Store {
	s := &Store{model: model}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

// Reset drops every node and starts over with a fresh root.
func (s *Store) Reset() {
	s.slots = nil
	s.free = nil
	s.holders = make(map[*binding.Binding][]NodeRef)
	s.size = 0
	s.root = s.alloc(s.model.Root(), nil, edgeKey{param: -1}, nil)
}

// Root returns the node of the empty instance.
func (s *Store) Root() *Node { return s.root }

// Size returns the number of nodes, the root excluded.
func (s *Store) Size() int { return s.size }

// Resolve dereferences ref, returning nil if the node was freed.
func (s *Store) Resolve(ref NodeRef) *Node {
	if int(ref.idx) >= len(s.slots) {
		return nil
	}
	sl := s.slots[ref.idx]
	if sl.gen != ref.gen || sl.node == nil {
		return nil
	}
	return sl.node
}

// GetNode returns the node for bindings restricted to mask, or NullNode.
// bindings are indexed by parameter.
func (s *Store) GetNode(bindings []*binding.Binding, mask staticdata.Set) *Node {
	n := s.root
	for _, p := range mask.Mask() {
		child, ok := n.children[edgeKey{p, bindings[p]}]
		if !ok {
			return NullNode
		}
		n = child
	}
	return n
}

// GetOrCreateNode returns the node for bindings restricted to mask, creating
// missing nodes along the path. bindings are indexed by parameter.
func (s *Store) GetOrCreateNode(bindings []*binding.Binding, mask staticdata.Set) *Node {
	n := s.root
	for _, p := range mask.Mask() {
		n = s.child(n, p, bindings[p])
	}
	return n
}

// GetOrCreateCompressed is GetOrCreateNode for bindings compressed to mask.
func (s *Store) GetOrCreateCompressed(bindings []*binding.Binding, mask staticdata.Set) *Node {
	n := s.root
	for i, p := range mask.Mask() {
		n = s.child(n, p, bindings[i])
	}
	return n
}

// GetNodeWithin returns the node for sub, a subset of mask, with bindings
// compressed to mask, or NullNode.
func (s *Store) GetNodeWithin(bindings []*binding.Binding, mask, sub staticdata.Set) *Node {
	n := s.root
	for _, p := range sub.Mask() {
		child, ok := n.children[edgeKey{p, bindings[mask.Slot(p)]}]
		if !ok {
			return NullNode
		}
		n = child
	}
	return n
}

func (s *Store) child(n *Node, p int, b *binding.Binding) *Node {
	key := edgeKey{p, b}
	if c, ok := n.children[key]; ok {
		return c
	}
	shape := n.shape.Child(p)
	if shape == nil {
		panic(fmt.Sprintf("index: no instance of %s is ever extended by parameter %d", n.Mask(), p))
	}
	if b == nil {
		panic(fmt.Sprintf("index: parameter %d unbound on the way to a node", p))
	}
	c := s.alloc(shape, n, key, append(slices.Clone(n.bindings), b))
	if n.children == nil {
		n.children = make(map[edgeKey]*Node)
	}
	n.children[key] = c
	s.holders[b] = append(s.holders[b], c.ref)
	s.size++
	if s.onCreate != nil {
		s.onCreate()
	}
	return c
}

func (s *Store) alloc(shape *staticdata.Shape, parent *Node, edge edgeKey, bindings []*binding.Binding) *Node {
	n := &Node{
		shape:     shape,
		parent:    parent,
		edge:      edge,
		bindings:  bindings,
		timestamp: -1,
	}
	if c := shape.MonitorSetCount(); c > 0 {
		n.sets = make([]*MonitorSet, c)
	}
	if k := len(s.free); k > 0 {
		idx := s.free[k-1]
		s.free = s.free[:k-1]
		s.slots[idx].node = n
		n.ref = NodeRef{idx: idx, gen: s.slots[idx].gen}
		return n
	}
	s.slots = append(s.slots, slot{node: n})
	n.ref = NodeRef{idx: int32(len(s.slots) - 1)}
	return n
}

// Release prunes every node keyed by b together with its subtree and
// returns the number of nodes removed.
func (s *Store) Release(b *binding.Binding) int {
	removed := 0
	for _, ref := range s.holders[b] {
		if n := s.Resolve(ref); n != nil {
			delete(n.parent.children, n.edge)
			removed += s.free1(n)
		}
	}
	delete(s.holders, b)
	if removed > 0 && s.onRemove != nil {
		s.onRemove(removed)
	}
	return removed
}

func (s *Store) free1(n *Node) int {
	removed := 1
	for _, c := range n.children {
		removed += s.free1(c)
	}
	sl := &s.slots[n.ref.idx]
	sl.node = nil
	sl.gen++
	s.free = append(s.free, n.ref.idx)
	s.size--
	n.children = nil
	n.parent = nil
	return removed
}

// Chain adds n to every ancestor monitor set its shape is chained into, so
// events on those ancestors reach n's monitor.
func (s *Store) Chain(n *Node) {
	for _, c := range n.shape.Chainings() {
		anc := s.GetOrCreateCompressed(n.project(c.NodeMask), c.NodeMask)
		anc.MonitorSet(c.MonitorSetID).Add(n.ref)
	}
}

// Walk calls fn for every node except the root, parents before children.
func (s *Store) Walk(fn func(*Node)) {
	var walk func(*Node)
	walk = func(n *Node) {
		for _, c := range n.children {
			fn(c)
			walk(c)
		}
	}
	walk(s.root)
}

// Monitors returns the number of nodes carrying a monitor.
func (s *Store) Monitors() int {
	count := 0
	s.Walk(func(n *Node) {
		if n.monitor != nil {
			count++
		}
	})
	return count
}
