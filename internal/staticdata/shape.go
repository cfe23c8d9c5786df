package staticdata

import "slices"

// Shape describes every tree node bound to the same parameter subset. Nodes
// of one shape share its monitor-set layout and chaining descriptors.
type Shape struct {
	set      Set
	mask     []int
	children map[int]*Shape
	targets  []Set
	chains   []ChainArgs
}

func newShape(s Set) *Shape {
	return &Shape{set: s, mask: s.Mask()}
}

// Set returns the parameter subset bound by nodes of this shape.
func (sh *Shape) Set() Set { return sh.set }

// Mask returns the ascending parameter indices bound by this shape.
func (sh *Shape) Mask() []int { return sh.mask }

// Child returns the shape reached by binding param next, or nil if no
// instance can ever be extended that way.
func (sh *Shape) Child(param int) *Shape {
	return sh.children[param]
}

// Children returns the parameters this shape can be extended by, ascending.
func (sh *Shape) Children() []int {
	params := make([]int, 0, len(sh.children))
	for p := range sh.children {
		params = append(params, p)
	}
	slices.Sort(params)
	return params
}

// MonitorSetCount is the number of monitor sets each node of this shape owns.
func (sh *Shape) MonitorSetCount() int { return len(sh.targets) }

// MonitorSetTarget returns the monitor mask collected by monitor set id.
func (sh *Shape) MonitorSetTarget(id int) Set { return sh.targets[id] }

// MonitorSetID returns the id of the monitor set collecting monitors bound to
// exactly target.
func (sh *Shape) MonitorSetID(target Set) (int, bool) {
	i := slices.Index(sh.targets, target)
	return i, i >= 0
}

// Chainings lists the ancestor monitor sets a monitor at this shape joins.
func (sh *Shape) Chainings() []ChainArgs { return sh.chains }

// Leaf reports whether nodes of this shape can neither be extended nor own
// monitor sets. The node store skips allocating child tables for them.
func (sh *Shape) Leaf() bool {
	return len(sh.children) == 0 && len(sh.targets) == 0
}
