package staticdata

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/paramtrace/internal/alphabet"
	"github.com/roach88/paramtrace/internal/fsm"
)

// ErrNoCreationEvent is returned for automata whose initial state has no
// outgoing transition. Such a property can never start monitoring.
var ErrNoCreationEvent = errors.New("staticdata: no creation event leaves the initial state")

// FindMaxArgs describes one derive candidate for an event: the instance at
// NodeMask is looked up and its monitor copied if none of the DisableMasks
// instances saw something the candidate missed.
type FindMaxArgs struct {
	NodeMask     Set
	DisableMasks []Set
}

// SlotCopy moves a binding from a candidate's compressed bindings into the
// joined instance.
type SlotCopy struct {
	From int
	To   int
}

// JoinArgs describes one join for an event. Monitors bound to SourceMask are
// collected in monitor set MonitorSetID of the compatible node at NodeMask.
// Each is merged with the event's bindings into an instance of TargetMask.
type JoinArgs struct {
	NodeMask     Set
	MonitorSetID int
	SourceMask   Set
	TargetMask   Set
	// ExtensionPattern holds, per slot of TargetMask, the event's parameter
	// index filling it, or -1 for a gap filled from the candidate.
	ExtensionPattern []int
	CopyPattern      []SlotCopy
	// DisableMasks are subsets of the event's parameters, looked up with the
	// event's bindings once per join.
	DisableMasks []Set
	// MixedMasks are the remaining subsets of TargetMask outside SourceMask.
	// They depend on the candidate and are looked up in its joined bindings.
	MixedMasks []Set
}

// ChainArgs names the ancestor monitor set a newly realised monitor must be
// added to.
type ChainArgs struct {
	NodeMask     Set
	MonitorSetID int
}

// Model holds the compiled tables for one property.
type Model struct {
	alphabet  *alphabet.Alphabet
	fsm       *fsm.FSM
	eventSets []Set
	enable    [][]Set
	creation  []bool
	disabling []bool
	maxData   [][]FindMaxArgs
	joinData  [][]JoinArgs
	existing  [][]Set
	alive     [][]Set
	monitors  []Set
	shapes    map[Set]*Shape
	root      *Shape
}

type position struct {
	state *fsm.State
	set   Set
}

type monitorSetKey struct {
	node   Set
	target Set
}

// Compile computes the static model of f. The automaton is validated first if
// that has not happened yet.
func Compile(f *fsm.FSM) (*Model, error) {
	if !f.Validated() {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}
	a := f.Alphabet()
	events := a.Events()
	m := &Model{
		alphabet:  a,
		fsm:       f,
		eventSets: make([]Set, len(events)),
		enable:    make([][]Set, len(events)),
		creation:  make([]bool, len(events)),
		disabling: make([]bool, len(events)),
		maxData:   make([][]FindMaxArgs, len(events)),
		joinData:  make([][]JoinArgs, len(events)),
		existing:  make([][]Set, len(events)),
		shapes:    make(map[Set]*Shape),
	}
	for _, e := range events {
		m.eventSets[e.Index()] = SetOf(e.ParameterMask()...)
	}

	initial := f.Initial()
	anyCreation := false
	for _, e := range events {
		next := initial.Next(e)
		if next == nil || next == initial {
			continue
		}
		anyCreation = true
		m.creation[e.Index()] = true
		m.disabling[e.Index()] = !next.CanReachAccepting()
	}
	if !anyCreation {
		return nil, ErrNoCreationEvent
	}

	enable, alive := m.enableSets(events)
	all := setList{}
	for _, s := range alive.items {
		all.add(s)
	}
	for _, e := range events {
		if m.disabling[e.Index()] {
			all.add(m.eventSets[e.Index()])
		}
	}
	m.monitors = all.sorted()

	pairs := make(map[monitorSetKey]bool)
	pairTargets := make(map[Set][]Set)
	addPair := func(node, target Set) {
		k := monitorSetKey{node, target}
		if !pairs[k] {
			pairs[k] = true
			pairTargets[node] = append(pairTargets[node], target)
		}
	}
	// Update sets: every instance strictly more informative than an event's
	// own instance receives that event.
	for _, p := range m.distinctEventSets() {
		for _, y := range alive.sorted() {
			if y.StrictlyContains(p) {
				addPair(p, y)
			}
		}
	}

	for _, e := range events {
		i := e.Index()
		p := m.eventSets[i]
		m.enable[i] = enable[i].sorted()
		candidates := slices.Clone(m.enable[i])
		SortDescending(candidates)
		for _, es := range candidates {
			switch {
			case es != p && p.Contains(es) && all.has(es):
				m.maxData[i] = append(m.maxData[i], FindMaxArgs{
					NodeMask:     es,
					DisableMasks: disableMasks(p, es),
				})
			case es.Contains(p):
				// More informative instances already get ev through their
				// update monitor sets.
			default:
				kappa := es & p
				addPair(kappa, es)
				m.joinData[i] = append(m.joinData[i], m.newJoinArgs(p, kappa, es))
			}
		}
		if m.creation[i] {
			for _, x := range m.monitors {
				if p.StrictlyContains(x) {
					m.existing[i] = append(m.existing[i], x)
				}
			}
			SortDescending(m.existing[i])
		}
	}

	m.buildShapes(pairTargets)
	for i := range m.joinData {
		for j := range m.joinData[i] {
			ja := &m.joinData[i][j]
			id, ok := m.shapes[ja.NodeMask].MonitorSetID(ja.SourceMask)
			if !ok {
				return nil, fmt.Errorf("staticdata: no monitor set %s at %s", ja.SourceMask, ja.NodeMask)
			}
			ja.MonitorSetID = id
		}
	}

	m.alive = m.aliveMasks(events)
	return m, nil
}

// enableSets explores the automaton from (initial, {}) and records, per
// event, every parameter set already bound when that event moves an instance
// along a path that can still accept. Instances that never leave the initial
// state are never materialised and do not contribute.
func (m *Model) enableSets(events []*alphabet.BaseEvent) ([]setList, setList) {
	enable := make([]setList, len(events))
	var alive setList
	initial := m.fsm.Initial()
	start := position{initial, 0}
	seen := map[position]bool{start: true}
	queue := []position{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range events {
			next := cur.state.Next(e)
			if next == nil || !next.CanReachAccepting() {
				continue
			}
			enable[e.Index()].add(cur.set)
			if cur == start && next == initial {
				continue
			}
			np := position{next, cur.set | m.eventSets[e.Index()]}
			alive.add(np.set)
			if !seen[np] {
				seen[np] = true
				queue = append(queue, np)
			}
		}
	}
	return enable, alive
}

func (m *Model) distinctEventSets() []Set {
	var l setList
	for _, s := range m.eventSets {
		l.add(s)
	}
	return l.sorted()
}

func disableMasks(p, covered Set) []Set {
	var masks []Set
	for _, d := range p.Subsets() {
		if !covered.Contains(d) {
			masks = append(masks, d)
		}
	}
	return masks
}

// mixedDisableMasks returns the subsets of u that take parameters from both
// es and p without lying inside either, restricted to instances that can be
// stamped or carry a monitor.
func (m *Model) mixedDisableMasks(u, es, p Set) []Set {
	var masks []Set
	for _, d := range u.Subsets() {
		if es.Contains(d) || p.Contains(d) {
			continue
		}
		if slices.Contains(m.eventSets, d) || slices.Contains(m.monitors, d) {
			masks = append(masks, d)
		}
	}
	return masks
}

func (m *Model) newJoinArgs(p, kappa, es Set) JoinArgs {
	u := es | p
	ext := make([]int, 0, u.Len())
	for _, param := range u.Mask() {
		if p.Has(param) {
			ext = append(ext, param)
		} else {
			ext = append(ext, -1)
		}
	}
	var copies []SlotCopy
	for _, param := range (es &^ p).Mask() {
		copies = append(copies, SlotCopy{From: es.Slot(param), To: u.Slot(param)})
	}
	return JoinArgs{
		NodeMask:         kappa,
		SourceMask:       es,
		TargetMask:       u,
		ExtensionPattern: ext,
		CopyPattern:      copies,
		DisableMasks:     disableMasks(p, kappa),
		MixedMasks:       m.mixedDisableMasks(u, es, p),
	}
}

// buildShapes creates one shape per parameter subset that can ever be the
// mask of a tree node, links prefixes to their extensions and lays out
// monitor sets and chainings.
func (m *Model) buildShapes(pairTargets map[Set][]Set) {
	var used setList
	used.add(0)
	for _, p := range m.eventSets {
		used.add(p)
		for _, d := range p.Subsets() {
			used.add(d)
		}
	}
	for _, s := range m.monitors {
		used.add(s)
	}
	for node, targets := range pairTargets {
		used.add(node)
		for _, t := range targets {
			used.add(t)
		}
	}
	for _, joins := range m.joinData {
		for _, ja := range joins {
			used.add(ja.NodeMask)
			used.add(ja.TargetMask)
		}
	}

	shape := func(s Set) *Shape {
		sh, ok := m.shapes[s]
		if !ok {
			sh = newShape(s)
			m.shapes[s] = sh
		}
		return sh
	}
	m.root = shape(0)
	for _, s := range used.sorted() {
		parent := m.root
		var prefix Set
		for _, param := range s.Mask() {
			prefix |= 1 << uint(param)
			child := shape(prefix)
			if parent.children == nil {
				parent.children = make(map[int]*Shape)
			}
			parent.children[param] = child
			parent = child
		}
	}

	for node, targets := range pairTargets {
		sh := shape(node)
		sh.targets = slices.Clone(targets)
		SortAscending(sh.targets)
	}
	chains := make(map[Set][]ChainArgs)
	for node, sh := range m.shapes {
		for id, target := range sh.targets {
			chains[target] = append(chains[target], ChainArgs{NodeMask: node, MonitorSetID: id})
		}
	}
	for target, list := range chains {
		slices.SortFunc(list, func(a, b ChainArgs) int { return Compare(a.NodeMask, b.NodeMask) })
		shape(target).chains = list
	}
}

// aliveMasks computes, per automaton state, the minimal parameter sets whose
// bindings some path of at least one step to an accepting state needs. A
// monitor stays useful while, for one of these sets, none of its bound
// parameters in it has been collected.
func (m *Model) aliveMasks(events []*alphabet.BaseEvent) [][]Set {
	states := m.fsm.States()
	coenable := make([]setList, len(states))
	for changed := true; changed; {
		changed = false
		for _, s := range states {
			for _, e := range events {
				t := s.Next(e)
				if t == nil {
					continue
				}
				p := m.eventSets[e.Index()]
				if t.Accepting() && coenable[s.Index()].add(p) {
					changed = true
				}
				for _, x := range coenable[t.Index()].items {
					if coenable[s.Index()].add(x | p) {
						changed = true
					}
				}
			}
		}
	}
	alive := make([][]Set, len(states))
	for i := range coenable {
		all := coenable[i].sorted()
		for _, x := range all {
			minimal := true
			for _, y := range all {
				if x.StrictlyContains(y) {
					minimal = false
					break
				}
			}
			if minimal {
				alive[i] = append(alive[i], x)
			}
		}
	}
	return alive
}
