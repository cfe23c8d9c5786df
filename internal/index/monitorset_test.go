package index

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/paramtrace/internal/alphabet"
	"github.com/roach88/paramtrace/internal/monitor"
	"github.com/roach88/paramtrace/internal/staticdata"
	"github.com/roach88/paramtrace/internal/testutil"
)

// seed installs a monitor at the instance of objects over mask that has
// processed evs, and chains it.
func (f *fixture) seed(t *testing.T, mask staticdata.Set, ts int64, objects []any, evs ...alphabet.Event) *Node {
	t.Helper()
	n := f.nodes.GetOrCreateNode(f.full(objects...), mask)
	m := monitor.NewPrototype(f.env).Copy(n.Bindings(), mask, ts)
	for _, ev := range evs {
		require.True(t, m.ProcessEvent(ev))
	}
	n.SetMonitor(m)
	f.nodes.Chain(n)
	return n
}

func TestMonitorSet_PropagateUpdate(t *testing.T) {
	f := newFixture(t, testutil.UnsafeIterator())
	p := f.prop
	c := testutil.NewObject("c")
	i1, i2 := testutil.NewObject("i1"), testutil.NewObject("i2")
	ci := staticdata.SetOf(0, 1)

	n1 := f.seed(t, ci, 0, []any{c, i1}, p.Event("createColl", c), p.Event("createIter", c, i1))
	n2 := f.seed(t, ci, 0, []any{c, i2}, p.Event("createColl", c), p.Event("createIter", c, i2))
	set := f.nodes.GetNode(f.full(c, nil), staticdata.SetOf(0)).ExistingMonitorSet(0)
	require.Equal(t, 2, set.Size())

	set.PropagateUpdate(f.nodes, p.Event("updateColl", c))
	assert.Equal(t, "s3", n1.Monitor().State().Name())
	assert.Equal(t, "s3", n2.Monitor().State().Name())

	n1.Monitor().Terminate()
	set.PropagateUpdate(f.nodes, p.Event("updateColl", c))
	assert.Equal(t, 1, set.Size())
}

func TestMonitorSet_CompactDropsCollectedInstances(t *testing.T) {
	f := newFixture(t, testutil.UnsafeIterator())
	p := f.prop
	ci := staticdata.SetOf(0, 1)

	f.seed(t, ci, 0, []any{"c", "i"}, p.Event("createColl", "c"), p.Event("createIter", "c", "i"))
	set := f.nodes.GetNode(f.full("c", nil), staticdata.SetOf(0)).ExistingMonitorSet(0)
	require.Equal(t, 1, set.Compact(f.nodes))

	bi, _ := f.bindings.Get("i")
	f.bindings.Release("i")
	f.nodes.Release(bi)

	assert.Equal(t, 0, set.Compact(f.nodes))
}

func TestMonitorSet_Join(t *testing.T) {
	f := newFixture(t, testutil.Join())
	p := f.prop
	a, b, c := testutil.NewObject("a"), testutil.NewObject("b"), testutil.NewObject("c")
	ab, abc := staticdata.SetOf(0, 1), staticdata.SetOf(0, 1, 2)

	f.seed(t, ab, 0, []any{a, b, nil}, p.Event("e_ab", a, b))
	ev := p.Event("e_bc", b, c)
	args := f.model.JoinData(p.Events["e_bc"])[0]
	pool := f.nodes.GetNode(f.full(nil, b, nil), args.NodeMask).ExistingMonitorSet(args.MonitorSetID)
	require.NotNil(t, pool)

	res := pool.Join(f.nodes, ev, f.full(nil, b, c), &args, math.MaxInt64, -1)
	assert.Equal(t, JoinResult{Joined: 1}, res)

	joined := f.nodes.GetNode(f.full(a, b, c), abc)
	require.NotNil(t, joined.Monitor())
	assert.Equal(t, "match", joined.Monitor().State().Name())
	assert.Equal(t, []*alphabet.BaseEvent{p.Events["e_ab"], p.Events["e_bc"]}, joined.Monitor().Trace())
	assert.Equal(t, int64(0), joined.Monitor().Timestamp())

	again := pool.Join(f.nodes, ev, f.full(nil, b, c), &args, math.MaxInt64, -1)
	assert.Equal(t, JoinResult{}, again, "the joined instance already has a monitor")
}

func TestMonitorSet_JoinRejectsInadmissibleCandidates(t *testing.T) {
	f := newFixture(t, testutil.Join())
	p := f.prop
	a, b, c := testutil.NewObject("a"), testutil.NewObject("b"), testutil.NewObject("c")

	f.seed(t, staticdata.SetOf(0, 1), 5, []any{a, b, nil}, p.Event("e_ab", a, b))
	args := f.model.JoinData(p.Events["e_bc"])[0]
	pool := f.nodes.GetNode(f.full(nil, b, nil), args.NodeMask).ExistingMonitorSet(args.MonitorSetID)

	tests := []struct {
		name       string
		tmin, tmax int64
	}{
		{"disable instance touched later", math.MaxInt64, 6},
		{"disable instance monitored earlier", 4, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := pool.Join(f.nodes, p.Event("e_bc", b, c), f.full(nil, b, c), &args, tt.tmin, tt.tmax)
			assert.Equal(t, JoinResult{Rejected: 1}, res)
		})
	}
	assert.True(t, f.nodes.GetNode(f.full(a, b, c), staticdata.SetOf(0, 1, 2)).IsNull())
}

func TestMonitorSet_JoinChecksMixedInstances(t *testing.T) {
	f := newFixture(t, testutil.Triangle())
	p := f.prop
	a, b, c := testutil.NewObject("a"), testutil.NewObject("b"), testutil.NewObject("c")
	other := testutil.NewObject("other")

	f.seed(t, staticdata.SetOf(0, 1), 0, []any{a, b, nil}, p.Event("e1", a, b))
	args := f.model.JoinData(p.Events["e2"])[0]
	pool := f.nodes.GetNode(f.full(nil, b, nil), args.NodeMask).ExistingMonitorSet(args.MonitorSetID)
	require.NotNil(t, pool)

	// e3 at (a,other) does not touch the (a,b,c) slice.
	f.nodes.GetOrCreateNode(f.full(a, nil, other), staticdata.SetOf(0, 2)).SetTimestamp(1)
	res := pool.Join(f.nodes, p.Event("e2", b, other), f.full(nil, b, other), &args, math.MaxInt64, -1)
	assert.Equal(t, JoinResult{Joined: 1}, res)

	// e3 at (a,c) after the candidate was created sends (a,b,c) to the sink.
	f.nodes.GetOrCreateNode(f.full(a, nil, c), staticdata.SetOf(0, 2)).SetTimestamp(2)
	res = pool.Join(f.nodes, p.Event("e2", b, c), f.full(nil, b, c), &args, math.MaxInt64, -1)
	assert.Equal(t, JoinResult{Rejected: 1}, res)
	assert.True(t, f.nodes.GetNode(f.full(a, b, c), staticdata.SetOf(0, 1, 2)).IsNull())
}
