package engine

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/paramtrace/internal/alphabet"
	"github.com/roach88/paramtrace/internal/binding"
	"github.com/roach88/paramtrace/internal/index"
	"github.com/roach88/paramtrace/internal/staticdata"
	"github.com/roach88/paramtrace/internal/testutil"
)

type harness struct {
	prop *testutil.Property
	pm   *ParametricMonitor
	rec  *testutil.Recorder[Match]
}

func newHarness(t *testing.T, p *testutil.Property, opts ...Option) *harness {
	t.Helper()
	model, err := staticdata.Compile(p.FSM)
	require.NoError(t, err)
	h := &harness{prop: p, rec: testutil.NewRecorder[Match]()}
	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithTraceRecording(),
		WithMatchSink(h.rec.Record),
	}, opts...)
	h.pm = New(model, opts...)
	return h
}

func (h *harness) matches() []Match { return h.rec.All() }

func (h *harness) send(t *testing.T, name string, objects ...any) {
	t.Helper()
	require.NoError(t, h.pm.ProcessEvent(h.prop.Event(name, objects...)))
}

func (h *harness) node(objects []any, params ...int) *index.Node {
	var n *index.Node
	h.pm.Inspect(func(nodes *index.Store, bindings *binding.Store) {
		resolved := make([]*binding.Binding, len(objects))
		for i, obj := range objects {
			if obj != nil {
				b, ok := bindings.Get(obj)
				if !ok {
					n = index.NullNode
					return
				}
				resolved[i] = b
			}
		}
		n = nodes.GetNode(resolved, staticdata.SetOf(params...))
	})
	return n
}

func TestParametricMonitor_DerivesFromLessInformativeInstance(t *testing.T) {
	h := newHarness(t, testutil.Chain())
	x, y := testutil.NewObject("x"), testutil.NewObject("y")

	h.send(t, "a", x)
	h.send(t, "b", x, y)

	n := h.node([]any{x, y}, 0, 1)
	require.NotNil(t, n.Monitor())
	assert.Equal(t, []*alphabet.BaseEvent{h.prop.Events["a"], h.prop.Events["b"]}, n.Monitor().Trace())
	assert.Equal(t, int64(0), n.Monitor().Timestamp(), "derived monitors keep their lineage's creation time")

	snap := h.pm.Stats().Snapshot()
	assert.Equal(t, int64(1), snap.CreatedMonitors)
	assert.Equal(t, int64(1), snap.DerivedMonitors)

	h.send(t, "c", y)
	require.Len(t, h.matches(), 1)
	assert.Equal(t, []any{x, y}, h.matches()[0].Bindings)
	assert.Equal(t, "c", h.matches()[0].Event)
	assert.Equal(t, "done", h.matches()[0].State)
	assert.Equal(t, int64(2), h.matches()[0].Timestamp)
}

func TestParametricMonitor_JoinsCompatibleInstances(t *testing.T) {
	h := newHarness(t, testutil.Join())
	a, b, c := testutil.NewObject("a"), testutil.NewObject("b"), testutil.NewObject("c")

	h.send(t, "e_ab", a, b)
	h.send(t, "e_bc", b, c)

	joined := h.node([]any{a, b, c}, 0, 1, 2)
	require.NotNil(t, joined.Monitor())
	assert.Equal(t, []*alphabet.BaseEvent{h.prop.Events["e_ab"], h.prop.Events["e_bc"]}, joined.Monitor().Trace())
	assert.Equal(t, int64(1), h.pm.Stats().Snapshot().JoinedMonitors)
	assert.Equal(t, 2, h.pm.Monitors())

	for _, inst := range []struct {
		objects []any
		params  []int
	}{
		{[]any{a, nil, nil}, []int{0}},
		{[]any{nil, b, nil}, []int{1}},
		{[]any{nil, nil, c}, []int{2}},
		{[]any{a, b, nil}, []int{0, 1}},
		{[]any{nil, b, c}, []int{1, 2}},
		{[]any{a, b, c}, []int{0, 1, 2}},
	} {
		assert.False(t, h.node(inst.objects, inst.params...).IsNull(), "instance %v", inst.params)
	}
	assert.Equal(t, 6, h.pm.Nodes(), "no nodes beyond the six instances")

	require.Len(t, h.matches(), 1)
	assert.Equal(t, []any{a, b, c}, h.matches()[0].Bindings)
}

func TestParametricMonitor_JoinRejectsCandidatesOlderThanDisableInstances(t *testing.T) {
	h := newHarness(t, testutil.Join())
	a, b, c := testutil.NewObject("a"), testutil.NewObject("b"), testutil.NewObject("c")
	other := testutil.NewObject("other")

	h.send(t, "e_ab", other, b)
	h.send(t, "e_bc", b, c)
	// e_bc(b,c) was seen before this creation event, so it is not part of
	// the (a,b,c) slice.
	h.send(t, "e_ab", a, b)
	h.send(t, "e_bc", b, c)

	require.Len(t, h.matches(), 2)
	assert.Equal(t, []any{other, b, c}, h.matches()[0].Bindings)
	assert.Equal(t, []any{a, b, c}, h.matches()[1].Bindings)
	assert.Equal(t, int64(2), h.pm.Stats().Snapshot().JoinedMonitors,
		"the (other,b) monitor predates the last touch of (b,c) and is not joined again")
}

func TestParametricMonitor_JoinSeesEventsAtMixedInstances(t *testing.T) {
	h := newHarness(t, testutil.Triangle())
	a, b, c := testutil.NewObject("a"), testutil.NewObject("b"), testutil.NewObject("c")

	// The (a,b,c) slice is e1 e3 e2, which ends in the sink.
	h.send(t, "e1", a, b)
	h.send(t, "e3", a, c)
	h.send(t, "e2", b, c)

	assert.Empty(t, h.matches())
	assert.Nil(t, h.node([]any{a, b, c}, 0, 1, 2).Monitor())
	assert.Equal(t, int64(0), h.pm.Stats().Snapshot().JoinedMonitors)

	x, y, z := testutil.NewObject("x"), testutil.NewObject("y"), testutil.NewObject("z")
	h.send(t, "e1", x, y)
	h.send(t, "e3", x, c)
	h.send(t, "e2", y, z)

	require.Len(t, h.matches(), 1)
	assert.Equal(t, []any{x, y, z}, h.matches()[0].Bindings)
	assert.Equal(t, "match", h.matches()[0].State)
}

func TestParametricMonitor_DisablingEventPrecedence(t *testing.T) {
	h := newHarness(t, testutil.Guarded())
	a, b := testutil.NewObject("a"), testutil.NewObject("b")

	h.send(t, "close", a, b)
	dead := h.node([]any{a, b}, 0, 1)
	require.NotNil(t, dead.Monitor())
	assert.True(t, dead.Monitor().Dead())

	h.send(t, "open", a)
	h.send(t, "bind", a, b)

	assert.True(t, h.node([]any{a, b}, 0, 1).Monitor().Dead(), "the dead monitor stays in place")
	assert.Empty(t, h.matches())
	snap := h.pm.Stats().Snapshot()
	assert.Equal(t, int64(1), snap.DeadMonitors)
	assert.Equal(t, int64(1), snap.CreatedMonitors)
	assert.Equal(t, int64(0), snap.DerivedMonitors)

	// Another b is not affected.
	other := testutil.NewObject("b2")
	h.send(t, "bind", a, other)
	require.Len(t, h.matches(), 1)
	assert.Equal(t, []any{a, other}, h.matches()[0].Bindings)
}

func TestParametricMonitor_DisablingAfterCreationBlocksDerive(t *testing.T) {
	h := newHarness(t, testutil.Guarded())
	a, b := testutil.NewObject("a"), testutil.NewObject("b")

	h.send(t, "open", a)
	h.send(t, "close", a, b)
	h.send(t, "bind", a, b)

	assert.Empty(t, h.matches())
	assert.Nil(t, h.node([]any{a, b}, 0, 1).Monitor())
}

func TestParametricMonitor_MatchFiresOnce(t *testing.T) {
	h := newHarness(t, testutil.UnsafeIterator())
	c, i := testutil.NewObject("c"), testutil.NewObject("i")

	h.send(t, "createColl", c)
	h.send(t, "createIter", c, i)
	h.send(t, "useIter", i)
	h.send(t, "updateColl", c)
	h.send(t, "useIter", i)
	require.Len(t, h.matches(), 1)

	h.send(t, "updateColl", c)
	h.send(t, "useIter", i)
	h.send(t, "createIter", c, i)
	h.send(t, "updateColl", c)
	h.send(t, "useIter", i)

	assert.Len(t, h.matches(), 1)
	m := h.node([]any{c, i}, 0, 1).Monitor()
	assert.True(t, m.Terminated())
	set := h.node([]any{nil, i}, 1).ExistingMonitorSet(0)
	require.NotNil(t, set)
	assert.Equal(t, 0, set.Size(), "the terminated monitor left its monitor set")
}

func TestParametricMonitor_NonFinalAcceptingMatchesRepeatedly(t *testing.T) {
	h := newHarness(t, testutil.Lock())
	l := testutil.NewObject("l")

	for _, e := range []string{"acquire", "acquire", "release", "acquire"} {
		h.send(t, e, l)
	}
	assert.Len(t, h.matches(), 2)
	assert.Equal(t, int64(1), h.matches()[0].Seq)
	assert.Equal(t, int64(2), h.matches()[1].Seq)
}

func TestParametricMonitor_IgnoresEventsBeforeActivation(t *testing.T) {
	h := newHarness(t, testutil.UnsafeIterator())
	c, i := testutil.NewObject("c"), testutil.NewObject("i")

	h.send(t, "updateColl", c)
	h.send(t, "useIter", i)
	assert.False(t, h.pm.Active())
	assert.Equal(t, 0, h.pm.Nodes())
	assert.Equal(t, 0, h.pm.Bindings())
	assert.Equal(t, int64(0), h.pm.Timestamp())
	assert.Equal(t, int64(2), h.pm.Stats().Snapshot().IgnoredEvents)

	h.send(t, "createColl", c)
	assert.True(t, h.pm.Active())
	assert.Equal(t, int64(1), h.pm.Timestamp())
}

func TestParametricMonitor_ConditionDropsEvent(t *testing.T) {
	h := newHarness(t, testutil.Lock())
	l := testutil.NewObject("l")

	ev := h.prop.Event("acquire", l)
	ev.Aux = 0
	ev.Condition = func(aux any) bool { return aux.(int) > 0 }
	require.NoError(t, h.pm.ProcessEvent(ev))
	assert.False(t, h.pm.Active())

	ev.Aux = 1
	require.NoError(t, h.pm.ProcessEvent(ev))
	assert.True(t, h.pm.Active())
	assert.Equal(t, 1, h.pm.Monitors())
}

func TestParametricMonitor_Reset(t *testing.T) {
	h := newHarness(t, testutil.UnsafeIterator())
	c, i := testutil.NewObject("c"), testutil.NewObject("i")
	h.send(t, "createColl", c)
	h.send(t, "createIter", c, i)

	h.pm.Reset()

	assert.False(t, h.pm.Active())
	assert.Equal(t, 0, h.pm.Nodes())
	assert.Equal(t, 0, h.pm.Bindings())
	assert.Equal(t, 0, h.pm.Monitors())
	assert.Equal(t, Snapshot{}, h.pm.Stats().Snapshot())

	h.send(t, "updateColl", c)
	h.send(t, "useIter", i)
	assert.Equal(t, 0, h.pm.Nodes(), "non-creation events are no-ops after reset")
	assert.Equal(t, int64(0), h.pm.Stats().Snapshot().Events)

	h.send(t, "createColl", c)
	assert.Equal(t, 1, h.pm.Monitors())
}

func TestParametricMonitor_ReleasePrunesInstances(t *testing.T) {
	h := newHarness(t, testutil.UnsafeIterator(), WithCleanupInterval(0))
	h.send(t, "createColl", "c")
	h.send(t, "createIter", "c", "i")
	require.Equal(t, 3, h.pm.Nodes())

	assert.True(t, h.pm.Release("i"))
	h.pm.Cleanup()

	assert.Equal(t, 1, h.pm.Bindings())
	assert.Equal(t, 1, h.pm.Nodes(), "only the collection's node is left")
	set := h.node([]any{"c", nil}, 0).ExistingMonitorSet(0)
	require.NotNil(t, set)
	h.pm.Inspect(func(nodes *index.Store, _ *binding.Store) {
		assert.Equal(t, 0, set.Compact(nodes))
	})
	snap := h.pm.Stats().Snapshot()
	assert.Equal(t, int64(1), snap.BindingsReleased)
	assert.Equal(t, int64(2), snap.NodesRemoved)
}

func TestParametricMonitor_CollectedObjectIsPruned(t *testing.T) {
	h := newHarness(t, testutil.UnsafeIterator(), WithCleanupInterval(0))
	c := testutil.NewObject("c")

	h.send(t, "createColl", c)
	func() {
		i := testutil.NewObject("i")
		h.send(t, "createIter", c, i)
	}()
	require.Equal(t, 3, h.pm.Nodes())

	require.Eventually(t, func() bool {
		runtime.GC()
		h.pm.Cleanup()
		return h.pm.Bindings() == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, h.pm.Nodes())
	var size int
	h.pm.Inspect(func(nodes *index.Store, bindings *binding.Store) {
		bc, ok := bindings.Get(c)
		require.True(t, ok)
		set := nodes.GetNode([]*binding.Binding{bc, nil}, staticdata.SetOf(0)).ExistingMonitorSet(0)
		size = set.Compact(nodes)
	})
	assert.Equal(t, 0, size)
	runtime.KeepAlive(c)
}

func TestParametricMonitor_CleanupRunsAtInterval(t *testing.T) {
	h := newHarness(t, testutil.Lock(), WithCleanupInterval(2))

	h.send(t, "acquire", "l1")
	require.True(t, h.pm.Release("l1"))
	h.send(t, "acquire", "l2")

	assert.Equal(t, 1, h.pm.Bindings())
	assert.Equal(t, int64(1), h.pm.Stats().Snapshot().BindingsReleased)
}

func TestParametricMonitor_RejectsMalformedEvents(t *testing.T) {
	h := newHarness(t, testutil.UnsafeIterator())
	other := testutil.Lock()

	tests := []struct {
		name  string
		event alphabet.Event
		check func(error) bool
	}{
		{"no symbol", alphabet.Event{}, IsInvalidEvent},
		{"foreign symbol", other.Event("acquire", "l"), IsUnknownEvent},
		{"short object array", alphabet.Event{Base: h.prop.Events["createColl"], Objects: []any{"c"}}, IsArityMismatch},
		{"unbound parameter", alphabet.Event{Base: h.prop.Events["createIter"], Objects: []any{"c", nil}}, IsInvalidEvent},
		{"unbindable object", alphabet.Event{Base: h.prop.Events["createColl"], Objects: []any{map[string]int{"x": 1}, nil}}, IsInvalidEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.pm.ProcessEvent(tt.event)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
	assert.False(t, h.pm.Active())
	assert.Equal(t, int64(0), h.pm.Stats().Snapshot().Events)
	assert.Equal(t, 0, h.pm.Bindings())
}

func TestParametricMonitor_UnbindableObjectLeavesEngineUntouched(t *testing.T) {
	h := newHarness(t, testutil.Lock())

	err := h.pm.ProcessEvent(h.prop.Event("acquire", []string{"l"}))
	require.Error(t, err)
	assert.True(t, IsInvalidEvent(err))
	assert.ErrorIs(t, err, binding.ErrNotBindable)
	assert.False(t, h.pm.Active())
	assert.Equal(t, int64(0), h.pm.Stats().Snapshot().Events)

	l := testutil.NewObject("l")
	h.send(t, "acquire", l)
	h.send(t, "acquire", l)
	assert.Len(t, h.matches(), 1)
}

func TestParametricMonitor_ExtraObjectsAreIgnored(t *testing.T) {
	h := newHarness(t, testutil.UnsafeIterator())

	ev := alphabet.Event{Base: h.prop.Events["createColl"], Objects: []any{"c", "stray"}}
	require.NoError(t, h.pm.ProcessEvent(ev))

	assert.Equal(t, 1, h.pm.Bindings())
	assert.Equal(t, []any{"c", "stray"}, ev.Objects, "the caller's slice is left alone")
}

func TestRuntimeError_Error(t *testing.T) {
	err := &RuntimeError{Code: ErrCodeUnknownEvent, Message: "boom", Event: "e"}
	assert.Equal(t, "UNKNOWN_EVENT: boom (event=e)", err.Error())
	assert.Equal(t, "INVALID_EVENT: boom", (&RuntimeError{Code: ErrCodeInvalidEvent, Message: "boom"}).Error())
	assert.False(t, IsInvalidEvent(nil))
}

func TestRunner_ProcessesInOrderAndStops(t *testing.T) {
	h := newHarness(t, testutil.Lock())
	r := NewRunner(h.pm)
	var failures int
	r.OnError(func(alphabet.Event, error) { failures++ })

	l := testutil.NewObject("l")
	require.True(t, r.Enqueue(h.prop.Event("acquire", l)))
	require.True(t, r.Enqueue(alphabet.Event{}))
	require.True(t, r.Enqueue(h.prop.Event("acquire", l)))
	r.Stop()
	assert.False(t, r.Enqueue(h.prop.Event("release", l)))

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 0, r.QueueLen())
	assert.Equal(t, 1, failures)
	assert.Len(t, h.matches(), 1)
}

func TestRunner_AppliesReleasesInOrder(t *testing.T) {
	h := newHarness(t, testutil.Lock())
	r := NewRunner(h.pm)

	l := testutil.NewObject("l")
	require.True(t, r.Enqueue(h.prop.Event("acquire", l)))
	require.True(t, r.EnqueueRelease(l))
	require.True(t, r.EnqueueCleanup())
	require.True(t, r.Enqueue(h.prop.Event("acquire", l)))
	assert.False(t, r.EnqueueRelease(nil))
	assert.Equal(t, 4, r.QueueLen())
	r.Stop()
	assert.False(t, r.EnqueueCleanup())

	require.NoError(t, r.Run(context.Background()))
	// The second acquire found a fresh instance, so nothing matched.
	assert.Empty(t, h.matches())
	assert.Equal(t, 1, h.pm.Nodes())
	assert.Equal(t, int64(1), h.pm.Stats().Snapshot().BindingsReleased)
	assert.Equal(t, int64(2), h.pm.Stats().Snapshot().CreatedMonitors)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	h := newHarness(t, testutil.Lock())
	r := NewRunner(h.pm)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	r.Enqueue(h.prop.Event("acquire", "l"))
	require.Eventually(t, func() bool { return h.pm.Active() }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}
