package index

import (
	"github.com/roach88/paramtrace/internal/alphabet"
	"github.com/roach88/paramtrace/internal/binding"
	"github.com/roach88/paramtrace/internal/monitor"
	"github.com/roach88/paramtrace/internal/staticdata"
)

// MonitorSet collects weak references to strictly more informative
// instances of its owning node that carry monitors of one mask.
//
// Entries whose node was freed, whose monitor terminated, or whose monitor
// can no longer accept are dropped lazily by swapping in the last entry.
type MonitorSet struct {
	refs []NodeRef
}

// Add appends ref.
func (ms *MonitorSet) Add(ref NodeRef) {
	ms.refs = append(ms.refs, ref)
}

// Size returns the number of entries, stale ones included until the next
// pass over the set.
func (ms *MonitorSet) Size() int { return len(ms.refs) }

// live returns the monitor behind entry i, or nil after dropping the entry.
func (ms *MonitorSet) live(store *Store, i int) (*Node, *monitor.Monitor) {
	n := store.Resolve(ms.refs[i])
	if n == nil || n.monitor == nil || n.monitor.Terminated() || !n.monitor.IsAcceptingStateReachable() {
		return nil, nil
	}
	return n, n.monitor
}

func (ms *MonitorSet) drop(i int) {
	last := len(ms.refs) - 1
	ms.refs[i] = ms.refs[last]
	ms.refs = ms.refs[:last]
}

// Compact drops every stale entry and returns the remaining size.
func (ms *MonitorSet) Compact(store *Store) int {
	for i := 0; i < len(ms.refs); {
		if _, m := ms.live(store, i); m == nil {
			ms.drop(i)
			continue
		}
		i++
	}
	return len(ms.refs)
}

// PropagateUpdate sends ev to every monitor in the set, dropping those that
// are stale or die on it. It returns the number of monitors that processed ev.
func (ms *MonitorSet) PropagateUpdate(store *Store, ev alphabet.Event) int {
	updated := 0
	for i := 0; i < len(ms.refs); {
		_, m := ms.live(store, i)
		if m == nil {
			ms.drop(i)
			continue
		}
		updated++
		if !m.ProcessEvent(ev) {
			ms.drop(i)
			continue
		}
		i++
	}
	return updated
}

// JoinResult counts the outcome of one join pass.
type JoinResult struct {
	Joined   int
	Rejected int
}

// Join combines every admissible monitor of the set with the event's
// bindings into an instance of args.TargetMask. A candidate is admissible if
// no disable instance was touched after it was created (tmax) and none holds
// a monitor created before it (tmin). tmax and tmin cover args.DisableMasks;
// args.MixedMasks are checked per candidate in the joined bindings. A fresh
// node gets a copy of the candidate that then processes ev and is chained
// into its ancestors.
func (ms *MonitorSet) Join(store *Store, ev alphabet.Event, bindings []*binding.Binding, args *staticdata.JoinArgs, tmin, tmax int64) JoinResult {
	var res JoinResult
	template := make([]*binding.Binding, len(args.ExtensionPattern))
	for j, p := range args.ExtensionPattern {
		if p >= 0 {
			template[j] = bindings[p]
		}
	}
	for i := 0; i < len(ms.refs); {
		_, cand := ms.live(store, i)
		if cand == nil {
			ms.drop(i)
			continue
		}
		i++
		ts := cand.Timestamp()
		if tmax > ts || tmin < ts {
			res.Rejected++
			continue
		}
		joined := make([]*binding.Binding, len(template))
		copy(joined, template)
		src := cand.Bindings()
		complete := true
		for _, c := range args.CopyPattern {
			b := src[c.From]
			if !b.Alive() {
				complete = false
				break
			}
			joined[c.To] = b
		}
		if !complete {
			continue
		}
		if !admissibleWithin(store, joined, args, ts) {
			res.Rejected++
			continue
		}
		target := store.GetOrCreateCompressed(joined, args.TargetMask)
		if target.monitor != nil {
			continue
		}
		m := cand.Copy(joined, args.TargetMask, cand.Timestamp())
		target.SetMonitor(m)
		res.Joined++
		if m.ProcessEvent(ev) {
			store.Chain(target)
		}
	}
	return res
}

// admissibleWithin applies the tmax and tmin rule to the mixed instances of
// a candidate created at ts.
func admissibleWithin(store *Store, joined []*binding.Binding, args *staticdata.JoinArgs, ts int64) bool {
	for _, d := range args.MixedMasks {
		dn := store.GetNodeWithin(joined, args.TargetMask, d)
		if dn.Timestamp() > ts {
			return false
		}
		if dm := dn.Monitor(); dm != nil && dm.Timestamp() < ts {
			return false
		}
	}
	return true
}
