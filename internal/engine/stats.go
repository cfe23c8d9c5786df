package engine

import "sync/atomic"

// Stats counts what the engine did. Counters are atomic so collectors may
// read them while events are processed. A Stats value may be shared by
// several engines to aggregate them.
type Stats struct {
	Events             atomic.Int64
	IgnoredEvents      atomic.Int64
	CreatedMonitors    atomic.Int64
	DerivedMonitors    atomic.Int64
	JoinedMonitors     atomic.Int64
	DeadMonitors       atomic.Int64
	UpdatedMonitors    atomic.Int64
	TerminatedMonitors atomic.Int64
	Matches            atomic.Int64
	BindingsCreated    atomic.Int64
	BindingsReleased   atomic.Int64
	NodesCreated       atomic.Int64
	NodesRemoved       atomic.Int64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Events             int64 `json:"events"`
	IgnoredEvents      int64 `json:"ignored_events"`
	CreatedMonitors    int64 `json:"created_monitors"`
	DerivedMonitors    int64 `json:"derived_monitors"`
	JoinedMonitors     int64 `json:"joined_monitors"`
	DeadMonitors       int64 `json:"dead_monitors"`
	UpdatedMonitors    int64 `json:"updated_monitors"`
	TerminatedMonitors int64 `json:"terminated_monitors"`
	Matches            int64 `json:"matches"`
	BindingsCreated    int64 `json:"bindings_created"`
	BindingsReleased   int64 `json:"bindings_released"`
	NodesCreated       int64 `json:"nodes_created"`
	NodesRemoved       int64 `json:"nodes_removed"`
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Events:             s.Events.Load(),
		IgnoredEvents:      s.IgnoredEvents.Load(),
		CreatedMonitors:    s.CreatedMonitors.Load(),
		DerivedMonitors:    s.DerivedMonitors.Load(),
		JoinedMonitors:     s.JoinedMonitors.Load(),
		DeadMonitors:       s.DeadMonitors.Load(),
		UpdatedMonitors:    s.UpdatedMonitors.Load(),
		TerminatedMonitors: s.TerminatedMonitors.Load(),
		Matches:            s.Matches.Load(),
		BindingsCreated:    s.BindingsCreated.Load(),
		BindingsReleased:   s.BindingsReleased.Load(),
		NodesCreated:       s.NodesCreated.Load(),
		NodesRemoved:       s.NodesRemoved.Load(),
	}
}

// Reset zeroes every counter.
func (s *Stats) Reset() {
	for _, c := range []*atomic.Int64{
		&s.Events, &s.IgnoredEvents,
		&s.CreatedMonitors, &s.DerivedMonitors, &s.JoinedMonitors, &s.DeadMonitors,
		&s.UpdatedMonitors, &s.TerminatedMonitors, &s.Matches,
		&s.BindingsCreated, &s.BindingsReleased, &s.NodesCreated, &s.NodesRemoved,
	} {
		c.Store(0)
	}
}

// Monitors returns the number of monitors ever realised.
func (s Snapshot) Monitors() int64 {
	return s.CreatedMonitors + s.DerivedMonitors + s.JoinedMonitors + s.DeadMonitors
}
