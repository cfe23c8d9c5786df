package store

import (
	"context"
	"fmt"

	"github.com/roach88/paramtrace/internal/engine"
	"github.com/roach88/paramtrace/internal/ir"
)

// Recorder writes the matches of one run to the log.
//
// Its Sink runs on the engine's goroutine under the engine lock. The first
// write error is kept and every later match is dropped.
type Recorder struct {
	store  *Store
	run    ir.Run
	params []string
	count  int
	err    error
}

// NewRecorder writes run and returns a Recorder for its matches. params are
// the property's parameter names in index order.
func (s *Store) NewRecorder(ctx context.Context, run ir.Run, params []string) (*Recorder, error) {
	if err := s.WriteRun(ctx, run); err != nil {
		return nil, err
	}
	return &Recorder{store: s, run: run, params: params}, nil
}

// Sink returns the engine match sink.
func (r *Recorder) Sink(ctx context.Context) engine.MatchSink {
	return func(m engine.Match) {
		if r.err != nil {
			return
		}
		rec, err := NewMatchRecord(r.run, r.params, m)
		if err == nil {
			err = r.store.WriteMatch(ctx, rec)
		}
		if err != nil {
			r.err = fmt.Errorf("match %d: %w", m.Seq, err)
			return
		}
		r.count++
	}
}

// Count returns the number of matches written.
func (r *Recorder) Count() int { return r.count }

// Err returns the first write error.
func (r *Recorder) Err() error { return r.err }

// NewMatchRecord converts an engine match into a log row. Bound objects are
// named with fmt's %v verb; unbound and collected parameters are left out.
func NewMatchRecord(run ir.Run, params []string, m engine.Match) (ir.MatchRecord, error) {
	bindings := ir.Object{}
	for i, obj := range m.Bindings {
		if obj == nil || i >= len(params) {
			continue
		}
		bindings[params[i]] = ir.String(fmt.Sprint(obj))
	}
	id, err := ir.MatchID(run.ID, run.Property, m.Seq, bindings)
	if err != nil {
		return ir.MatchRecord{}, err
	}
	rec := ir.MatchRecord{
		ID:        id,
		RunID:     run.ID,
		Property:  run.Property,
		Seq:       m.Seq,
		Timestamp: m.Timestamp,
		Event:     m.Event,
		State:     m.State,
		Bindings:  bindings,
	}
	if m.Aux != nil {
		rec.Aux = fmt.Sprint(m.Aux)
	}
	return rec, nil
}
