package store

import (
	"context"
	"fmt"

	"github.com/roach88/paramtrace/internal/ir"
)

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING, so re-running under the same ID is a
// no-op.
func (s *Store) WriteRun(ctx context.Context, run ir.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, property, property_hash, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Property,
		run.PropertyHash,
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteMatch inserts a match record. Bindings are stored as canonical JSON.
// Duplicate IDs are silently ignored. The run must exist.
func (s *Store) WriteMatch(ctx context.Context, m ir.MatchRecord) error {
	bindingsJSON, err := marshalBindings(m.Bindings)
	if err != nil {
		return fmt.Errorf("write match: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO matches (id, run_id, property, seq, timestamp, event, state, bindings, aux)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		m.ID,
		m.RunID,
		m.Property,
		m.Seq,
		m.Timestamp,
		m.Event,
		m.State,
		bindingsJSON,
		m.Aux,
	)
	if err != nil {
		return fmt.Errorf("write match: %w", err)
	}
	return nil
}

// marshalBindings converts bindings to canonical JSON TEXT for storage.
func marshalBindings(bindings ir.Object) (string, error) {
	if bindings == nil {
		bindings = ir.Object{}
	}
	data, err := ir.MarshalCanonical(bindings)
	if err != nil {
		return "", fmt.Errorf("marshal bindings: %w", err)
	}
	return string(data), nil
}
