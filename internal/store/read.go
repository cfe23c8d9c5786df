package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/paramtrace/internal/ir"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ReadRun returns the run with the given ID.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.Run, error) {
	var run ir.Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, property, property_hash, engine_version, ir_version
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Property, &run.PropertyHash, &run.EngineVersion, &run.IRVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Run{}, fmt.Errorf("read run: %w", err)
	}
	return run, nil
}

// ReadRuns returns every run ordered by ID.
func (s *Store) ReadRuns(ctx context.Context) ([]ir.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, property, property_hash, engine_version, ir_version
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.Run{}
	for rows.Next() {
		var run ir.Run
		if err := rows.Scan(&run.ID, &run.Property, &run.PropertyHash, &run.EngineVersion, &run.IRVersion); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadMatches returns the matches of a run, or of every run when runID is
// empty. Results are ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if there are no matches.
func (s *Store) ReadMatches(ctx context.Context, runID string) ([]ir.MatchRecord, error) {
	query := `
		SELECT id, run_id, property, seq, timestamp, event, state, bindings, aux
		FROM matches`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	matches := []ir.MatchRecord{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}

func scanMatch(rows *sql.Rows) (ir.MatchRecord, error) {
	var m ir.MatchRecord
	var bindingsJSON string
	if err := rows.Scan(&m.ID, &m.RunID, &m.Property, &m.Seq, &m.Timestamp, &m.Event, &m.State, &bindingsJSON, &m.Aux); err != nil {
		return ir.MatchRecord{}, fmt.Errorf("scan match: %w", err)
	}
	bindings, err := ir.UnmarshalObject([]byte(bindingsJSON))
	if err != nil {
		return ir.MatchRecord{}, fmt.Errorf("match %s: bindings: %w", m.ID, err)
	}
	m.Bindings = bindings
	return m, nil
}
