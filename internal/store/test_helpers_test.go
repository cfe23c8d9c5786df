package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/paramtrace/internal/ir"
)

// createTestStore creates a store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(id string) ir.Run {
	return ir.Run{
		ID:            id,
		Property:      "UnsafeIterator",
		PropertyHash:  "test-hash",
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

func testMatch(runID string, seq int64, c, i string) ir.MatchRecord {
	bindings := ir.Object{"c": ir.String(c), "i": ir.String(i)}
	return ir.MatchRecord{
		ID:        ir.MustMatchID(runID, "UnsafeIterator", seq, bindings),
		RunID:     runID,
		Property:  "UnsafeIterator",
		Seq:       seq,
		Timestamp: seq * 10,
		Event:     "useIter",
		State:     "error",
		Bindings:  bindings,
	}
}
