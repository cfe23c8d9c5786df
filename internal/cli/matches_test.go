package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesEmptyLog(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "matches.db")

	out, err := execute(NewMatchesCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestMatchesListsRuns(t *testing.T) {
	_, _, _, dbPath := recordRun(t)

	out, err := execute(NewMatchesCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "1 run(s):")
	assert.Contains(t, out, "run-1  Lock")
}

func TestMatchesOfRun(t *testing.T) {
	_, _, _, dbPath := recordRun(t)

	out, err := execute(NewMatchesCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Run run-1: Lock")
	assert.Contains(t, out, "[1] t=1 acquire -> twice {l=l1} aux=worker-1")
}

func TestMatchesOfRunJSON(t *testing.T) {
	_, _, _, dbPath := recordRun(t)

	out, err := execute(NewMatchesCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--run", "run-1")
	require.NoError(t, err)

	var result MatchesResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", result.Run.ID)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "twice", result.Matches[0].State)
	assert.Equal(t, "run-1", result.Matches[0].RunID)
}

func TestMatchesUnknownRun(t *testing.T) {
	_, _, _, dbPath := recordRun(t)

	_, err := execute(NewMatchesCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", "run-404")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run run-404 not found")
}

func TestMatchesRequiresDatabase(t *testing.T) {
	_, err := execute(NewMatchesCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
