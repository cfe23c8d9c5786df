package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/paramtrace/internal/ir"
)

// MatchSnapshot captures the match trace of a scenario execution.
// Run and match IDs are left out: they are content hashes and add nothing a
// reviewer can read off a golden file.
type MatchSnapshot struct {
	ScenarioName string
	Matches      []ir.MatchRecord
}

// toCanonicalMap converts a MatchSnapshot to a map[string]any for canonical
// JSON serialization.
func (s *MatchSnapshot) toCanonicalMap() map[string]any {
	matches := make([]any, len(s.Matches))
	for i, m := range s.Matches {
		entry := map[string]any{
			"seq":       m.Seq,
			"timestamp": m.Timestamp,
			"event":     m.Event,
			"state":     m.State,
			"bindings":  m.Bindings,
		}
		if m.Aux != "" {
			entry["aux"] = m.Aux
		}
		matches[i] = entry
	}
	return map[string]any{
		"scenario": s.ScenarioName,
		"matches":  matches,
	}
}

// MarshalSnapshot renders the match trace of result as canonical JSON.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := MatchSnapshot{ScenarioName: scenarioName, Matches: result.Matches}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its match trace against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's match trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
