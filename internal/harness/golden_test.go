package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/paramtrace/internal/ir"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
		})
	}
}

func TestMarshalSnapshot(t *testing.T) {
	result := &Result{Matches: []ir.MatchRecord{{
		ID:        "ignored",
		RunID:     "ignored",
		Seq:       1,
		Timestamp: 7,
		Event:     "acquire",
		State:     "twice",
		Bindings:  ir.Object{"l": ir.String("a")},
	}}}

	data, err := MarshalSnapshot("snap", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"matches":[{"bindings":{"l":"a"},"event":"acquire","seq":1,"state":"twice","timestamp":7}],"scenario":"snap"}`,
		string(data))
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "lock.yaml"))
	require.NoError(t, err)

	var outputs []string
	for i := 0; i < 3; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		data, err := MarshalSnapshot(scenario.Name, result)
		require.NoError(t, err)
		outputs = append(outputs, string(data))
	}

	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
}
