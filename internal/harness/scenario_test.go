package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes body next to a copy of the test properties and
// returns the scenario path.
func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	props, err := os.ReadFile("testdata/properties.cue")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "properties.cue"), props, 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validScenario = `
name: valid
description: "A valid scenario"
file: properties.cue
property: Lock
steps:
  - event: acquire
    objects: { l: a }
  - release: [a]
  - cleanup: true
assertions:
  - type: match_count
    count: 0
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, validScenario)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "valid", s.Name)
	assert.Equal(t, "Lock", s.Property)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "properties.cue"), s.File)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, "acquire", s.Steps[0].Event)
	assert.Equal(t, map[string]string{"l": "a"}, s.Steps[0].Objects)
	assert.True(t, s.Steps[1].IsRelease())
	assert.False(t, s.Steps[0].IsRelease())
	assert.True(t, s.Steps[2].Cleanup)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertMatchCount, s.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	path := writeScenario(t, "name: [unclosed")
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_UnknownFieldsRejected(t *testing.T) {
	path := writeScenario(t, validScenario+"assertion: []\n")
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing name",
			body: `
description: d
file: properties.cue
property: Lock
steps: [{event: acquire, objects: {l: a}}]
assertions: [{type: match_count}]
`,
			want: "name is required",
		},
		{
			name: "missing description",
			body: `
name: n
file: properties.cue
property: Lock
steps: [{event: acquire, objects: {l: a}}]
assertions: [{type: match_count}]
`,
			want: "description is required",
		},
		{
			name: "missing property",
			body: `
name: n
description: d
file: properties.cue
steps: [{event: acquire, objects: {l: a}}]
assertions: [{type: match_count}]
`,
			want: "property is required",
		},
		{
			name: "property file not found",
			body: `
name: n
description: d
file: missing.cue
property: Lock
steps: [{event: acquire, objects: {l: a}}]
assertions: [{type: match_count}]
`,
			want: "property file not found",
		},
		{
			name: "no steps",
			body: `
name: n
description: d
file: properties.cue
property: Lock
steps: []
assertions: [{type: match_count}]
`,
			want: "steps list is required",
		},
		{
			name: "no assertions",
			body: `
name: n
description: d
file: properties.cue
property: Lock
steps: [{event: acquire, objects: {l: a}}]
`,
			want: "assertions list is required",
		},
		{
			name: "event and release",
			body: `
name: n
description: d
file: properties.cue
property: Lock
steps: [{event: acquire, objects: {l: a}, release: [a]}]
assertions: [{type: match_count}]
`,
			want: "steps[0]: event and release are mutually exclusive",
		},
		{
			name: "empty step",
			body: `
name: n
description: d
file: properties.cue
property: Lock
steps: [{aux: x}]
assertions: [{type: match_count}]
`,
			want: "steps[0]: one of event, release or cleanup is required",
		},
		{
			name: "objects without event",
			body: `
name: n
description: d
file: properties.cue
property: Lock
steps: [{release: [a], objects: {l: a}}]
assertions: [{type: match_count}]
`,
			want: "steps[0]: objects and aux need an event",
		},
		{
			name: "negative count",
			body: `
name: n
description: d
file: properties.cue
property: Lock
steps: [{event: acquire, objects: {l: a}}]
assertions: [{type: node_count, count: -1}]
`,
			want: "assertions[0]: count must be non-negative for node_count",
		},
		{
			name: "match_bindings without seq",
			body: `
name: n
description: d
file: properties.cue
property: Lock
steps: [{event: acquire, objects: {l: a}}]
assertions: [{type: match_bindings, bindings: {l: a}}]
`,
			want: "assertions[0]: seq must be at least 1",
		},
		{
			name: "match_bindings without bindings",
			body: `
name: n
description: d
file: properties.cue
property: Lock
steps: [{event: acquire, objects: {l: a}}]
assertions: [{type: match_bindings, seq: 1}]
`,
			want: "assertions[0]: bindings are required",
		},
		{
			name: "unknown assertion",
			body: `
name: n
description: d
file: properties.cue
property: Lock
steps: [{event: acquire, objects: {l: a}}]
assertions: [{type: trace_contains}]
`,
			want: `unknown assertion type "trace_contains"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioWithBasePath_AbsolutePropertyPath(t *testing.T) {
	abs, err := filepath.Abs("testdata/properties.cue")
	require.NoError(t, err)
	path := writeScenario(t, `
name: abs
description: d
file: `+abs+`
property: Lock
steps: [{event: acquire, objects: {l: a}}]
assertions: [{type: match_count}]
`)

	s, err := LoadScenarioWithBasePath(path, "/elsewhere")
	require.NoError(t, err)
	assert.Equal(t, abs, s.File)
}

func TestAssertionConstants(t *testing.T) {
	assert.Equal(t, "match_count", AssertMatchCount)
	assert.Equal(t, "match_bindings", AssertMatchBindings)
	assert.Equal(t, "monitor_count", AssertMonitorCount)
	assert.Equal(t, "node_count", AssertNodeCount)
	assert.Equal(t, "binding_count", AssertBindingCount)
}

func TestLoadExampleScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			require.NoError(t, err)
		})
	}
}
