package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// A scenario drives one property with a trace of events and releases, then
// asserts on the matches it reported and the size of the engine's state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// File is the CUE file holding the property definition.
	// Relative paths are resolved against the scenario file's directory.
	File string `yaml:"file"`

	// Property names the property inside File.
	Property string `yaml:"property"`

	// CleanupInterval overrides the engine's cleanup cadence.
	// Zero keeps the engine default.
	CleanupInterval int `yaml:"cleanup_interval,omitempty"`

	// Steps is the trace. Each step either sends an event or releases objects.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	// Supported types: match_count, match_bindings, monitor_count,
	// node_count, binding_count
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one element of a scenario trace.
//
// Objects are named symbolically. The first mention of a name allocates a
// fresh heap object; a released name is retired and its next mention
// allocates a new, distinct object.
type Step struct {
	// Event is the event symbol to send.
	Event string `yaml:"event,omitempty"`

	// Objects maps each of the event's parameters to an object name.
	Objects map[string]string `yaml:"objects,omitempty"`

	// Aux is passed as the event's auxiliary data.
	Aux string `yaml:"aux,omitempty"`

	// Release lists object names whose bindings die at this step.
	Release []string `yaml:"release,omitempty"`

	// Cleanup forces a cleanup pass after the step.
	Cleanup bool `yaml:"cleanup,omitempty"`
}

// IsRelease reports whether the step releases objects instead of sending an
// event.
func (s Step) IsRelease() bool { return s.Event == "" && len(s.Release) > 0 }

// Assertion validates matches or final engine state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "match_count": exactly Count matches were reported
	// - "match_bindings": match number Seq bound Bindings (and, if given,
	//   entered State on Event)
	// - "monitor_count", "node_count", "binding_count": the engine holds
	//   exactly Count of them after the last step
	Type string `yaml:"type"`

	// Count is the expected number (all types except match_bindings).
	Count int `yaml:"count,omitempty"`

	// Seq selects a match, counted from 1 (match_bindings).
	Seq int64 `yaml:"seq,omitempty"`

	// Bindings maps parameter names to object names (match_bindings).
	// Parameters left out must be unbound in the match.
	Bindings map[string]string `yaml:"bindings,omitempty"`

	// State and Event optionally pin the accepting state and the triggering
	// event (match_bindings).
	State string `yaml:"state,omitempty"`
	Event string `yaml:"event,omitempty"`
}

// Assertion type constants.
const (
	AssertMatchCount    = "match_count"
	AssertMatchBindings = "match_bindings"
	AssertMonitorCount  = "monitor_count"
	AssertNodeCount     = "node_count"
	AssertBindingCount  = "binding_count"
)

// LoadScenario reads and parses a scenario YAML file.
// The property file is resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the property file relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve the property path before validation
	if scenario.File != "" && !filepath.IsAbs(scenario.File) && basePath != "" {
		scenario.File = filepath.Join(basePath, scenario.File)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.File == "" {
		return fmt.Errorf("file is required")
	}
	if s.Property == "" {
		return fmt.Errorf("property is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.CleanupInterval < 0 {
		return fmt.Errorf("cleanup_interval must be non-negative")
	}

	if _, err := os.Stat(s.File); os.IsNotExist(err) {
		return fmt.Errorf("property file not found: %s", s.File)
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s Step) error {
	switch {
	case s.Event != "" && len(s.Release) > 0:
		return fmt.Errorf("steps[%d]: event and release are mutually exclusive", index)
	case s.Event == "" && len(s.Release) == 0 && !s.Cleanup:
		return fmt.Errorf("steps[%d]: one of event, release or cleanup is required", index)
	case s.Event == "" && (len(s.Objects) > 0 || s.Aux != ""):
		return fmt.Errorf("steps[%d]: objects and aux need an event", index)
	}
	for param, name := range s.Objects {
		if name == "" {
			return fmt.Errorf("steps[%d]: object name for %q is empty", index, param)
		}
	}
	for j, name := range s.Release {
		if name == "" {
			return fmt.Errorf("steps[%d].release[%d]: object name is empty", index, j)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertMatchCount, AssertMonitorCount, AssertNodeCount, AssertBindingCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertMatchBindings:
		if a.Seq < 1 {
			return fmt.Errorf("assertions[%d]: seq must be at least 1 for match_bindings", index)
		}
		if len(a.Bindings) == 0 {
			return fmt.Errorf("assertions[%d]: bindings are required for match_bindings", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
