package harness

import (
	"fmt"
	"maps"
	"strings"

	"github.com/roach88/paramtrace/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string           // Assertion type for categorization
	Expected string           // Human-readable expected outcome
	Actual   string           // Human-readable actual outcome
	Matches  []ir.MatchRecord // Full match trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nMatches:\n")
	if len(e.Matches) == 0 {
		fmt.Fprintf(&buf, "  (none)\n")
	}
	for _, m := range e.Matches {
		fmt.Fprintf(&buf, "  [%d] %s -> %s %s\n", m.Seq, m.Event, m.State, formatBindings(m.Bindings))
	}

	return buf.String()
}

func assertMatchCount(matches []ir.MatchRecord, a Assertion) error {
	if len(matches) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertMatchCount,
		Expected: fmt.Sprintf("%d matches", a.Count),
		Actual:   fmt.Sprintf("%d matches", len(matches)),
		Matches:  matches,
	}
}

// assertMatchBindings checks the bindings of match number a.Seq exactly:
// parameters missing from a.Bindings must be unbound.
func assertMatchBindings(matches []ir.MatchRecord, a Assertion) error {
	expected := ir.Object{}
	for param, name := range a.Bindings {
		expected[param] = ir.String(name)
	}

	for _, m := range matches {
		if m.Seq != a.Seq {
			continue
		}
		var problems []string
		if !maps.Equal(m.Bindings, expected) {
			problems = append(problems, "bindings "+formatBindings(m.Bindings))
		}
		if a.State != "" && m.State != a.State {
			problems = append(problems, "state "+m.State)
		}
		if a.Event != "" && m.Event != a.Event {
			problems = append(problems, "event "+m.Event)
		}
		if len(problems) == 0 {
			return nil
		}
		return &AssertionError{
			Type:     AssertMatchBindings,
			Expected: describeMatch(a, expected),
			Actual:   strings.Join(problems, ", "),
			Matches:  matches,
		}
	}

	return &AssertionError{
		Type:     AssertMatchBindings,
		Expected: describeMatch(a, expected),
		Actual:   fmt.Sprintf("no match with seq %d", a.Seq),
		Matches:  matches,
	}
}

func assertSize(kind string, actual int, a Assertion, matches []ir.MatchRecord) error {
	if actual == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d %s", a.Count, kind),
		Actual:   fmt.Sprintf("%d %s", actual, kind),
		Matches:  matches,
	}
}

func describeMatch(a Assertion, bindings ir.Object) string {
	s := fmt.Sprintf("match %d with bindings %s", a.Seq, formatBindings(bindings))
	if a.State != "" {
		s += " in state " + a.State
	}
	if a.Event != "" {
		s += " on " + a.Event
	}
	return s
}

// formatBindings renders bindings as {p=obj, ...} in key order.
func formatBindings(b ir.Object) string {
	parts := make([]string, 0, len(b))
	for _, k := range b.SortedKeys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, b[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertMatchCount:
			err = assertMatchCount(result.Matches, assertion)
		case AssertMatchBindings:
			err = assertMatchBindings(result.Matches, assertion)
		case AssertMonitorCount:
			err = assertSize("monitors", result.Monitors, assertion, result.Matches)
		case AssertNodeCount:
			err = assertSize("nodes", result.Nodes, assertion, result.Matches)
		case AssertBindingCount:
			err = assertSize("bindings", result.Bindings, assertion, result.Matches)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
