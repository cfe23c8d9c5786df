package harness

import "github.com/roach88/paramtrace/internal/ir"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Matches holds every reported match in seq order, as written to the
	// match log.
	Matches []ir.MatchRecord `json:"matches"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Monitors, Nodes and Bindings are the engine's sizes after the last
	// step.
	Monitors int `json:"monitors"`
	Nodes    int `json:"nodes"`
	Bindings int `json:"bindings"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Matches: []ir.MatchRecord{},
		Errors:  []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
