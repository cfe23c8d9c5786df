package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/paramtrace/internal/compiler"
	"github.com/roach88/paramtrace/internal/engine"
	"github.com/roach88/paramtrace/internal/ir"
	"github.com/roach88/paramtrace/internal/staticdata"
	"github.com/roach88/paramtrace/internal/store"
)

// Harness is the test execution engine.
// It runs one scenario against a fresh engine and match log.
type Harness struct {
	prop    *compiler.Property
	engine  *engine.ParametricMonitor
	objects *Objects
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// The run ID is derived from the scenario name, so match IDs are
// reproducible across runs.
//
// Execution flow:
// 1. Compile the property from the scenario's CUE file
// 2. Create fresh in-memory database and record the run
// 3. Execute steps in order
// 4. Read the match log back and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	props, err := compiler.CompileFile(scenario.File)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", scenario.File, err)
	}
	prop, err := compiler.Find(props, scenario.Property)
	if err != nil {
		return nil, err
	}
	model, err := staticdata.Compile(prop.FSM)
	if err != nil {
		return nil, fmt.Errorf("failed to build static model: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	run := ir.Run{
		ID:            "scenario-" + scenario.Name,
		Property:      prop.Name(),
		PropertyHash:  prop.Hash,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	rec, err := st.NewRecorder(ctx, run, prop.Spec.Parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	// Suppress logs in tests
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMatchSink(rec.Sink(ctx)),
	}
	if scenario.CleanupInterval > 0 {
		opts = append(opts, engine.WithCleanupInterval(scenario.CleanupInterval))
	}

	h := &Harness{
		prop:    prop,
		engine:  engine.New(model, opts...),
		objects: NewObjects(),
	}

	for i, step := range scenario.Steps {
		if err := h.executeStep(step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	if err := rec.Err(); err != nil {
		return nil, fmt.Errorf("failed to record matches: %w", err)
	}

	result := NewResult()
	result.Matches, err = st.ReadMatches(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read matches: %w", err)
	}
	result.Monitors = h.engine.Monitors()
	result.Nodes = h.engine.Nodes()
	result.Bindings = h.engine.Bindings()

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeStep sends one event or releases objects, then runs cleanup if the
// step asks for it.
func (h *Harness) executeStep(step Step) error {
	switch {
	case step.IsRelease():
		for _, name := range step.Release {
			obj, err := h.objects.Retire(name)
			if err != nil {
				return err
			}
			h.engine.Release(obj)
		}
	case step.Event != "":
		ev, err := h.objects.Event(h.prop, step)
		if err != nil {
			return err
		}
		if err := h.engine.ProcessEvent(ev); err != nil {
			return err
		}
	}
	if step.Cleanup {
		h.engine.Cleanup()
	}
	return nil
}
