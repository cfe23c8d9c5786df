package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/paramtrace/internal/alphabet"
	"github.com/roach88/paramtrace/internal/compiler"
	"github.com/roach88/paramtrace/internal/engine"
	"github.com/roach88/paramtrace/internal/harness"
	"github.com/roach88/paramtrace/internal/ir"
	"github.com/roach88/paramtrace/internal/staticdata"
	"github.com/roach88/paramtrace/internal/store"
	"github.com/roach88/paramtrace/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database        string
	Property        string
	MetricsAddr     string
	Linger          bool
	CleanupInterval int

	// RunIDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator engine.RunIDGenerator

	// metricsReady, if set, receives the metrics listener address once the
	// endpoint is serving (for testing).
	metricsReady func(addr string)
}

// RunResult summarises one run.
type RunResult struct {
	RunID    string           `json:"run_id"`
	Property string           `json:"property"`
	Steps    int              `json:"steps"`
	Failed   int              `json:"failed_events"`
	Matches  []ir.MatchRecord `json:"matches"`
	Stats    engine.Snapshot  `json:"stats"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <properties> <trace>",
		Short: "Monitor a trace against a property",
		Long: `Monitor an event trace against a compiled property.

The trace is a YAML file of steps. Each step sends an event binding
named objects, or releases objects so their instances can be pruned.
Every match is printed and, with --db, written to the SQLite match log
under a fresh run ID.

Example:
  paramtrace run ./properties.cue ./trace.yaml --property UnsafeIterator
  paramtrace run ./properties ./trace.yaml --db ./matches.db --metrics-addr :9090 --linger`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite match log")
	cmd.Flags().StringVarP(&opts.Property, "property", "p", "", "property to monitor (default: the trace's, or the only one)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.Linger, "linger", false, "keep serving metrics after the trace until interrupted")
	cmd.Flags().IntVar(&opts.CleanupInterval, "cleanup-interval", engine.DefaultCleanupInterval, "events between cleanup passes (0 disables)")

	return cmd
}

func runMonitor(opts *RunOptions, propsPath, tracePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	prop, trace, err := loadRunInputs(propsPath, tracePath, opts.Property)
	if err != nil {
		return err
	}
	slog.Info("property compiled", "property", prop.Name(), "hash", prop.Hash)

	gen := opts.RunIDGenerator
	if gen == nil {
		gen = engine.UUIDv7Generator{}
	}
	run := ir.Run{
		ID:            gen.Generate(),
		Property:      prop.Name(),
		PropertyHash:  prop.Hash,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks []engine.MatchSink
	var rec *store.Recorder
	if opts.Database != "" {
		slog.Info("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		rec, err = st.NewRecorder(ctx, run, prop.Spec.Parameters)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		sinks = append(sinks, rec.Sink(ctx))
	}

	sess, err := newSession(prop, run, opts.CleanupInterval, sinks...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build static model", err)
	}

	if opts.MetricsAddr != "" {
		shutdown, err := serveMetrics(opts, prop, sess.pm)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to serve metrics", err)
		}
		defer shutdown()
	}

	slog.Info("run starting", "run_id", run.ID, "property", prop.Name(), "steps", len(trace.Steps))
	if err := sess.feed(trace); err != nil {
		return WrapExitError(ExitCommandError, "invalid trace", err)
	}
	if err := sess.runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "runner error", err)
	}
	if rec != nil {
		if err := rec.Err(); err != nil {
			return WrapExitError(ExitFailure, "failed to write match log", err)
		}
		slog.Info("matches recorded", "run_id", run.ID, "count", rec.Count())
	}

	result := RunResult{
		RunID:    run.ID,
		Property: prop.Name(),
		Steps:    len(trace.Steps),
		Failed:   sess.failed,
		Matches:  sess.matches,
		Stats:    sess.pm.Stats().Snapshot(),
	}
	if err := outputRunResult(formatter, result); err != nil {
		return err
	}

	if opts.MetricsAddr != "" && opts.Linger {
		slog.Info("trace done, serving metrics until interrupted", "addr", opts.MetricsAddr)
		<-ctx.Done()
	}
	slog.Info("run finished", "run_id", run.ID)
	return nil
}

// loadRunInputs compiles the properties, reads the trace and picks the
// property to monitor.
func loadRunInputs(propsPath, tracePath, name string) (*compiler.Property, *harness.Trace, error) {
	loadResult, loadErrors := LoadProperties(propsPath, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, nil, WrapExitError(ExitCommandError, "failed to compile properties", loadErrors[0])
	}
	trace, err := harness.LoadTrace(tracePath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load trace", err)
	}
	prop, err := selectProperty(loadResult.Properties, name, trace.Property)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "no property to monitor", err)
	}
	return prop, trace, nil
}

// selectProperty picks the flag's property, else the trace's, else the only
// one compiled.
func selectProperty(props []*compiler.Property, flag, fromTrace string) (*compiler.Property, error) {
	switch {
	case flag != "":
		return compiler.Find(props, flag)
	case fromTrace != "":
		return compiler.Find(props, fromTrace)
	case len(props) == 1:
		return props[0], nil
	default:
		return nil, fmt.Errorf("%d properties compiled; choose one with --property", len(props))
	}
}

// session is one pass of a trace through a fresh engine.
type session struct {
	prop    *compiler.Property
	run     ir.Run
	pm      *engine.ParametricMonitor
	runner  *engine.Runner
	objects *harness.Objects
	matches []ir.MatchRecord
	failed  int
	err     error
}

func newSession(prop *compiler.Property, run ir.Run, cleanupInterval int, sinks ...engine.MatchSink) (*session, error) {
	model, err := staticdata.Compile(prop.FSM)
	if err != nil {
		return nil, err
	}
	s := &session{prop: prop, run: run, objects: harness.NewObjects(), matches: []ir.MatchRecord{}}
	s.pm = engine.New(model,
		engine.WithLogger(slog.Default()),
		engine.WithCleanupInterval(cleanupInterval),
		engine.WithMatchSink(func(m engine.Match) {
			s.collect(m)
			for _, sink := range sinks {
				sink(m)
			}
		}),
	)
	s.runner = engine.NewRunner(s.pm)
	s.runner.OnError(func(alphabet.Event, error) { s.failed++ })
	return s, nil
}

func (s *session) collect(m engine.Match) {
	if s.err != nil {
		return
	}
	rec, err := store.NewMatchRecord(s.run, s.prop.Spec.Parameters, m)
	if err != nil {
		s.err = err
		return
	}
	s.matches = append(s.matches, rec)
}

// feed queues every step of trace and closes the queue.
func (s *session) feed(trace *harness.Trace) error {
	defer s.runner.Stop()
	for i, step := range trace.Steps {
		switch {
		case step.IsRelease():
			for _, name := range step.Release {
				obj, err := s.objects.Retire(name)
				if err != nil {
					return fmt.Errorf("steps[%d]: %w", i, err)
				}
				s.runner.EnqueueRelease(obj)
			}
		case step.Event != "":
			ev, err := s.objects.Event(s.prop, step)
			if err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
			s.runner.Enqueue(ev)
		}
		if step.Cleanup {
			s.runner.EnqueueCleanup()
		}
	}
	return nil
}

// serveMetrics exposes the engine's counters until the returned shutdown
// function is called.
func serveMetrics(opts *RunOptions, prop *compiler.Property, pm *engine.ParametricMonitor) (func(), error) {
	reg, err := telemetry.NewRegistry(telemetry.NewCollector("", prop.Name(), pm))
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", opts.MetricsAddr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", ln.Addr().String())
	if opts.metricsReady != nil {
		opts.metricsReady(ln.Addr().String())
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("metrics server shutdown failed", "error", err)
		}
	}, nil
}

// outputRunResult prints the matches of a run.
func outputRunResult(formatter *OutputFormatter, result RunResult) error {
	if formatter.Format == "json" {
		return formatter.Respond(CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s: %s\n", result.RunID, result.Property)
	fmt.Fprintf(w, "  %d step(s), %d event(s) processed, %d ignored, %d failed\n",
		result.Steps, result.Stats.Events, result.Stats.IgnoredEvents, result.Failed)
	fmt.Fprintf(w, "  %d monitor(s) created, %d derived, %d joined\n",
		result.Stats.CreatedMonitors, result.Stats.DerivedMonitors, result.Stats.JoinedMonitors)
	fmt.Fprintln(w)

	if len(result.Matches) == 0 {
		fmt.Fprintln(w, "No matches.")
		return nil
	}
	fmt.Fprintf(w, "%d match(es):\n", len(result.Matches))
	for _, m := range result.Matches {
		fmt.Fprintf(w, "  [%d] t=%d %s -> %s %s", m.Seq, m.Timestamp, m.Event, m.State, formatBindings(m.Bindings))
		if m.Aux != "" {
			fmt.Fprintf(w, " aux=%s", m.Aux)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// formatBindings renders bindings as {p=obj, ...} in key order.
func formatBindings(b ir.Object) string {
	parts := make([]string, 0, len(b))
	for _, k := range b.SortedKeys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, b[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
