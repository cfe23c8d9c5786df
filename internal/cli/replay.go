package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/paramtrace/internal/ir"
	"github.com/roach88/paramtrace/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// ReplayResult holds the outcome of replaying a recorded run.
type ReplayResult struct {
	RunID         string   `json:"run_id"`
	Property      string   `json:"property"`
	Recorded      int      `json:"recorded"`
	Replayed      int      `json:"replayed"`
	Deterministic bool     `json:"deterministic"`
	Differences   []string `json:"differences,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <properties> <trace>",
		Short: "Re-run a trace and verify it reproduces a recorded run",
		Long: `Re-run a trace against its property and compare the matches with
those recorded for a run in the match log.

Matches are compared by content-addressed ID, timestamp, state and
event, in sequence order. The property must hash to the value recorded
with the run.

Exit codes:
  0 - The replay reproduced every recorded match
  1 - The replay diverged from the recorded run
  2 - Command error (database not found, unknown run, etc.)

Examples:
  paramtrace replay ./properties.cue ./trace.yaml --db ./matches.db --run 0190...
  paramtrace replay ./properties ./trace.yaml --db ./matches.db --run 0190... --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite match log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to replay (required)")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runReplay(opts *ReplayOptions, propsPath, tracePath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	recorded, err := st.ReadMatches(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read matches", err)
	}

	prop, trace, err := loadRunInputs(propsPath, tracePath, run.Property)
	if err != nil {
		return err
	}

	result := ReplayResult{
		RunID:    run.ID,
		Property: run.Property,
		Recorded: len(recorded),
	}
	if prop.Hash != run.PropertyHash {
		result.Differences = append(result.Differences,
			fmt.Sprintf("property hash %s, recorded %s", prop.Hash, run.PropertyHash))
		return outputReplay(cmd, opts, result)
	}

	// Cleanup passes never change which matches fire.
	sess, err := newSession(prop, run, 0)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build static model", err)
	}
	if err := sess.feed(trace); err != nil {
		return WrapExitError(ExitCommandError, "invalid trace", err)
	}
	if err := sess.runner.Run(ctx); err != nil {
		return WrapExitError(ExitFailure, "runner error", err)
	}
	if sess.err != nil {
		return WrapExitError(ExitFailure, "failed to convert match", sess.err)
	}
	slog.Debug("replay finished", "run_id", run.ID, "matches", len(sess.matches))

	result.Replayed = len(sess.matches)
	result.Differences = compareMatches(recorded, sess.matches)
	result.Deterministic = len(result.Differences) == 0
	return outputReplay(cmd, opts, result)
}

// compareMatches lists the differences between two match sequences.
func compareMatches(recorded, replayed []ir.MatchRecord) []string {
	var diffs []string
	n := min(len(recorded), len(replayed))
	for i := range n {
		if d := matchDifference(recorded[i], replayed[i]); d != "" {
			diffs = append(diffs, fmt.Sprintf("seq %d: %s", recorded[i].Seq, d))
		}
	}
	for _, m := range recorded[n:] {
		diffs = append(diffs, fmt.Sprintf("seq %d: recorded but not replayed", m.Seq))
	}
	for _, m := range replayed[n:] {
		diffs = append(diffs, fmt.Sprintf("seq %d: replayed but not recorded", m.Seq))
	}
	return diffs
}

func matchDifference(a, b ir.MatchRecord) string {
	switch {
	case a.ID != b.ID:
		return fmt.Sprintf("bindings %s, replayed %s", formatBindings(a.Bindings), formatBindings(b.Bindings))
	case a.Timestamp != b.Timestamp:
		return fmt.Sprintf("timestamp %d, replayed %d", a.Timestamp, b.Timestamp)
	case a.State != b.State:
		return fmt.Sprintf("state %s, replayed %s", a.State, b.State)
	case a.Event != b.Event:
		return fmt.Sprintf("event %s, replayed %s", a.Event, b.Event)
	case a.Aux != b.Aux:
		return fmt.Sprintf("aux %q, replayed %q", a.Aux, b.Aux)
	}
	return ""
}

func outputReplay(cmd *cobra.Command, opts *ReplayOptions, result ReplayResult) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	if result.Deterministic {
		return formatter.Respond(CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
	}
	if err := formatter.Failure("E_REPLAY_DIVERGED", "replay diverged from recorded run", result); err != nil {
		return err
	}
	return NewExitError(ExitFailure, "replay diverged from recorded run")
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay of run %s (%s)\n", result.RunID, result.Property)
	fmt.Fprintf(w, "  Recorded: %d match(es)\n", result.Recorded)
	fmt.Fprintf(w, "  Replayed: %d match(es)\n", result.Replayed)
	fmt.Fprintln(w)

	if result.Deterministic {
		fmt.Fprintln(w, "✓ Replay reproduced the recorded run")
		return nil
	}

	for _, d := range result.Differences {
		fmt.Fprintf(w, "  %s\n", d)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "✗ Replay diverged from recorded run")
	return NewExitError(ExitFailure, "replay diverged from recorded run")
}
