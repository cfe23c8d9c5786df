package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/paramtrace/internal/ir"
	"github.com/roach88/paramtrace/internal/store"
)

// MatchesOptions holds flags for the matches command.
type MatchesOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// RunsResult lists the runs in a match log.
type RunsResult struct {
	Runs []ir.Run `json:"runs"`
}

// MatchesResult lists the matches of one run.
type MatchesResult struct {
	Run     ir.Run           `json:"run"`
	Matches []ir.MatchRecord `json:"matches"`
}

// NewMatchesCommand creates the matches command.
func NewMatchesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MatchesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "matches",
		Short: "Show runs and matches from the match log",
		Long: `Show the contents of a match log.

Without --run, lists every recorded run. With --run, lists the matches
of that run in sequence order.

Examples:
  paramtrace matches --db ./matches.db
  paramtrace matches --db ./matches.db --run 0190...
  paramtrace matches --db ./matches.db --run 0190... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatches(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite match log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show matches of this run")

	return cmd
}

func runMatches(opts *MatchesOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ReadRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read runs", err)
		}
		return outputRuns(formatter, RunsResult{Runs: runs})
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	matches, err := st.ReadMatches(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read matches", err)
	}
	return outputMatches(formatter, MatchesResult{Run: run, Matches: matches})
}

func outputRuns(formatter *OutputFormatter, result RunsResult) error {
	if result.Runs == nil {
		result.Runs = []ir.Run{}
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(result.Runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "%d run(s):\n", len(result.Runs))
	for _, r := range result.Runs {
		fmt.Fprintf(w, "  %s  %s  %s\n", r.ID, r.Property, r.PropertyHash)
	}
	return nil
}

func outputMatches(formatter *OutputFormatter, result MatchesResult) error {
	if result.Matches == nil {
		result.Matches = []ir.MatchRecord{}
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s: %s (engine %s)\n", result.Run.ID, result.Run.Property, result.Run.EngineVersion)
	if len(result.Matches) == 0 {
		fmt.Fprintln(w, "No matches.")
		return nil
	}
	for _, m := range result.Matches {
		fmt.Fprintf(w, "  [%d] t=%d %s -> %s %s", m.Seq, m.Timestamp, m.Event, m.State, formatBindings(m.Bindings))
		if m.Aux != "" {
			fmt.Fprintf(w, " aux=%s", m.Aux)
		}
		fmt.Fprintln(w)
	}
	return nil
}
