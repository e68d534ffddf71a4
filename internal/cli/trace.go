package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/feedsync/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database   string
	Generation int64 // 0 means every generation
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Generation int64           `json:"generation,omitempty"`
	Attempts   []store.Attempt `json:"attempts"`
	Stats      TraceStats      `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Total       int            `json:"total"`
	Generations int            `json:"generations"`
	Items       int            `json:"items"`
	ByOutcome   map[string]int `json:"by_outcome"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the fetch journal",
		Long: `Print the fetch attempts recorded by the run command.

Each row is one resolved fetch: its generation, page, request id, outcome
(ok, retry, terminal, exhausted, stale), HTTP status and backoff delay.

Examples:
  feedsync trace --db ./feedsync.db
  feedsync trace --db ./feedsync.db --generation 3
  feedsync trace --db ./feedsync.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int64Var(&opts.Generation, "generation", 0, "only show this generation")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if opts.Database == store.MemoryPath {
		return NewExitError(ExitCommandError, "an in-memory journal cannot be traced")
	}

	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	attempts, err := st.ListAttempts(ctx, opts.Generation)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := TraceResult{
		Generation: opts.Generation,
		Attempts:   attempts,
		Stats:      traceStats(attempts),
	}

	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Success(result)
	}
	outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

func traceStats(attempts []store.Attempt) TraceStats {
	stats := TraceStats{
		Total:     len(attempts),
		ByOutcome: make(map[string]int),
	}
	gens := make(map[int64]bool)
	for _, a := range attempts {
		gens[a.Generation] = true
		stats.ByOutcome[string(a.Outcome)]++
		if a.Outcome == store.OutcomeOK {
			stats.Items += a.ItemCount
		}
	}
	stats.Generations = len(gens)
	return stats
}

// outputTraceText prints one row per attempt. Verbose adds request ids and
// failure messages.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	if len(result.Attempts) == 0 {
		if result.Generation > 0 {
			fmt.Fprintf(w, "No attempts found for generation %d\n", result.Generation)
		} else {
			fmt.Fprintln(w, "No attempts found")
		}
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := "SEQ\tGEN\tPAGE\tOUTCOME\tSTATUS\tDELAY\tITEMS"
	if verbose {
		header += "\tREQUEST\tMESSAGE"
	}
	fmt.Fprintln(tw, header)
	for _, a := range result.Attempts {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%s\t%d",
			a.Seq, a.Generation, a.Page, a.Outcome, dash(a.Status), delayString(a.DelayMS), a.ItemCount)
		if verbose {
			fmt.Fprintf(tw, "\t%s\t%s", a.RequestID, a.Message)
		}
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d attempt(s) over %d generation(s), %d item(s) merged\n",
		result.Stats.Total, result.Stats.Generations, result.Stats.Items)
	fmt.Fprintf(w, "Outcomes: %s\n", formatCounts(result.Stats.ByOutcome))
}

func dash(status int) string {
	if status == 0 {
		return "-"
	}
	return fmt.Sprint(status)
}

func delayString(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return fmt.Sprintf("%dms", ms)
}
