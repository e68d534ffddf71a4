package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/feedsync/internal/engine"
	"github.com/roach88/feedsync/internal/fetch"
	"github.com/roach88/feedsync/internal/group"
	"github.com/roach88/feedsync/internal/ir"
	"github.com/roach88/feedsync/internal/metrics"
	"github.com/roach88/feedsync/internal/sensor"
	"github.com/roach88/feedsync/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Endpoint    string
	Filters     []string
	Pages       int
	Database    string
	Config      string
	MetricsAddr string
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Status   engine.Status   `json:"status"`
	Buckets  json.RawMessage `json:"buckets"`
	Journal  map[string]int  `json:"journal"`
	Counters map[string]int  `json:"counters"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sync a live feed and print the display tree",
		Long: `Drive a scroll controller against an HTTP backend.

The first page is fetched for the filter, then a debounced load-more
trigger pages forward until the requested number of pages is merged, the
backend reports no more results, the visible set is full, or a failure is
surfaced. Every fetch attempt is written to the journal.

Examples:
  feedsync run --endpoint https://api.example.com/v1/events --filter city=austin
  feedsync run --endpoint http://localhost:8080/events --pages 3 --db ./feedsync.db
  feedsync run --config feedsync.cue --metrics-addr :9090 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "feed endpoint URL (overrides config)")
	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, "filter as key=value (repeatable)")
	cmd.Flags().IntVar(&opts.Pages, "pages", 1, "number of pages to load")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database path (overrides config)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (YAML or CUE)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	return cmd
}

func runFeed(opts *RunOptions, cmd *cobra.Command) error {
	logger := slog.Default()

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}
	if opts.Endpoint != "" {
		cfg.Fetch.Endpoint = opts.Endpoint
	}
	if opts.Database != "" {
		cfg.Journal.Path = opts.Database
	}
	if cfg.Fetch.Endpoint == "" {
		return NewExitError(ExitCommandError, "no endpoint: pass --endpoint or set fetch.endpoint")
	}
	if opts.Pages < 1 {
		return NewExitError(ExitCommandError, "--pages must be at least 1")
	}

	filter, err := ir.ParseFilter(opts.Filters)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	client, err := fetch.New(cfg.Fetch.Endpoint, append(cfg.FetchOptions(), fetch.WithLogger(logger))...)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid endpoint", err)
	}

	logger.Info("opening journal", "path", cfg.Journal.Path)
	st, err := store.Open(cfg.Journal.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	reg := prometheus.NewRegistry()
	ctrl := engine.New(client, append(cfg.EngineOptions(),
		engine.WithJournal(st),
		engine.WithMetrics(metrics.New(reg)),
		engine.WithLogger(logger),
	)...)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	views := make(chan engine.View, 1)
	ctrl.OnChange(func(v engine.View) {
		// Keep only the latest view; the driver never needs history.
		select {
		case <-views:
		default:
		}
		views <- v
	})

	trigger := sensor.New(ctrl.LoadMore, sensor.WithDelay(cfg.Sensor.Debounce.Std()))
	defer trigger.Stop()

	// done ends the metrics server once the feed settles.
	runCtx, done := context.WithCancel(ctx)
	defer done()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		err := ctrl.Run(gctx)
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			return nil
		}
		return err
	})

	var final engine.View
	g.Go(func() error {
		defer done()
		defer ctrl.Close()
		v, err := drive(gctx, views, trigger, opts.Pages)
		final = v
		return err
	})

	if opts.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("serving metrics", "addr", opts.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	gen := ctrl.OnFilterChange(filter, nil)
	logger.Info("feed starting", "endpoint", cfg.Fetch.Endpoint, "filter", filter.Key(), "generation", gen, "pages", opts.Pages)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "feed error", err)
	}
	if final.Status.Generation == 0 {
		final = ctrl.View()
	}

	return outputRun(opts, cmd, st, reg, final)
}

// drive pages forward until the feed settles and returns the last view it
// saw. A surfaced feed error settles the feed; it is reported from the view.
func drive(ctx context.Context, views <-chan engine.View, trigger *sensor.Debouncer, pages int) (engine.View, error) {
	var last engine.View
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case v := <-views:
			last = v
			st := v.Status
			switch {
			case st.Loading:
			case st.Err != nil:
				return last, nil
			case st.RetryCount > 0:
				// A backoff timer owns the next fetch.
			case st.Page == 0:
			case !st.HasMore || st.CapReached || st.Page >= pages:
				return last, nil
			default:
				trigger.Notify()
			}
		}
	}
}

func outputRun(opts *RunOptions, cmd *cobra.Command, st *store.Store, reg *prometheus.Registry, view engine.View) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	counts, err := st.CountByOutcome(context.Background())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read journal", err)
	}
	journal := make(map[string]int, len(counts))
	for outcome, n := range counts {
		journal[string(outcome)] = n
	}

	counters, err := gatherCounters(reg)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to gather metrics", err)
	}

	var feedErr error
	if view.Status.Err != nil {
		feedErr = NewExitError(ExitFailure, view.Status.Err.Error())
	}

	if opts.Format == "json" {
		tree, err := group.Canonical(view.Buckets)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to encode display tree", err)
		}
		result := RunResult{
			Status:   view.Status,
			Buckets:  tree,
			Journal:  journal,
			Counters: counters,
		}
		if feedErr != nil {
			if err := formatter.encode(CLIResponse{
				Status: "error",
				Data:   result,
				Error:  &CLIError{Code: ErrCodeFeed, Message: view.Status.Error, Details: view.Status.ErrKind},
			}); err != nil {
				return err
			}
			return feedErr
		}
		if err := formatter.Success(result); err != nil {
			return err
		}
		return nil
	}

	w := cmd.OutOrStdout()
	s := view.Status
	fmt.Fprintf(w, "Generation %d: %d item(s) over %d page(s), has more: %t\n", s.Generation, s.ItemCount, s.Page, s.HasMore)
	if s.CapReached {
		fmt.Fprintln(w, "Visible set is full")
	}
	if s.Err != nil {
		fmt.Fprintf(w, "✗ %s failure: %s\n", s.ErrKind, s.Error)
	}
	fmt.Fprintln(w)
	if tree := group.Render(view.Buckets); tree != "" {
		fmt.Fprint(w, tree)
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Journal: %s\n", formatCounts(journal))
	return feedErr
}

// gatherCounters flattens the counter families of reg into
// name{label=value} keys.
func gatherCounters(reg *prometheus.Registry) (map[string]int, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += fmt.Sprintf("{%s=%s}", lp.GetName(), lp.GetValue())
			}
			out[key] = int(m.GetCounter().GetValue())
		}
	}
	return out, nil
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "(empty)"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s=%d", k, counts[k])
	}
	return s
}
