package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/feedsync/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	File   string            `json:"file"`
	Config *config.Config    `json:"config,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue locates a config error. Line and Column are 0 when the
// error has no source position.
type ValidationIssue struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a config file",
		Long: `Check a YAML or CUE config file against the config schema.

Files ending in .cue are compiled as CUE; anything else is read as YAML.
On success the effective config, defaults included, is printed.

Examples:
  feedsync validate feedsync.yaml
  feedsync validate feedsync.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		_ = formatter.Error(ErrCodeLoad, fmt.Sprintf("config file not found: %s", path), nil)
		return WrapExitError(ExitCommandError, "config file not found", err)
	}
	if err != nil {
		issue := ValidationIssue{Message: err.Error()}
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			issue.Message = cfgErr.Message
			if cfgErr.Pos.IsValid() {
				issue.Line = cfgErr.Pos.Line()
				issue.Column = cfgErr.Pos.Column()
			}
		}
		return outputValidationErrors(formatter, path, issue)
	}

	formatter.VerboseLog("Validated %s", path)
	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, File: path, Config: &cfg})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ %s is valid\n", path)
	if opts.Verbose {
		fmt.Fprintf(w, "  cap: %d\n", cfg.Cap)
		fmt.Fprintf(w, "  retry: %s base, %d max\n", cfg.Retry.BaseDelay, cfg.Retry.MaxRetries)
		fmt.Fprintf(w, "  group: venue >= %d, category >= %d\n", cfg.Group.VenueThreshold, cfg.Group.CategoryThreshold)
		if cfg.Fetch.Endpoint != "" {
			fmt.Fprintf(w, "  endpoint: %s (page size %d)\n", cfg.Fetch.Endpoint, cfg.Fetch.PageSize)
		}
		fmt.Fprintf(w, "  journal: %s\n", cfg.Journal.Path)
	}
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, path string, issue ValidationIssue) error {
	if formatter.Format == "json" {
		if err := formatter.Error(ErrCodeConfigInvalid, "config validation failed", ValidationResult{
			File:   path,
			Errors: []ValidationIssue{issue},
		}); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintf(w, "✗ %s is invalid\n", path)
		if issue.Line > 0 {
			fmt.Fprintf(w, "  line %d, column %d: %s\n", issue.Line, issue.Column, issue.Message)
		} else {
			fmt.Fprintf(w, "  %s\n", issue.Message)
		}
	}
	return NewExitError(ExitFailure, "config validation failed")
}
