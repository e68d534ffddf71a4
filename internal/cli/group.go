package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/feedsync/internal/config"
	"github.com/roach88/feedsync/internal/fetch"
	"github.com/roach88/feedsync/internal/group"
	"github.com/roach88/feedsync/internal/ir"
)

// GroupOptions holds flags for the group command.
type GroupOptions struct {
	*RootOptions
	Config    string
	Series    bool
	Festivals bool
}

// GroupResult is the JSON payload of the group command.
type GroupResult struct {
	Items   int             `json:"items"`
	Dates   int             `json:"dates"`
	Hash    string          `json:"hash"`
	Buckets json.RawMessage `json:"buckets"`
}

// NewGroupCommand creates the group command.
func NewGroupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GroupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "group <items-file>",
		Short: "Group a fixture of items into the display tree",
		Long: `Run the grouping engine on a file of items and print the display tree.

YAML files hold a list of items. JSON files hold either a bare array of
items or a saved page response, decoded with the configured envelope paths.

Examples:
  feedsync group ./fixtures/saturday.yaml
  feedsync group ./page1.json --config feedsync.yaml --format json
  feedsync group ./fixtures/festival.yaml --festivals --series`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroup(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (YAML or CUE)")
	cmd.Flags().BoolVar(&opts.Series, "series", false, "collapse recurring series")
	cmd.Flags().BoolVar(&opts.Festivals, "festivals", false, "collapse festival sessions")

	return cmd
}

func runGroup(opts *GroupOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}
	groupOpts := cfg.Group
	if opts.Series {
		groupOpts.CollapseSeries = true
	}
	if opts.Festivals {
		groupOpts.CollapseFestivals = true
	}

	items, err := LoadItems(path, cfg.Fetch.Paths)
	if err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load items", err)
	}
	formatter.VerboseLog("Loaded %d item(s) from %s", len(items), path)

	buckets := group.Bucket(items, groupOpts)
	if opts.Format != "json" {
		if len(buckets) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(no items)")
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), group.Render(buckets))
		return nil
	}

	tree, err := group.Canonical(buckets)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode display tree", err)
	}
	return formatter.Success(GroupResult{
		Items:   len(items),
		Dates:   len(buckets),
		Hash:    ir.ViewHash(tree),
		Buckets: tree,
	})
}

// LoadItems reads an item fixture. JSON goes through the page decoder so a
// saved backend response can be grouped as-is.
func LoadItems(path string, paths fetch.Paths) ([]ir.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			data = append(append([]byte(`{"data":`), trimmed...), '}')
			paths = fetch.Paths{Items: "data"}
		}
		page, err := fetch.Decode(data, paths)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return page.Items, nil
	}

	var items []ir.Item
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("%s: item %d has no id", path, i)
		}
	}
	return items, nil
}

// loadConfig returns the defaults when path is empty.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}
