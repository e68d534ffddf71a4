// Package config loads feedsync configuration from YAML or CUE files.
//
// Both formats are checked against the embedded CUE schema before they are
// decoded, and every field left out keeps its default.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/feedsync/internal/accum"
	"github.com/roach88/feedsync/internal/engine"
	"github.com/roach88/feedsync/internal/fetch"
	"github.com/roach88/feedsync/internal/group"
	"github.com/roach88/feedsync/internal/retry"
	"github.com/roach88/feedsync/internal/sensor"
	"github.com/roach88/feedsync/internal/store"
)

//go:embed schema.cue
var schemaSource string

// Config is the full runtime configuration.
type Config struct {
	Cap              int           `json:"cap" yaml:"cap"`
	Retry            RetryConfig   `json:"retry" yaml:"retry"`
	ManualRetryGrace Duration      `json:"manual_retry_grace" yaml:"manual_retry_grace"`
	Group            group.Options `json:"group" yaml:"group"`
	Fetch            FetchConfig   `json:"fetch" yaml:"fetch"`
	Sensor           SensorConfig  `json:"sensor" yaml:"sensor"`
	Journal          JournalConfig `json:"journal" yaml:"journal"`
}

type RetryConfig struct {
	BaseDelay  Duration `json:"base_delay" yaml:"base_delay"`
	MaxRetries int      `json:"max_retries" yaml:"max_retries"`
}

type FetchConfig struct {
	Endpoint string      `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	PageSize int         `json:"page_size" yaml:"page_size"`
	Timeout  Duration    `json:"timeout" yaml:"timeout"`
	Rate     float64     `json:"rate" yaml:"rate"`
	Burst    int         `json:"burst" yaml:"burst"`
	Paths    fetch.Paths `json:"paths" yaml:"paths"`
}

type SensorConfig struct {
	Debounce Duration `json:"debounce" yaml:"debounce"`
}

type JournalConfig struct {
	Path string `json:"path" yaml:"path"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Cap: accum.DefaultCap,
		Retry: RetryConfig{
			BaseDelay:  Duration(retry.DefaultPolicy.BaseDelay),
			MaxRetries: retry.DefaultPolicy.MaxRetries,
		},
		ManualRetryGrace: Duration(engine.DefaultManualRetryGrace),
		Group:            group.DefaultOptions(),
		Fetch: FetchConfig{
			PageSize: fetch.DefaultPageSize,
			Timeout:  Duration(fetch.DefaultTimeout),
			Burst:    1,
			Paths:    fetch.DefaultPaths,
		},
		Sensor:  SensorConfig{Debounce: Duration(sensor.DefaultDelay)},
		Journal: JournalConfig{Path: store.MemoryPath},
	}
}

// Load reads a config file. The format follows the extension: .cue is
// compiled as CUE, anything else is read as YAML (which covers JSON).
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return ParseCUE(path, data)
	}
	return ParseYAML(path, data)
}

// ParseYAML decodes and validates YAML config source.
func ParseYAML(filename string, data []byte) (Config, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, &Error{File: filename, Message: err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	ctx := cuecontext.New()
	v := ctx.Encode(raw)
	return decode(ctx, filename, v)
}

// ParseCUE compiles and validates CUE config source.
func ParseCUE(filename string, data []byte) (Config, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	return decode(ctx, filename, v)
}

func decode(ctx *cue.Context, filename string, v cue.Value) (Config, error) {
	if err := v.Err(); err != nil {
		return Config{}, formatCUEError(filename, err)
	}

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(filename, err)
	}

	b, err := unified.MarshalJSON()
	if err != nil {
		return Config{}, formatCUEError(filename, err)
	}
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, &Error{File: filename, Message: err.Error()}
	}
	return cfg, nil
}

// Policy returns the retry policy.
func (c Config) Policy() retry.Policy {
	return retry.Policy{
		BaseDelay:  c.Retry.BaseDelay.Std(),
		MaxRetries: c.Retry.MaxRetries,
	}
}

// EngineOptions returns the controller options this config implies.
func (c Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithCap(c.Cap),
		engine.WithPolicy(c.Policy()),
		engine.WithGroupOptions(c.Group),
		engine.WithManualRetryGrace(c.ManualRetryGrace.Std()),
	}
}

// FetchOptions returns the HTTP fetcher options this config implies.
func (c Config) FetchOptions() []fetch.Option {
	return []fetch.Option{
		fetch.WithPageSize(c.Fetch.PageSize),
		fetch.WithPaths(c.Fetch.Paths),
		fetch.WithRateLimit(c.Fetch.Rate, c.Fetch.Burst),
		fetch.WithHTTPClient(retry.NewSingleShotClient(nil, c.Fetch.Timeout.Std())),
	}
}

// Error is a config file that failed to parse or validate.
type Error struct {
	File    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

func formatCUEError(filename string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{File: filename, Message: err.Error()}
	}
	first := errs[0]
	out := &Error{File: filename, Message: first.Error()}
	if ps := cueerrors.Positions(first); len(ps) > 0 {
		for _, p := range ps {
			if p.Filename() == filename {
				out.Pos = p
				break
			}
		}
	}
	return out
}

// Duration is a time.Duration written as a Go duration string ("1s").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}
