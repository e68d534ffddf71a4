package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/feedsync/internal/accum"
	"github.com/roach88/feedsync/internal/fetch"
	"github.com/roach88/feedsync/internal/group"
	"github.com/roach88/feedsync/internal/retry"
	"github.com/roach88/feedsync/internal/store"
)

func expectedFixture() Config {
	cfg := Default()
	cfg.Cap = 200
	cfg.Retry = RetryConfig{BaseDelay: Duration(500 * time.Millisecond), MaxRetries: 2}
	cfg.ManualRetryGrace = Duration(250 * time.Millisecond)
	cfg.Group.VenueThreshold = 3
	cfg.Group.RollupCategories = []string{"music", "Comedy"}
	cfg.Group.CollapseFestivals = true
	cfg.Fetch.Endpoint = "https://api.example.com/v1/events"
	cfg.Fetch.PageSize = 50
	cfg.Fetch.Rate = 2.5
	cfg.Fetch.Burst = 3
	cfg.Fetch.Paths.Items = "results"
	cfg.Sensor.Debounce = Duration(150 * time.Millisecond)
	cfg.Journal.Path = "feedsync.db"
	return cfg
}

func TestLoad_YAMLAndCUEAgree(t *testing.T) {
	want := expectedFixture()

	fromYAML, err := Load(filepath.Join("testdata", "feedsync.yaml"))
	require.NoError(t, err)
	assert.Equal(t, want, fromYAML)

	fromCUE, err := Load(filepath.Join("testdata", "feedsync.cue"))
	require.NoError(t, err)
	assert.Equal(t, want, fromCUE)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, accum.DefaultCap, cfg.Cap)
	assert.Equal(t, retry.DefaultPolicy, cfg.Policy())
	assert.Equal(t, 100*time.Millisecond, cfg.ManualRetryGrace.Std())
	assert.Equal(t, group.DefaultOptions(), cfg.Group)
	assert.Equal(t, fetch.DefaultPaths, cfg.Fetch.Paths)
	assert.Equal(t, 300*time.Millisecond, cfg.Sensor.Debounce.Std())
	assert.Equal(t, store.MemoryPath, cfg.Journal.Path)
}

func TestParseYAML_EmptyKeepsDefaults(t *testing.T) {
	cfg, err := ParseYAML("empty.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseYAML_PartialOverride(t *testing.T) {
	cfg, err := ParseYAML("partial.yaml", []byte("group:\n  category_threshold: 7\n"))
	require.NoError(t, err)

	want := Default()
	want.Group.CategoryThreshold = 7
	assert.Equal(t, want, cfg)
}

func TestParseYAML_EmptyAllowListDisablesRollups(t *testing.T) {
	cfg, err := ParseYAML("c.yaml", []byte("group:\n  rollup_categories: []\n"))
	require.NoError(t, err)
	assert.NotNil(t, cfg.Group.RollupCategories)
	assert.Empty(t, cfg.Group.RollupCategories)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", "caps: 10\n"},
		{"negative cap", "cap: -1\n"},
		{"zero cap", "cap: 0\n"},
		{"bad duration", "retry:\n  base_delay: soon\n"},
		{"numeric duration", "sensor:\n  debounce: 300\n"},
		{"series threshold below two", "group:\n  series_threshold: 1\n"},
		{"non-http endpoint", "fetch:\n  endpoint: ftp://example.com\n"},
		{"page size too large", "fetch:\n  page_size: 5000\n"},
		{"wrong type", "group:\n  collapse_series: maybe\n"},
		{"malformed yaml", "cap: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML("bad.yaml", []byte(tt.src))
			require.Error(t, err)
			var ce *Error
			assert.True(t, errors.As(err, &ce), "got %T: %v", err, err)
		})
	}
}

func TestParseCUE_ReportsPosition(t *testing.T) {
	_, err := ParseCUE("bad.cue", []byte("cap: 10\nretry: max_retries: -3\n"))
	require.Error(t, err)

	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, err.Error(), "bad.cue")
}

func TestParseCUE_SyntaxError(t *testing.T) {
	_, err := ParseCUE("broken.cue", []byte("cap: {\n"))
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestConfig_Options(t *testing.T) {
	cfg := expectedFixture()

	assert.Equal(t, retry.Policy{BaseDelay: 500 * time.Millisecond, MaxRetries: 2}, cfg.Policy())
	assert.Len(t, cfg.EngineOptions(), 4)

	c, err := fetch.New(cfg.Fetch.Endpoint, cfg.FetchOptions()...)
	require.NoError(t, err)
	got, err := c.PageURL(nil, 1)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/events?page=1&page_size=50", got)
}

func TestDuration_YAMLRoundTrip(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, 90*time.Second, d.Std())

	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(b))

	assert.Error(t, d.UnmarshalJSON([]byte(`90`)))
}
