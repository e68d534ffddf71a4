package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: One reset
steps:
  - reset: { filter: [city=berlin] }
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, StepReset, s.Steps[0].Kind())
	assert.Equal(t, []string{"city=berlin"}, s.Steps[0].Reset.Filter)
	assert.False(t, s.Steps[0].Reset.HasSeed())

	cfg, err := s.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Cap)
}

func TestParseScenario_AllStepKinds(t *testing.T) {
	src := `
name: kinds
description: Every step kind
config:
  cap: 3
steps:
  - reset: { filter: [], seeded: true }
  - load_more: {}
  - respond: { page: 1, generate: { count: 2, prefix: x }, has_more: true }
  - fail: { page: 2, status: 500 }
  - advance: 1s
  - retry: {}
  - expect: { page: 1 }
`
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)

	var kinds []string
	for _, step := range s.Steps {
		kinds = append(kinds, step.Kind())
	}
	assert.Equal(t, []string{
		StepReset, StepLoadMore, StepRespond, StepFail, StepAdvance, StepRetry, StepExpect,
	}, kinds)
	assert.True(t, s.Steps[0].Reset.HasSeed())

	items := s.Steps[2].Respond.PageItems()
	require.Len(t, items, 2)
	assert.Equal(t, "x1", string(items[0].ID))
	assert.Equal(t, "2025-06-01", items[1].Date)

	cfg, err := s.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Cap)
}

func TestParseScenario_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing name", "description: d\nsteps:\n  - load_more: {}\n", "name is required"},
		{"missing description", "name: n\nsteps:\n  - load_more: {}\n", "description is required"},
		{"no steps", "name: n\ndescription: d\n", "steps list is required"},
		{"unknown field", "name: n\ndescription: d\nstep:\n  - load_more: {}\n", "failed to parse YAML"},
		{"two kinds in one step", "name: n\ndescription: d\nsteps:\n  - { load_more: {}, retry: {} }\n", "exactly one of"},
		{"empty step", "name: n\ndescription: d\nsteps:\n  - {}\n", "exactly one of"},
		{"bad filter", "name: n\ndescription: d\nsteps:\n  - reset: { filter: [nope] }\n", "steps[0].reset"},
		{"respond page zero", "name: n\ndescription: d\nsteps:\n  - respond: { page: 0 }\n", "page must be >= 1"},
		{"fail bad status", "name: n\ndescription: d\nsteps:\n  - fail: { page: 1, status: 42 }\n", "invalid status"},
		{"bad duration", "name: n\ndescription: d\nsteps:\n  - advance: soon\n", "steps[0].advance"},
		{"bad config", "name: n\ndescription: d\nconfig:\n  cap: -1\nsteps:\n  - load_more: {}\n", "config"},
		{"unknown assertion", "name: n\ndescription: d\nsteps:\n  - load_more: {}\nassertions:\n  - type: nope\n", "unknown assertion type"},
		{"final_state without expect", "name: n\ndescription: d\nsteps:\n  - load_more: {}\nassertions:\n  - { type: final_state, table: attempts }\n", "expect is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
