package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_ValidFormat(t *testing.T) {
	id := UUIDv7Generator{}.Generate()

	parsed, err := uuid.Parse(id)
	require.NoError(t, err, "id should be valid UUID")
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, id)
}

func TestUUIDv7Generator_Uniqueness(t *testing.T) {
	gen := UUIDv7Generator{}
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := gen.Generate()
		require.False(t, seen[id], "id %s generated twice", id)
		seen[id] = true
	}
}

func TestFixedGenerator_Sequence(t *testing.T) {
	gen := NewFixedGenerator("req-1", "req-2")
	assert.Equal(t, "req-1", gen.Generate())
	assert.Equal(t, "req-2", gen.Generate())
	assert.PanicsWithValue(t, "FixedGenerator: all ids exhausted", func() { gen.Generate() })
}

func TestFeedErrorHelpers(t *testing.T) {
	terminal := newFeedError(KindTerminal, 2, 3, assert.AnError)
	assert.True(t, IsTerminal(terminal))
	assert.False(t, IsExhausted(terminal))
	assert.ErrorIs(t, terminal, assert.AnError)
	assert.Contains(t, terminal.Error(), "generation=2, page=3")

	exhausted := newFeedError(KindExhausted, 1, 1, assert.AnError)
	assert.True(t, IsExhausted(exhausted))
	assert.False(t, IsTerminal(assert.AnError))
}
