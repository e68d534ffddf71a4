package accum

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/feedsync/internal/ir"
)

func makeItems(prefix string, n int) []ir.Item {
	items := make([]ir.Item, n)
	for i := range items {
		items[i] = ir.Item{ID: ir.ItemID(fmt.Sprintf("%s%d", prefix, i)), Date: "2025-06-01"}
	}
	return items
}

func ids(items []ir.Item) []ir.ItemID {
	out := make([]ir.ItemID, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestSet_New_DefaultCap(t *testing.T) {
	s := New(0)
	assert.Equal(t, DefaultCap, s.Cap())
	assert.Equal(t, 0, s.Len())
}

func TestSet_Merge_PreservesFirstSeenOrder(t *testing.T) {
	s := New(10)
	s.Merge([]ir.Item{{ID: "b"}, {ID: "a"}})
	s.Merge([]ir.Item{{ID: "c"}, {ID: "a"}, {ID: "d"}})

	assert.Equal(t, []ir.ItemID{"b", "a", "c", "d"}, ids(s.Items()))
}

func TestSet_Merge_Idempotent(t *testing.T) {
	page := makeItems("p", 5)

	s := New(100)
	s.Merge(makeItems("seed", 3))
	s.Merge(page)
	once := s.Items()

	added, dropped := s.Merge(page)
	assert.Equal(t, 0, added)
	assert.Equal(t, 0, dropped)
	assert.Equal(t, once, s.Items())
}

func TestSet_Merge_KeepsFirstVersionOfDuplicate(t *testing.T) {
	s := New(10)
	s.Merge([]ir.Item{{ID: "1", Title: "first"}})
	s.Merge([]ir.Item{{ID: "1", Title: "second"}})

	require.Equal(t, 1, s.Len())
	assert.Equal(t, "first", s.Items()[0].Title)
}

func TestSet_Merge_TruncatesNewestTail(t *testing.T) {
	s := New(10)

	added, dropped := s.Merge(makeItems("a", 6))
	assert.Equal(t, 6, added)
	assert.Equal(t, 0, dropped)
	assert.False(t, s.Full())

	added, dropped = s.Merge(makeItems("b", 6))
	assert.Equal(t, 4, added)
	assert.Equal(t, 2, dropped)
	assert.True(t, s.Full())
	assert.Equal(t, 10, s.Len())

	got := ids(s.Items())
	assert.Equal(t, ir.ItemID("a0"), got[0])
	assert.Equal(t, ir.ItemID("b3"), got[9], "newest tail beyond the cap is dropped")
	assert.False(t, s.Contains("b4"))
}

func TestSet_CapNeverExceeded(t *testing.T) {
	s := New(7)
	for i := 0; i < 20; i++ {
		s.Merge(makeItems(fmt.Sprintf("g%d-", i), 3))
		assert.LessOrEqual(t, s.Len(), 7)
	}
}

func TestSet_Reset(t *testing.T) {
	s := New(3)
	s.Merge(makeItems("x", 3))

	s.Reset(makeItems("seed", 5))
	assert.Equal(t, []ir.ItemID{"seed0", "seed1", "seed2"}, ids(s.Items()))
	assert.False(t, s.Contains("x0"))

	s.Reset(nil)
	assert.Equal(t, 0, s.Len())
}

func TestMerge_Pure(t *testing.T) {
	existing := []ir.Item{{ID: "1"}, {ID: "2"}}
	page := []ir.Item{{ID: "2"}, {ID: "3"}}

	once := Merge(existing, page, 10)
	twice := Merge(once, page, 10)

	assert.Equal(t, []ir.ItemID{"1", "2", "3"}, ids(once))
	assert.Equal(t, once, twice)
	assert.Len(t, existing, 2, "input must not be modified")
}
