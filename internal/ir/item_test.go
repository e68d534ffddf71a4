package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareIDs(t *testing.T) {
	tests := []struct {
		a, b ItemID
		want int
	}{
		{"9", "10", -1},
		{"10", "9", 1},
		{"7", "7", 0},
		{"10", "abc", -1},
		{"abc", "10", 1},
		{"abc", "abd", -1},
		{"evt-2", "evt-10", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompareIDs(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestNormalizeClock(t *testing.T) {
	tests := map[string]string{
		"":         "",
		"9:05":     "09:05:00",
		"19:30":    "19:30:00",
		"19:30:15": "19:30:15",
		" 7:00 ":   "07:00:00",
		"24:00":    "",
		"12:60":    "",
		"noon":     "",
		"12":       "",
		"1:2:3:4":  "",
		"-1:00":    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeClock(in), "%q", in)
	}
}

func TestClockHour(t *testing.T) {
	h, ok := ClockHour("7:45")
	assert.True(t, ok)
	assert.Equal(t, 7, h)

	_, ok = ClockHour("")
	assert.False(t, ok)
}

func TestSortTimeOrdersMissingFirst(t *testing.T) {
	missing := Item{ID: "a"}
	early := Item{ID: "b", Time: "6:00"}
	late := Item{ID: "c", Time: "18:00"}

	assert.Less(t, missing.SortTime(), early.SortTime())
	assert.Less(t, early.SortTime(), late.SortTime())
}

func TestDisplayItemKeyAndMembers(t *testing.T) {
	single := Single(Item{ID: "1", Time: "10:00"})
	assert.Equal(t, "single:1", single.Key())
	assert.Equal(t, 1, single.Len())

	series := DisplayItem{
		Kind:     KindSeries,
		SeriesID: "s",
		VenueGroups: []VenueGroup{
			{VenueID: "a", Items: []Item{{ID: "1", Time: "12:00"}}},
			{VenueID: "b", Items: []Item{{ID: "2", Time: "09:00"}, {ID: "3", Time: "20:00"}}},
		},
	}
	assert.Equal(t, "series:s", series.Key())
	assert.Equal(t, 3, series.Len())
	assert.Equal(t, "09:00:00", series.EarliestTime())

	venue := DisplayItem{Kind: KindVenue, VenueID: "v", Items: []Item{{ID: "1", Time: "10:00"}, {ID: "2"}}}
	assert.Equal(t, "", venue.EarliestTime(), "a member without a time pulls the node first")
}
