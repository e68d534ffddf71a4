package group

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/feedsync/internal/ir"
)

func item(id, date, clock, venue, category string) ir.Item {
	return ir.Item{ID: ir.ItemID(id), Date: date, Time: clock, VenueID: venue, CategoryID: category}
}

func mixedDay() []ir.Item {
	named := func(it ir.Item, title string) ir.Item {
		it.Title = title
		return it
	}
	return []ir.Item{
		named(item("a1", "2025-06-01", "09:00", "hall", "music"), "Gallery Talk"),
		named(item("a2", "2025-06-01", "10:30", "hall", "music"), "Workshop"),
		named(item("a3", "2025-06-01", "14:00", "hall", "music"), "Matinee"),
		named(item("a4", "2025-06-01", "19:00", "hall", "music"), "Concert"),
		named(item("c1", "2025-06-01", "18:00", "x1", "comedy"), "Open Mic"),
		named(item("c2", "2025-06-01", "18:30", "x2", "comedy"), "Improv"),
		named(item("c3", "2025-06-01", "20:00", "x3", "comedy"), "Stand-up"),
		named(item("c4", "2025-06-01", "21:30", "x4", "comedy"), "Late Show"),
		named(item("c5", "2025-06-01", "22:00", "x5", "comedy"), "Roast"),
		named(item("s1", "2025-06-01", "", "club", "music"), "Brunch Set"),
		named(item("s2", "2025-06-01", "12:00", "club", "film"), "Short Films"),
		named(item("s3", "2025-06-01", "23:15", "bar", ""), "Karaoke"),
		named(item("s4", "2025-06-02", "08:00", "hall", ""), "Yoga"),
		named(ir.Item{ID: "s5", Date: "2025-06-02", AllDay: true}, "Market"),
	}
}

func keys(nodes []ir.DisplayItem) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Key()
	}
	return out
}

func TestBucket_Golden(t *testing.T) {
	got := Render(Bucket(mixedDay(), DefaultOptions()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "mixed_day", []byte(got))
}

func TestGroup_VenueThresholdBoundary(t *testing.T) {
	opts := DefaultOptions()

	var below []ir.Item
	for i := 0; i < opts.VenueThreshold-1; i++ {
		below = append(below, item(fmt.Sprintf("e%d", i), "2025-06-01", fmt.Sprintf("1%d:00", i), "v", ""))
	}
	nodes := Group(below, opts)
	require.Len(t, nodes, opts.VenueThreshold-1)
	for _, n := range nodes {
		assert.Equal(t, ir.KindSingle, n.Kind)
	}

	atThreshold := append(below, item("last", "2025-06-01", "19:00", "v", ""))
	nodes = Group(atThreshold, opts)
	require.Len(t, nodes, 1)
	assert.Equal(t, ir.KindVenue, nodes[0].Kind)
	assert.Equal(t, opts.VenueThreshold, nodes[0].Len())
}

func TestGroup_VenueRollupWithSingles(t *testing.T) {
	items := []ir.Item{
		item("a1", "2025-06-01", "20:00", "A", ""),
		item("b1", "2025-06-01", "08:00", "B", ""),
		item("a2", "2025-06-01", "10:00", "A", ""),
		item("a3", "2025-06-01", "", "A", ""),
		item("b2", "2025-06-01", "21:00", "B", ""),
		item("a4", "2025-06-01", "12:00", "A", ""),
		item("a5", "2025-06-01", "09:00", "A", ""),
	}

	nodes := Group(items, DefaultOptions())

	require.Len(t, nodes, 3)
	assert.Equal(t, []string{"venue:A", "single:b1", "single:b2"}, keys(nodes))

	rollup := nodes[0]
	assert.Equal(t, 5, rollup.Len())
	var order []ir.ItemID
	for _, it := range rollup.Items {
		order = append(order, it.ID)
	}
	assert.Equal(t, []ir.ItemID{"a3", "a5", "a2", "a4", "a1"}, order, "missing time sorts first")
}

func TestGroup_CategoryRollupRespectsAllowList(t *testing.T) {
	var items []ir.Item
	for i := 0; i < 5; i++ {
		items = append(items, item(fmt.Sprintf("m%d", i), "2025-06-01", fmt.Sprintf("1%d:00", i), fmt.Sprintf("v%d", i), "Music"))
		items = append(items, item(fmt.Sprintf("w%d", i), "2025-06-01", fmt.Sprintf("1%d:30", i), fmt.Sprintf("w%d", i), "workshops"))
	}

	nodes := Group(items, DefaultOptions())

	var categories []string
	singles := 0
	for _, n := range nodes {
		switch n.Kind {
		case ir.KindCategory:
			categories = append(categories, n.CategoryID)
		case ir.KindSingle:
			singles++
		}
	}
	assert.Equal(t, []string{"Music"}, categories, "allow-list matching ignores case")
	assert.Equal(t, 5, singles)
}

func TestGroup_CategoryThresholdBoundary(t *testing.T) {
	var items []ir.Item
	for i := 0; i < DefaultCategoryThreshold-1; i++ {
		items = append(items, item(fmt.Sprintf("f%d", i), "2025-06-01", "18:00", fmt.Sprintf("v%d", i), "film"))
	}
	for _, n := range Group(items, DefaultOptions()) {
		assert.Equal(t, ir.KindSingle, n.Kind)
	}

	items = append(items, item("f-last", "2025-06-01", "18:00", "v-last", "film"))
	nodes := Group(items, DefaultOptions())
	require.Len(t, nodes, 1)
	assert.Equal(t, ir.KindCategory, nodes[0].Kind)
}

func TestGroup_VenueClaimsBeforeCategory(t *testing.T) {
	var items []ir.Item
	for i := 0; i < 4; i++ {
		items = append(items, item(fmt.Sprintf("h%d", i), "2025-06-01", "19:00", "hall", "music"))
	}
	items = append(items, item("o1", "2025-06-01", "20:00", "other", "music"))

	nodes := Group(items, DefaultOptions())

	assert.Equal(t, []string{"venue:hall", "single:o1"}, keys(nodes))
}

func TestGroup_EmptyAllowListDisablesCategoryRollups(t *testing.T) {
	var items []ir.Item
	for i := 0; i < 6; i++ {
		items = append(items, item(fmt.Sprintf("m%d", i), "2025-06-01", "19:00", fmt.Sprintf("v%d", i), "music"))
	}
	opts := DefaultOptions()
	opts.RollupCategories = []string{}

	for _, n := range Group(items, opts) {
		assert.Equal(t, ir.KindSingle, n.Kind)
	}
}

func TestGroup_StableTieBreak(t *testing.T) {
	items := []ir.Item{
		item("10", "2025-06-01", "19:00", "", ""),
		item("9", "2025-06-01", "19:00", "", ""),
		item("x", "2025-06-01", "19:00", "", ""),
	}

	assert.Equal(t, []string{"single:9", "single:10", "single:x"}, keys(Group(items, DefaultOptions())))
}

func TestGroup_DeduplicatesIdentity(t *testing.T) {
	items := []ir.Item{
		item("1", "2025-06-01", "19:00", "", ""),
		item("1", "2025-06-01", "19:00", "", ""),
	}
	assert.Len(t, Group(items, DefaultOptions()), 1)
}

func TestBucket_DeterministicUnderShuffle(t *testing.T) {
	opts := DefaultOptions()
	opts.CollapseSeries = true
	opts.CollapseFestivals = true

	base := mixedDay()
	base = append(base,
		ir.Item{ID: "r1", Date: "2025-06-01", Time: "11:00", SeriesID: "weekly", VenueID: "park"},
		ir.Item{ID: "r2", Date: "2025-06-01", Time: "15:00", SeriesID: "weekly", VenueID: "pier"},
		ir.Item{ID: "f1", Date: "2025-06-02", Time: "16:00", FestivalID: "jazzfest", VenueID: "park"},
	)

	want, err := Canonical(Bucket(base, opts))
	require.NoError(t, err)

	again, err := Canonical(Bucket(base, opts))
	require.NoError(t, err)
	assert.Equal(t, want, again)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		shuffled := append([]ir.Item(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := Canonical(Bucket(shuffled, opts))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), "shuffle %d", i)
	}
}

func TestBucket_DatesAscendingAndPeriodsFixed(t *testing.T) {
	items := []ir.Item{
		item("late", "2025-06-03", "23:00", "", ""),
		item("early", "2025-06-01", "07:00", "", ""),
		item("noon", "2025-06-03", "12:00", "", ""),
		item("eve", "2025-06-03", "18:00", "", ""),
	}

	buckets := Bucket(items, DefaultOptions())

	require.Len(t, buckets, 2)
	assert.Equal(t, "2025-06-01", buckets[0].Date)
	assert.Equal(t, "2025-06-03", buckets[1].Date)

	var periods []Period
	for _, p := range buckets[1].Periods {
		periods = append(periods, p.Period)
	}
	assert.Equal(t, []Period{Afternoon, Evening, LateNight}, periods, "empty buckets are omitted")
	assert.Equal(t, 3, buckets[1].Len())
	assert.Equal(t, []string{"single:noon", "single:eve", "single:late"}, keys(buckets[1].Nodes()))
}

func TestPeriodOf(t *testing.T) {
	tests := map[string]Period{
		"":         Morning,
		"garbage":  Morning,
		"00:00":    Morning,
		"11:59":    Morning,
		"12:00":    Afternoon,
		"16:59:59": Afternoon,
		"17:00":    Evening,
		"20:59":    Evening,
		"21:00":    LateNight,
		"23:59":    LateNight,
	}
	for clock, want := range tests {
		assert.Equal(t, want, PeriodOf(clock), clock)
	}
}

func TestGroup_SeriesCollapse(t *testing.T) {
	opts := DefaultOptions()
	opts.CollapseSeries = true

	items := []ir.Item{
		{ID: "1", Date: "2025-06-01", Time: "19:00", SeriesID: "s", VenueID: "b"},
		{ID: "2", Date: "2025-06-01", Time: "10:00", SeriesID: "s", VenueID: "a"},
		{ID: "3", Date: "2025-06-01", Time: "12:00", SeriesID: "s", VenueID: "b"},
		{ID: "4", Date: "2025-06-01", Time: "09:00", SeriesID: "solo", VenueID: "c"},
	}

	nodes := Group(items, opts)

	require.Equal(t, []string{"single:4", "series:s"}, keys(nodes))
	series := nodes[1]
	require.Len(t, series.VenueGroups, 2)
	assert.Equal(t, "a", series.VenueGroups[0].VenueID)
	assert.Equal(t, "b", series.VenueGroups[1].VenueID)
	assert.Len(t, series.VenueGroups[1].Items, 2)
	assert.Equal(t, "10:00:00", series.EarliestTime())
}

func TestGroup_SeriesRollupIsOpaqueToVenueStep(t *testing.T) {
	opts := DefaultOptions()
	opts.CollapseSeries = true

	var items []ir.Item
	for i := 0; i < 4; i++ {
		items = append(items, ir.Item{ID: ir.ItemID(fmt.Sprintf("%d", i)), Date: "2025-06-01", Time: "19:00", SeriesID: "s", VenueID: "hall"})
	}

	nodes := Group(items, opts)
	require.Len(t, nodes, 1)
	assert.Equal(t, ir.KindSeries, nodes[0].Kind)
}

func TestGroup_FestivalCollapse(t *testing.T) {
	opts := DefaultOptions()
	opts.CollapseFestivals = true
	opts.CollapseSeries = true

	items := []ir.Item{
		{ID: "1", Date: "2025-06-01", EndDate: "2025-06-03", Time: "12:00", FestivalID: "fest", VenueID: "a", SeriesID: "p1"},
		{ID: "2", Date: "2025-06-01", Time: "14:00", FestivalID: "fest", VenueID: "b", SeriesID: "p1"},
		{ID: "3", Date: "2025-06-01", Time: "16:00", FestivalID: "fest", VenueID: "b"},
		{ID: "4", Date: "2025-06-01", Time: "08:00"},
	}

	nodes := Group(items, opts)

	require.Equal(t, []string{"single:4", "festival:fest"}, keys(nodes))
	f := nodes[1].Festival
	require.NotNil(t, f)
	assert.Equal(t, ir.FestivalSummary{
		StartDate:    "2025-06-01",
		EndDate:      "2025-06-03",
		VenueCount:   2,
		ProgramCount: 2,
		SessionCount: 3,
	}, *f)
}

func TestGroup_CategoryRollupIgnoresCase(t *testing.T) {
	items := []ir.Item{
		item("1", "2025-06-01", "18:00", "", "Music"),
		item("2", "2025-06-01", "18:30", "", "Music"),
		item("3", "2025-06-01", "19:00", "", "music"),
		item("4", "2025-06-01", "19:30", "", "music"),
		item("5", "2025-06-01", "20:00", "", "MUSIC"),
	}

	nodes := Group(items, DefaultOptions())
	require.Len(t, nodes, 1)
	assert.Equal(t, ir.KindCategory, nodes[0].Kind)
	assert.Equal(t, "category:Music", nodes[0].Key())
	assert.Len(t, nodes[0].Items, 5)
}

func TestBucket_FestivalSpansDates(t *testing.T) {
	opts := DefaultOptions()
	opts.CollapseFestivals = true

	items := []ir.Item{
		{ID: "3", Date: "2025-06-02", Time: "10:00", FestivalID: "jazzfest", VenueID: "pier"},
		{ID: "1", Date: "2025-06-01", Time: "19:00", FestivalID: "jazzfest", VenueID: "park"},
		{ID: "2", Date: "2025-06-01", Time: "21:00", FestivalID: "jazzfest", VenueID: "park", SeriesID: "late"},
		item("4", "2025-06-02", "09:00", "", ""),
	}

	buckets := Bucket(items, opts)
	require.Len(t, buckets, 2)

	first := buckets[0]
	assert.Equal(t, "2025-06-01", first.Date)
	require.Equal(t, []string{"festival:jazzfest"}, keys(first.Nodes()))
	require.Len(t, first.Periods, 1)
	assert.Equal(t, Evening, first.Periods[0].Period)

	fest := first.Nodes()[0]
	assert.Equal(t, []ir.ItemID{"1", "2", "3"}, []ir.ItemID{fest.Items[0].ID, fest.Items[1].ID, fest.Items[2].ID})
	assert.Equal(t, ir.FestivalSummary{
		StartDate:    "2025-06-01",
		EndDate:      "2025-06-02",
		VenueCount:   2,
		ProgramCount: 3,
		SessionCount: 3,
	}, *fest.Festival)

	assert.Equal(t, "2025-06-02", buckets[1].Date)
	assert.Equal(t, []string{"single:4"}, keys(buckets[1].Nodes()))
}

func TestBucket_FestivalOnlyDate(t *testing.T) {
	opts := DefaultOptions()
	opts.CollapseFestivals = true

	buckets := Bucket([]ir.Item{
		{ID: "1", Date: "2025-06-05", Time: "12:00", FestivalID: "fest"},
		{ID: "2", Date: "2025-06-06", Time: "12:00", FestivalID: "fest"},
	}, opts)

	require.Len(t, buckets, 1)
	assert.Equal(t, "2025-06-05", buckets[0].Date)
	assert.Equal(t, 2, buckets[0].Nodes()[0].Len())
}

func TestGroup_CollapsingDisabledByDefault(t *testing.T) {
	items := []ir.Item{
		{ID: "1", Date: "2025-06-01", Time: "12:00", FestivalID: "fest", SeriesID: "s"},
		{ID: "2", Date: "2025-06-01", Time: "13:00", FestivalID: "fest", SeriesID: "s"},
	}

	for _, n := range Group(items, DefaultOptions()) {
		assert.Equal(t, ir.KindSingle, n.Kind)
	}
}

func TestGroup_DoesNotModifyInput(t *testing.T) {
	items := []ir.Item{
		item("b", "2025-06-01", "20:00", "", ""),
		item("a", "2025-06-01", "08:00", "", ""),
	}
	Group(items, DefaultOptions())
	assert.Equal(t, ir.ItemID("b"), items[0].ID)
}
