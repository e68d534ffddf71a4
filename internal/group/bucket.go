package group

import (
	"sort"

	"github.com/roach88/feedsync/internal/ir"
)

// Period is a fixed time-of-day bucket.
type Period string

const (
	Morning   Period = "morning"    // hour < 12, and items without a time
	Afternoon Period = "afternoon"  // 12–16
	Evening   Period = "evening"    // 17–20
	LateNight Period = "late_night" // >= 21
)

// Periods lists the buckets in emission order.
var Periods = []Period{Morning, Afternoon, Evening, LateNight}

// PeriodOf maps a clock string to its bucket.
func PeriodOf(clock string) Period {
	h, ok := ir.ClockHour(clock)
	switch {
	case !ok || h < 12:
		return Morning
	case h < 17:
		return Afternoon
	case h < 21:
		return Evening
	}
	return LateNight
}

// DateBucket holds the grouped nodes of one calendar date.
type DateBucket struct {
	Date    string         `json:"date"`
	Periods []PeriodBucket `json:"periods"`
}

// PeriodBucket holds the nodes of one time-of-day bucket, in node order.
type PeriodBucket struct {
	Period Period           `json:"period"`
	Nodes  []ir.DisplayItem `json:"nodes"`
}

// Len returns the number of nodes in the date bucket.
func (b DateBucket) Len() int {
	n := 0
	for _, p := range b.Periods {
		n += len(p.Nodes)
	}
	return n
}

// Nodes returns the date's nodes in display order.
func (b DateBucket) Nodes() []ir.DisplayItem {
	var out []ir.DisplayItem
	for _, p := range b.Periods {
		out = append(out, p.Nodes...)
	}
	return out
}

// Bucket builds the full display tree. Items are partitioned by calendar
// date, each date is grouped independently, and dates are emitted in
// ascending order. Items without a date land in a bucket with an empty date,
// emitted first.
//
// Festivals are collapsed across the whole input before the date split: each
// festival becomes one node, summarizing every session, placed in the bucket
// of its start date.
func Bucket(items []ir.Item, opts Options) []DateBucket {
	festivalsByDate := make(map[string][]ir.DisplayItem)
	if opts.CollapseFestivals {
		var festivals []ir.DisplayItem
		festivals, items = collapseFestivals(canonicalize(items))
		for _, f := range festivals {
			festivalsByDate[f.Festival.StartDate] = append(festivalsByDate[f.Festival.StartDate], f)
		}
		opts.CollapseFestivals = false
	}

	byDate := make(map[string][]ir.Item)
	for _, it := range items {
		byDate[it.Date] = append(byDate[it.Date], it)
	}
	for d := range festivalsByDate {
		if _, ok := byDate[d]; !ok {
			byDate[d] = nil
		}
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]DateBucket, 0, len(dates))
	for _, d := range dates {
		out = append(out, DateBucket{
			Date:    d,
			Periods: splitPeriods(groupNodes(canonicalize(byDate[d]), opts, festivalsByDate[d])),
		})
	}
	return out
}

// splitPeriods assigns nodes to time-of-day buckets by representative time
// without reordering nodes inside a bucket. Empty buckets are omitted.
func splitPeriods(nodes []ir.DisplayItem) []PeriodBucket {
	byPeriod := make(map[Period][]ir.DisplayItem)
	for _, n := range nodes {
		p := PeriodOf(n.EarliestTime())
		byPeriod[p] = append(byPeriod[p], n)
	}
	var out []PeriodBucket
	for _, p := range Periods {
		if len(byPeriod[p]) == 0 {
			continue
		}
		out = append(out, PeriodBucket{Period: p, Nodes: byPeriod[p]})
	}
	return out
}
