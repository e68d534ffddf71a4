package group

import "github.com/roach88/feedsync/internal/ir"

// collapseFestivals folds every item that belongs to a festival program into
// one festival node per festival. The nodes are opaque to later steps.
// Members are listed chronologically, date first.
func collapseFestivals(items []ir.Item) ([]ir.DisplayItem, []ir.Item) {
	keys, parts := partition(items, func(it ir.Item) string { return it.FestivalID })
	claimed := make(map[ir.ItemID]bool)
	var nodes []ir.DisplayItem
	for _, festival := range keys {
		members := append([]ir.Item(nil), parts[festival]...)
		sortByDate(members)
		summary := summarizeFestival(members)
		nodes = append(nodes, ir.DisplayItem{
			Kind:       ir.KindFestival,
			FestivalID: festival,
			Festival:   &summary,
			Items:      members,
		})
		claim(claimed, members)
	}
	return nodes, without(items, claimed)
}

func summarizeFestival(items []ir.Item) ir.FestivalSummary {
	var s ir.FestivalSummary
	venues := make(map[string]bool)
	programs := make(map[string]bool)
	for _, it := range items {
		if it.Date != "" && (s.StartDate == "" || it.Date < s.StartDate) {
			s.StartDate = it.Date
		}
		end := it.EndDate
		if end == "" {
			end = it.Date
		}
		if end > s.EndDate {
			s.EndDate = end
		}
		if it.VenueID != "" {
			venues[it.VenueID] = true
		}
		if it.SeriesID != "" {
			programs[it.SeriesID] = true
		} else {
			s.ProgramCount++
		}
	}
	s.VenueCount = len(venues)
	s.ProgramCount += len(programs)
	s.SessionCount = len(items)
	return s
}

// collapseSeries folds items sharing a series identity into one series node,
// sub-grouped by venue, when the series has at least threshold items.
func collapseSeries(items []ir.Item, threshold int) ([]ir.DisplayItem, []ir.Item) {
	keys, parts := partition(items, func(it ir.Item) string { return it.SeriesID })
	claimed := make(map[ir.ItemID]bool)
	var nodes []ir.DisplayItem
	for _, series := range keys {
		members := parts[series]
		if len(members) < threshold {
			continue
		}
		nodes = append(nodes, ir.DisplayItem{
			Kind:        ir.KindSeries,
			SeriesID:    series,
			VenueGroups: venueGroups(members),
		})
		claim(claimed, members)
	}
	return nodes, without(items, claimed)
}

// venueGroups splits series members by venue in first-appearance order.
// Members without a venue share one group with an empty venue id.
func venueGroups(members []ir.Item) []ir.VenueGroup {
	var order []string
	byVenue := make(map[string][]ir.Item)
	for _, it := range sortedCopy(members) {
		if _, ok := byVenue[it.VenueID]; !ok {
			order = append(order, it.VenueID)
		}
		byVenue[it.VenueID] = append(byVenue[it.VenueID], it)
	}
	groups := make([]ir.VenueGroup, len(order))
	for i, v := range order {
		groups[i] = ir.VenueGroup{VenueID: v, Items: byVenue[v]}
	}
	return groups
}
