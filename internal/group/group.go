// Package group reshapes a flat list of items into the display tree:
// date buckets → time-of-day buckets → display nodes (single items or
// venue/category/series/festival rollups).
//
// Every function here is pure. Output depends only on the content of the
// input list and the Options, never on input order, fetch order, wall-clock
// time or prior calls, so regrouping an unchanged visible set yields
// byte-identical output.
//
// Steps per date bucket, in fixed order (each step claims its items):
//
//  0. Festival and series pre-pass (when enabled)
//  1. Venue rollup: venues with >= VenueThreshold items
//  2. Category rollup: allow-listed categories with >= CategoryThreshold items
//  3. Remaining items become singles
//  4. Stable sort of all nodes by earliest time (missing time first)
package group

import (
	"sort"

	"github.com/roach88/feedsync/internal/ir"
)

// Group builds the ordered node list for the items of one date.
// Items with duplicate identities are collapsed to their first occurrence
// in canonical order.
func Group(items []ir.Item, opts Options) []ir.DisplayItem {
	return groupNodes(canonicalize(items), opts, nil)
}

// groupNodes runs the grouping steps over canonical items. Nodes already
// built by the caller are ordered together with the ones built here.
func groupNodes(remaining []ir.Item, opts Options, nodes []ir.DisplayItem) []ir.DisplayItem {
	opts = opts.withDefaults()
	nodes = append([]ir.DisplayItem(nil), nodes...)
	if opts.CollapseFestivals {
		var festivals []ir.DisplayItem
		festivals, remaining = collapseFestivals(remaining)
		nodes = append(nodes, festivals...)
	}
	if opts.CollapseSeries {
		var series []ir.DisplayItem
		series, remaining = collapseSeries(remaining, opts.SeriesThreshold)
		nodes = append(nodes, series...)
	}

	var venues []ir.DisplayItem
	venues, remaining = rollupVenues(remaining, opts.VenueThreshold)
	nodes = append(nodes, venues...)

	var categories []ir.DisplayItem
	categories, remaining = rollupCategories(remaining, opts)
	nodes = append(nodes, categories...)

	for _, it := range remaining {
		nodes = append(nodes, ir.Single(it))
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].EarliestTime() < nodes[j].EarliestTime()
	})
	return nodes
}

// canonicalize sorts a copy of items by (time, id) and drops duplicate ids.
func canonicalize(items []ir.Item) []ir.Item {
	out := append([]ir.Item(nil), items...)
	sortItems(out)
	seen := make(map[ir.ItemID]bool, len(out))
	uniq := out[:0]
	for _, it := range out {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		uniq = append(uniq, it)
	}
	return uniq
}

// sortByDate orders items by date, then time of day and identity.
func sortByDate(items []ir.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		if ti, tj := items[i].SortTime(), items[j].SortTime(); ti != tj {
			return ti < tj
		}
		return ir.CompareIDs(items[i].ID, items[j].ID) < 0
	})
}

// sortItems orders items by time of day ascending, missing time first,
// then by date and identity so the order is total.
func sortItems(items []ir.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].SortTime(), items[j].SortTime()
		if ti != tj {
			return ti < tj
		}
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		return ir.CompareIDs(items[i].ID, items[j].ID) < 0
	})
}

// partition splits items by key, preserving first-appearance order of keys
// and item order within each partition. Items with an empty key are skipped.
func partition(items []ir.Item, key func(ir.Item) string) (keys []string, parts map[string][]ir.Item) {
	parts = make(map[string][]ir.Item)
	for _, it := range items {
		k := key(it)
		if k == "" {
			continue
		}
		if _, ok := parts[k]; !ok {
			keys = append(keys, k)
		}
		parts[k] = append(parts[k], it)
	}
	return keys, parts
}

// without returns items whose ids are not in claimed.
func without(items []ir.Item, claimed map[ir.ItemID]bool) []ir.Item {
	if len(claimed) == 0 {
		return items
	}
	out := make([]ir.Item, 0, len(items))
	for _, it := range items {
		if !claimed[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

func claim(claimed map[ir.ItemID]bool, items []ir.Item) {
	for _, it := range items {
		claimed[it.ID] = true
	}
}

func rollupVenues(items []ir.Item, threshold int) ([]ir.DisplayItem, []ir.Item) {
	keys, parts := partition(items, func(it ir.Item) string { return it.VenueID })
	claimed := make(map[ir.ItemID]bool)
	var nodes []ir.DisplayItem
	for _, venue := range keys {
		members := parts[venue]
		if len(members) < threshold {
			continue
		}
		nodes = append(nodes, ir.DisplayItem{
			Kind:    ir.KindVenue,
			VenueID: venue,
			Items:   sortedCopy(members),
		})
		claim(claimed, members)
	}
	return nodes, without(items, claimed)
}

func rollupCategories(items []ir.Item, opts Options) ([]ir.DisplayItem, []ir.Item) {
	allowed := opts.categorySet()
	keys, parts := partition(items, func(it ir.Item) string {
		folded := foldCategory(it.CategoryID)
		if folded == "" || !allowed[folded] {
			return ""
		}
		return folded
	})
	claimed := make(map[ir.ItemID]bool)
	var nodes []ir.DisplayItem
	for _, category := range keys {
		members := parts[category]
		if len(members) < opts.CategoryThreshold {
			continue
		}
		// The node keeps the spelling of its first member in canonical order.
		nodes = append(nodes, ir.DisplayItem{
			Kind:       ir.KindCategory,
			CategoryID: members[0].CategoryID,
			Items:      sortedCopy(members),
		})
		claim(claimed, members)
	}
	return nodes, without(items, claimed)
}

func sortedCopy(items []ir.Item) []ir.Item {
	out := append([]ir.Item(nil), items...)
	sortItems(out)
	return out
}
