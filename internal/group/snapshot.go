package group

import (
	"fmt"
	"strings"

	"github.com/roach88/feedsync/internal/ir"
)

// Canonical encodes the display tree as canonical JSON. Equal trees encode
// to identical bytes, which is what list diffing in the renderer relies on.
func Canonical(buckets []DateBucket) ([]byte, error) {
	dates := make([]any, len(buckets))
	for i, b := range buckets {
		periods := make([]any, len(b.Periods))
		for j, p := range b.Periods {
			nodes := make([]any, len(p.Nodes))
			for k, n := range p.Nodes {
				nodes[k] = nodeMap(n)
			}
			periods[j] = map[string]any{
				"period": string(p.Period),
				"nodes":  nodes,
			}
		}
		dates[i] = map[string]any{
			"date":    b.Date,
			"periods": periods,
		}
	}
	return ir.MarshalCanonical(dates)
}

func nodeMap(n ir.DisplayItem) map[string]any {
	m := map[string]any{
		"kind": string(n.Kind),
		"key":  n.Key(),
	}
	switch n.Kind {
	case ir.KindSingle:
		if n.Item != nil {
			m["item"] = itemMap(*n.Item)
		}
	case ir.KindSeries:
		groups := make([]any, len(n.VenueGroups))
		for i, g := range n.VenueGroups {
			groups[i] = map[string]any{
				"venue_id": g.VenueID,
				"items":    itemList(g.Items),
			}
		}
		m["venue_groups"] = groups
	case ir.KindFestival:
		m["items"] = itemList(n.Items)
		if n.Festival != nil {
			m["festival"] = map[string]any{
				"start_date":    n.Festival.StartDate,
				"end_date":      n.Festival.EndDate,
				"venue_count":   n.Festival.VenueCount,
				"program_count": n.Festival.ProgramCount,
				"session_count": n.Festival.SessionCount,
			}
		}
	default:
		m["items"] = itemList(n.Items)
	}
	return m
}

func itemList(items []ir.Item) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = itemMap(it)
	}
	return out
}

func itemMap(it ir.Item) map[string]any {
	m := map[string]any{"id": string(it.ID)}
	optional := map[string]string{
		"title":       it.Title,
		"date":        it.Date,
		"end_date":    it.EndDate,
		"time":        it.Time,
		"category_id": it.CategoryID,
		"venue_id":    it.VenueID,
		"series_id":   it.SeriesID,
		"festival_id": it.FestivalID,
	}
	for k, v := range optional {
		if v != "" {
			m[k] = v
		}
	}
	if it.AllDay {
		m["is_all_day"] = true
	}
	return m
}

// Render writes the display tree as indented text, one node per line.
func Render(buckets []DateBucket) string {
	var sb strings.Builder
	for _, b := range buckets {
		date := b.Date
		if date == "" {
			date = "(undated)"
		}
		sb.WriteString(date)
		sb.WriteByte('\n')
		for _, p := range b.Periods {
			fmt.Fprintf(&sb, "  %s\n", p.Period)
			for _, n := range p.Nodes {
				renderNode(&sb, n)
			}
		}
	}
	return sb.String()
}

func renderNode(sb *strings.Builder, n ir.DisplayItem) {
	if n.Kind == ir.KindSingle && n.Item != nil {
		fmt.Fprintf(sb, "    %s %s\n", n.Key(), clockTitle(*n.Item))
		return
	}
	fmt.Fprintf(sb, "    %s (%d)\n", n.Key(), n.Len())
	if n.Kind == ir.KindFestival && n.Festival != nil {
		f := n.Festival
		fmt.Fprintf(sb, "      %s..%s venues=%d programs=%d sessions=%d\n",
			f.StartDate, f.EndDate, f.VenueCount, f.ProgramCount, f.SessionCount)
		return
	}
	if n.Kind == ir.KindSeries {
		for _, g := range n.VenueGroups {
			venue := g.VenueID
			if venue == "" {
				venue = "-"
			}
			fmt.Fprintf(sb, "      @%s\n", venue)
			for _, it := range g.Items {
				fmt.Fprintf(sb, "        - %s\n", itemLine(it))
			}
		}
		return
	}
	for _, it := range n.Items {
		fmt.Fprintf(sb, "      - %s\n", itemLine(it))
	}
}

func itemLine(it ir.Item) string {
	return string(it.ID) + " " + clockTitle(it)
}

func clockTitle(it ir.Item) string {
	line := it.Time
	if line == "" {
		line = "--:--"
	}
	if it.Title != "" {
		line += " " + it.Title
	}
	return line
}
