package ir

// NodeKind tags the variant of a DisplayItem.
type NodeKind string

const (
	KindSingle   NodeKind = "single"
	KindVenue    NodeKind = "venue"
	KindCategory NodeKind = "category"
	KindSeries   NodeKind = "series"
	KindFestival NodeKind = "festival"
)

// DisplayItem is one node of the display tree.
//
// Exactly the fields of its Kind are populated:
//   - single:   Item
//   - venue:    VenueID, Items
//   - category: CategoryID, Items
//   - series:   SeriesID, VenueGroups
//   - festival: FestivalID, Festival, Items
type DisplayItem struct {
	Kind        NodeKind         `json:"kind"`
	Item        *Item            `json:"item,omitempty"`
	VenueID     string           `json:"venue_id,omitempty"`
	CategoryID  string           `json:"category_id,omitempty"`
	SeriesID    string           `json:"series_id,omitempty"`
	FestivalID  string           `json:"festival_id,omitempty"`
	Items       []Item           `json:"items,omitempty"`
	VenueGroups []VenueGroup     `json:"venue_groups,omitempty"`
	Festival    *FestivalSummary `json:"festival,omitempty"`
}

// VenueGroup is the per-venue slice of a series rollup.
type VenueGroup struct {
	VenueID string `json:"venue_id"`
	Items   []Item `json:"items"`
}

// FestivalSummary describes a collapsed festival program.
type FestivalSummary struct {
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	VenueCount   int    `json:"venue_count"`
	ProgramCount int    `json:"program_count"`
	SessionCount int    `json:"session_count"`
}

// Single wraps an item as a display node.
func Single(it Item) DisplayItem {
	cp := it
	return DisplayItem{Kind: KindSingle, Item: &cp}
}

// Key returns the stable identity the renderer uses to key this node.
func (d DisplayItem) Key() string {
	switch d.Kind {
	case KindSingle:
		if d.Item == nil {
			return string(KindSingle) + ":"
		}
		return string(KindSingle) + ":" + string(d.Item.ID)
	case KindVenue:
		return string(KindVenue) + ":" + d.VenueID
	case KindCategory:
		return string(KindCategory) + ":" + d.CategoryID
	case KindSeries:
		return string(KindSeries) + ":" + d.SeriesID
	case KindFestival:
		return string(KindFestival) + ":" + d.FestivalID
	}
	return string(d.Kind)
}

// Members returns every item the node stands for, in display order.
func (d DisplayItem) Members() []Item {
	switch d.Kind {
	case KindSingle:
		if d.Item == nil {
			return nil
		}
		return []Item{*d.Item}
	case KindSeries:
		var out []Item
		for _, g := range d.VenueGroups {
			out = append(out, g.Items...)
		}
		return out
	}
	return d.Items
}

// Len returns the number of items the node stands for.
func (d DisplayItem) Len() int {
	return len(d.Members())
}

// EarliestTime returns the node's representative time: the minimum
// normalized clock of its members. Missing times sort first, so any member
// without a time makes the representative time empty. A festival is
// represented by its sessions on the start date.
func (d DisplayItem) EarliestTime() string {
	members := d.Members()
	if d.Kind == KindFestival && d.Festival != nil {
		var opening []Item
		for _, it := range members {
			if it.Date == d.Festival.StartDate {
				opening = append(opening, it)
			}
		}
		if len(opening) > 0 {
			members = opening
		}
	}
	if len(members) == 0 {
		return ""
	}
	min := members[0].SortTime()
	for _, it := range members[1:] {
		if t := it.SortTime(); t < min {
			min = t
		}
	}
	return min
}
