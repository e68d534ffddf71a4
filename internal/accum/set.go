// Package accum holds the visible set: the deduplicated, insertion-ordered,
// capped collection of items accumulated for one filter generation.
package accum

import "github.com/roach88/feedsync/internal/ir"

// DefaultCap is the maximum number of items kept visible.
const DefaultCap = 500

// Set is an insertion-ordered mapping from item identity to item,
// bounded by a hard cap.
//
// Set is not safe for concurrent use. It is owned by the scroll controller's
// loop goroutine; readers get copies via Items.
type Set struct {
	cap   int
	order []ir.ItemID
	byID  map[ir.ItemID]ir.Item
}

// New creates an empty set. A non-positive cap selects DefaultCap.
func New(cap int) *Set {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Set{
		cap:  cap,
		byID: make(map[ir.ItemID]ir.Item),
	}
}

// Merge appends the items whose identity is not yet present, in received
// order, then truncates to the cap. Earliest-merged items are kept; the
// newest tail is dropped.
//
// Returns the number of items added and the number dropped by the cap.
// Merging the same page twice adds nothing.
func (s *Set) Merge(items []ir.Item) (added, dropped int) {
	for _, it := range items {
		if _, ok := s.byID[it.ID]; ok {
			continue
		}
		if len(s.order) >= s.cap {
			dropped++
			continue
		}
		s.byID[it.ID] = it
		s.order = append(s.order, it.ID)
		added++
	}
	return added, dropped
}

// Reset replaces the contents wholesale with seed, truncated to the cap.
func (s *Set) Reset(seed []ir.Item) {
	s.order = nil
	s.byID = make(map[ir.ItemID]ir.Item, len(seed))
	s.Merge(seed)
}

// Len returns the number of visible items.
func (s *Set) Len() int { return len(s.order) }

// Cap returns the configured cap.
func (s *Set) Cap() int { return s.cap }

// Full reports whether the cap has been reached.
func (s *Set) Full() bool { return len(s.order) >= s.cap }

// Contains reports whether an item with this identity is visible.
func (s *Set) Contains(id ir.ItemID) bool {
	_, ok := s.byID[id]
	return ok
}

// Items returns a snapshot of the visible items in first-seen order.
func (s *Set) Items() []ir.Item {
	out := make([]ir.Item, len(s.order))
	for i, id := range s.order {
		out[i] = s.byID[id]
	}
	return out
}

// Merge is the pure form of Set.Merge: it returns a new slice holding
// existing followed by the unseen incoming items, truncated to cap.
// existing is assumed duplicate-free.
func Merge(existing, incoming []ir.Item, cap int) []ir.Item {
	s := New(cap)
	s.Merge(existing)
	s.Merge(incoming)
	return s.Items()
}
