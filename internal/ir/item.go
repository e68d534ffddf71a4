package ir

import (
	"strconv"
	"strings"
)

// ItemID is the stable identity of an item.
// Numeric backend ids are carried as their decimal string.
type ItemID string

// Item is one time-stamped listing (event, series occurrence, festival session).
//
// Items are immutable once fetched: the engine never mutates one in place,
// a refetch replaces it wholesale.
type Item struct {
	ID         ItemID `json:"id" yaml:"id"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	Date       string `json:"date" yaml:"date"`                             // YYYY-MM-DD
	EndDate    string `json:"end_date,omitempty" yaml:"end_date,omitempty"` // YYYY-MM-DD, multi-day items only
	Time       string `json:"time,omitempty" yaml:"time,omitempty"`         // HH:MM or HH:MM:SS, empty when unknown
	CategoryID string `json:"category_id,omitempty" yaml:"category_id,omitempty"`
	VenueID    string `json:"venue_id,omitempty" yaml:"venue_id,omitempty"`
	SeriesID   string `json:"series_id,omitempty" yaml:"series_id,omitempty"`
	FestivalID string `json:"festival_id,omitempty" yaml:"festival_id,omitempty"`
	AllDay     bool   `json:"is_all_day,omitempty" yaml:"is_all_day,omitempty"`
}

// Page is one page of results as returned by the backend.
type Page struct {
	Number  int
	Items   []Item
	HasMore bool
}

// CompareIDs orders item identities.
//
// Numeric ids compare numerically and sort before non-numeric ids;
// everything else compares bytewise. Returns -1, 0 or 1.
func CompareIDs(a, b ItemID) int {
	an, aErr := strconv.ParseInt(string(a), 10, 64)
	bn, bErr := strconv.ParseInt(string(b), 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(string(a), string(b))
}

// SortTime returns the time-of-day sort key of the item.
// Missing times yield the empty string, which sorts before any clock time.
func (it Item) SortTime() string {
	return NormalizeClock(it.Time)
}

// NormalizeClock pads a clock string to HH:MM:SS so that clock values
// compare correctly as strings. Unparseable values yield "".
func NormalizeClock(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ""
	}
	out := make([]string, 3)
	for i := range out {
		v := 0
		if i < len(parts) {
			n, err := strconv.Atoi(parts[i])
			if err != nil || n < 0 {
				return ""
			}
			v = n
		}
		if (i == 0 && v > 23) || (i > 0 && v > 59) {
			return ""
		}
		out[i] = pad2(v)
	}
	return strings.Join(out, ":")
}

// ClockHour returns the hour component of a clock string.
// ok is false when the clock is missing or malformed.
func ClockHour(s string) (hour int, ok bool) {
	n := NormalizeClock(s)
	if n == "" {
		return 0, false
	}
	h, err := strconv.Atoi(n[:2])
	if err != nil {
		return 0, false
	}
	return h, true
}

func pad2(v int) string {
	if v < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}
