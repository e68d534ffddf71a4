package fetch

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/roach88/feedsync/internal/ir"
	"github.com/roach88/feedsync/internal/retry"
)

// Decode extracts a page from a response body.
//
// The items path must resolve to an array. has-more comes from the HasMore
// path when present, otherwise from a non-empty next link.
func Decode(body []byte, paths Paths) (ir.Page, error) {
	if !gjson.ValidBytes(body) {
		return ir.Page{}, &retry.DecodeError{Err: errors.New("body is not valid JSON")}
	}

	items := gjson.GetBytes(body, paths.Items)
	if !items.IsArray() {
		return ir.Page{}, &retry.DecodeError{Err: fmt.Errorf("path %q is not an array", paths.Items)}
	}

	var page ir.Page
	for i, raw := range items.Array() {
		it, err := decodeItem(raw)
		if err != nil {
			return ir.Page{}, &retry.DecodeError{Err: fmt.Errorf("item %d: %w", i, err)}
		}
		page.Items = append(page.Items, it)
	}

	if hm := gjson.GetBytes(body, paths.HasMore); hm.Exists() {
		page.HasMore = hm.Bool()
	} else if paths.NextLink != "" {
		page.HasMore = gjson.GetBytes(body, paths.NextLink).String() != ""
	}
	return page, nil
}

func decodeItem(raw gjson.Result) (ir.Item, error) {
	if !raw.IsObject() {
		return ir.Item{}, errors.New("not an object")
	}
	id, err := idString(raw.Get("id"))
	if err != nil {
		return ir.Item{}, err
	}

	return ir.Item{
		ID:         ir.ItemID(id),
		Title:      raw.Get("title").String(),
		Date:       raw.Get("date").String(),
		EndDate:    raw.Get("end_date").String(),
		Time:       raw.Get("time").String(),
		CategoryID: optString(raw.Get("category_id")),
		VenueID:    optString(raw.Get("venue_id")),
		SeriesID:   optString(raw.Get("series_id")),
		FestivalID: optString(raw.Get("festival_id")),
		AllDay:     raw.Get("is_all_day").Bool(),
	}, nil
}

// idString renders numeric ids as decimal strings.
func idString(r gjson.Result) (string, error) {
	switch r.Type {
	case gjson.Number:
		if n, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return strconv.FormatInt(n, 10), nil
		}
		return "", fmt.Errorf("id %s is not an integer", r.Raw)
	case gjson.String:
		if r.Str == "" {
			return "", errors.New("empty id")
		}
		return r.Str, nil
	}
	return "", errors.New("missing id")
}

// optString accepts foreign keys as strings or integers; null and absent
// both yield "".
func optString(r gjson.Result) string {
	switch r.Type {
	case gjson.Number:
		if n, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return strconv.FormatInt(n, 10)
		}
		return r.Raw
	case gjson.String:
		return r.Str
	}
	return ""
}
