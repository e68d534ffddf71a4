package ir

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Filter describes what the user currently wants to see: the serialized
// query parameters of the feed request.
//
// Filters are compared by Key, never by map identity. Two filters with the
// same key describe the same logical result set.
type Filter map[string][]string

// ParseFilter builds a filter from "key=value" pairs. Repeated keys
// accumulate values.
func ParseFilter(pairs []string) (Filter, error) {
	f := Filter{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", p)
		}
		f[k] = append(f[k], strings.TrimSpace(v))
	}
	return f, nil
}

// Normalized returns a copy with sorted, de-duplicated value lists and
// empty keys removed.
func (f Filter) Normalized() Filter {
	out := make(Filter, len(f))
	for k, vs := range f {
		if k == "" || len(vs) == 0 {
			continue
		}
		cp := append([]string(nil), vs...)
		sort.Strings(cp)
		uniq := cp[:0]
		for i, v := range cp {
			if i > 0 && v == cp[i-1] {
				continue
			}
			uniq = append(uniq, v)
		}
		out[k] = uniq
	}
	return out
}

// Key returns the canonical encoding of the filter.
func (f Filter) Key() string {
	b, err := MarshalCanonical(map[string][]string(f.Normalized()))
	if err != nil {
		// Only strings reach the encoder; failure is impossible.
		panic(fmt.Sprintf("filter key: %v", err))
	}
	return string(b)
}

// Equal reports whether both filters describe the same result set.
func (f Filter) Equal(other Filter) bool {
	return f.Key() == other.Key()
}

// Values renders the filter as URL query values.
func (f Filter) Values() url.Values {
	v := url.Values{}
	for k, vs := range f.Normalized() {
		for _, s := range vs {
			v.Add(k, s)
		}
	}
	return v
}
