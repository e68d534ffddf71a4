package group

import "golang.org/x/text/cases"

// Default thresholds.
const (
	DefaultVenueThreshold    = 4
	DefaultCategoryThreshold = 5
	DefaultSeriesThreshold   = 2
)

// DefaultRollupCategories lists the categories that may collapse into a
// category rollup.
var DefaultRollupCategories = []string{
	"music",
	"comedy",
	"film",
	"theater",
	"art",
	"nightlife",
	"sports",
}

// Options are the fixed thresholds and allow-lists of the grouping engine.
// Group is a pure function of its input and these options.
type Options struct {
	VenueThreshold    int      `json:"venue_threshold" yaml:"venue_threshold"`
	CategoryThreshold int      `json:"category_threshold" yaml:"category_threshold"`
	RollupCategories  []string `json:"rollup_categories" yaml:"rollup_categories"`

	CollapseSeries    bool `json:"collapse_series" yaml:"collapse_series"`
	SeriesThreshold   int  `json:"series_threshold" yaml:"series_threshold"`
	CollapseFestivals bool `json:"collapse_festivals" yaml:"collapse_festivals"`
}

// DefaultOptions returns the reference thresholds with series and festival
// collapsing disabled.
func DefaultOptions() Options {
	return Options{
		VenueThreshold:    DefaultVenueThreshold,
		CategoryThreshold: DefaultCategoryThreshold,
		RollupCategories:  append([]string(nil), DefaultRollupCategories...),
		SeriesThreshold:   DefaultSeriesThreshold,
	}
}

// withDefaults fills zero thresholds. A nil allow-list selects the default
// list; an empty non-nil list disables category rollups.
func (o Options) withDefaults() Options {
	if o.VenueThreshold <= 0 {
		o.VenueThreshold = DefaultVenueThreshold
	}
	if o.CategoryThreshold <= 0 {
		o.CategoryThreshold = DefaultCategoryThreshold
	}
	if o.SeriesThreshold <= 0 {
		o.SeriesThreshold = DefaultSeriesThreshold
	}
	if o.RollupCategories == nil {
		o.RollupCategories = DefaultRollupCategories
	}
	return o
}

// categorySet folds the allow-list so matching ignores case.
func (o Options) categorySet() map[string]bool {
	fold := cases.Fold()
	set := make(map[string]bool, len(o.RollupCategories))
	for _, c := range o.RollupCategories {
		set[fold.String(c)] = true
	}
	return set
}

func foldCategory(c string) string {
	return cases.Fold().String(c)
}
