package engine

import (
	"github.com/roach88/feedsync/internal/group"
	"github.com/roach88/feedsync/internal/ir"
)

// ScrollState is the controller's mutable state for one generation.
// Page is the highest page merged for the generation.
type ScrollState struct {
	Generation int64
	Filter     ir.Filter
	Page       int
	HasMore    bool
	Loading    bool
	Err        *FeedError
	RetryCount int

	// RetryPending is set while a backoff or manual-retry timer owns the
	// next fetch. Proximity signals are ignored until it fires.
	RetryPending bool
}

// Status is the projection consumed by loading indicators, error banners
// and end-of-results messaging.
type Status struct {
	Generation int64      `json:"generation"`
	Page       int        `json:"page"`
	Loading    bool       `json:"loading"`
	HasMore    bool       `json:"has_more"`
	Err        *FeedError `json:"-"`
	ErrKind    ErrorKind  `json:"error_kind,omitempty"`
	Error      string     `json:"error,omitempty"`
	RetryCount int        `json:"retry_count"`
	ItemCount  int        `json:"item_count"`
	CapReached bool       `json:"cap_reached"`
}

// View is a snapshot of everything a renderer needs.
type View struct {
	Status  Status             `json:"status"`
	Items   []ir.Item          `json:"items"`
	Buckets []group.DateBucket `json:"buckets"`
}
