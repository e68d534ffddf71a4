// Package ir provides the data model shared by the feed engine.
//
// This package contains value types only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Items are immutable values, replaced wholesale on refetch
//   - Filters compare by canonical key, never by map identity
//   - Display nodes are derived, never persisted
//   - All JSON tags use snake_case
package ir
