package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/feedsync/internal/ir"
)

// FetchCall records one FetchPage invocation.
type FetchCall struct {
	FilterKey string
	Page      int
}

type scripted struct {
	page ir.Page
	err  error
}

// ScriptedFetcher answers FetchPage from per-page FIFO scripts.
//
// Implements engine.Fetcher.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ScriptedFetcher struct {
	mu      sync.Mutex
	scripts map[int][]scripted
	calls   []FetchCall
}

// NewScriptedFetcher creates a fetcher with no scripts.
func NewScriptedFetcher() *ScriptedFetcher {
	return &ScriptedFetcher{scripts: make(map[int][]scripted)}
}

// Respond queues a successful response for page.
func (f *ScriptedFetcher) Respond(page int, items []ir.Item, hasMore bool) *ScriptedFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[page] = append(f.scripts[page], scripted{
		page: ir.Page{Number: page, Items: items, HasMore: hasMore},
	})
	return f
}

// Fail queues a failure for page.
func (f *ScriptedFetcher) Fail(page int, err error) *ScriptedFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[page] = append(f.scripts[page], scripted{err: err})
	return f
}

// FetchPage pops the next script for page. An unscripted page is an error.
func (f *ScriptedFetcher) FetchPage(ctx context.Context, filter ir.Filter, page int) (ir.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, FetchCall{FilterKey: filter.Key(), Page: page})

	queue := f.scripts[page]
	if len(queue) == 0 {
		return ir.Page{}, fmt.Errorf("no scripted response for page %d", page)
	}
	next := queue[0]
	f.scripts[page] = queue[1:]
	return next.page, next.err
}

// Calls returns every FetchPage invocation in order.
func (f *ScriptedFetcher) Calls() []FetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FetchCall(nil), f.calls...)
}

// CallCount returns the number of FetchPage invocations.
func (f *ScriptedFetcher) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Remaining returns the number of unconsumed scripts across all pages.
func (f *ScriptedFetcher) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, q := range f.scripts {
		n += len(q)
	}
	return n
}
