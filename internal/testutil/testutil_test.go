package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/feedsync/internal/ir"
)

func TestManualScheduler_FiresInDeadlineOrder(t *testing.T) {
	s := NewManualScheduler()
	var fired []string

	s.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	s.AfterFunc(1*time.Second, func() { fired = append(fired, "a") })
	s.AfterFunc(5*time.Second, func() { fired = append(fired, "c") })

	assert.Equal(t, 0, s.Advance(999*time.Millisecond))
	assert.Equal(t, 2, s.Advance(time.Second+time.Millisecond))
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, 2*time.Second, s.Now())

	d, ok := s.NextDue()
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, d)
}

func TestManualScheduler_Stop(t *testing.T) {
	s := NewManualScheduler()
	called := false
	stop := s.AfterFunc(time.Second, func() { called = true })

	assert.True(t, stop())
	assert.False(t, stop(), "second stop reports nothing pending")
	s.Advance(time.Hour)
	assert.False(t, called)

	_, ok := s.NextDue()
	assert.False(t, ok)
}

func TestManualScheduler_NestedScheduling(t *testing.T) {
	s := NewManualScheduler()
	var fired []time.Duration

	s.AfterFunc(time.Second, func() {
		fired = append(fired, s.Now())
		s.AfterFunc(time.Second, func() { fired = append(fired, s.Now()) })
	})

	assert.Equal(t, 2, s.Advance(3*time.Second))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, fired)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, s.Scheduled())
}

func TestManualSpawner_HoldsUntilReleased(t *testing.T) {
	s := NewManualSpawner()
	var order []int
	s.Go(func() { order = append(order, 1) })
	s.Go(func() { order = append(order, 2) })

	assert.Equal(t, 2, s.Pending())
	assert.Empty(t, order)

	require.True(t, s.RunNext())
	assert.Equal(t, []int{1}, order)
	assert.Equal(t, 1, s.RunAll())
	assert.Equal(t, []int{1, 2}, order)
	assert.False(t, s.RunNext())
}

func TestInlineSpawner_RunsImmediately(t *testing.T) {
	ran := false
	InlineSpawner{}.Go(func() { ran = true })
	assert.True(t, ran)
}

func TestScriptedFetcher(t *testing.T) {
	boom := errors.New("boom")
	f := NewScriptedFetcher().
		Respond(1, []ir.Item{{ID: "1"}}, true).
		Fail(2, boom).
		Respond(2, []ir.Item{{ID: "2"}}, false)

	ctx := context.Background()
	filter := ir.Filter{"venue": {"7"}}

	p, err := f.FetchPage(ctx, filter, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Number)
	assert.True(t, p.HasMore)

	_, err = f.FetchPage(ctx, filter, 2)
	assert.ErrorIs(t, err, boom)

	p, err = f.FetchPage(ctx, filter, 2)
	require.NoError(t, err)
	assert.False(t, p.HasMore)

	_, err = f.FetchPage(ctx, filter, 3)
	assert.ErrorContains(t, err, "no scripted response for page 3")

	assert.Equal(t, 4, f.CallCount())
	assert.Equal(t, FetchCall{FilterKey: `{"venue":["7"]}`, Page: 1}, f.Calls()[0])
	assert.Equal(t, 0, f.Remaining())
}

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs("")
	assert.Equal(t, "req-1", g.Generate())
	assert.Equal(t, "req-2", g.Generate())
	g.Reset()
	assert.Equal(t, "req-1", g.Generate())
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	g := NewSequentialIDs("x")
	const n = 100

	var mu sync.Mutex
	seen := make(map[string]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := g.Generate()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}
