package testutil

import "sync"

// InlineSpawner runs each fetch synchronously on the caller's goroutine.
// With Controller.Drain this makes a whole fetch round trip deterministic.
//
// Implements engine.Spawner.
type InlineSpawner struct{}

// Go runs f immediately.
func (InlineSpawner) Go(f func()) {
	f()
}

// ManualSpawner holds fetches until the test releases them, which lets a
// test interleave responses with filter changes.
//
// Implements engine.Spawner.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualSpawner struct {
	mu      sync.Mutex
	pending []func()
}

// NewManualSpawner creates an empty spawner.
func NewManualSpawner() *ManualSpawner {
	return &ManualSpawner{}
}

// Go holds f until RunNext or RunAll.
func (s *ManualSpawner) Go(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, f)
}

// Pending returns the number of held fetches.
func (s *ManualSpawner) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// RunNext releases the oldest held fetch. Returns false if none is held.
func (s *ManualSpawner) RunNext() bool {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return false
	}
	f := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()

	f()
	return true
}

// RunAll releases held fetches in order until none remain.
// Returns the number released.
func (s *ManualSpawner) RunAll() int {
	n := 0
	for s.RunNext() {
		n++
	}
	return n
}
