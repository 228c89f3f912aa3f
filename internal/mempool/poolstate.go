package mempool

import "sync"

// PoolState is the single mutable cell tracking whether the mempool has
// finished replaying history up to the chain tip. Block production (C6)
// must not draw from a mempool that is still speculating against a
// stale backing snapshot.
type PoolState struct {
	mu                      sync.Mutex
	completedInitialSyncing bool
}

func newPoolState() *PoolState { return &PoolState{} }

// SetCompletedInitialSyncing marks the mempool as caught up with the
// chain tip.
func (s *PoolState) SetCompletedInitialSyncing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completedInitialSyncing = true
}

// CompletedInitialSyncing reports whether SetCompletedInitialSyncing has
// been called.
func (s *PoolState) CompletedInitialSyncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedInitialSyncing
}
