package state

import "github.com/godwokenrises/godwoken-sub002/internal/common"

// Tracker records every raw key touched (read or written) during a
// span of execution, for later use as the key set a challenge-context
// compiled Merkle proof must cover. A caller resets it between spans
// via Reset/Keys rather than scoping it to a single transaction.
type Tracker struct {
	touched map[common.Hash]struct{}
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{touched: make(map[common.Hash]struct{})}
}

func (t *Tracker) touch(key common.Hash) {
	t.touched[key] = struct{}{}
}

// Keys returns every distinct key touched since the last Reset, in no
// particular order; callers that need a deterministic compiled proof
// sort before passing to smt.MerkleProof.
func (t *Tracker) Keys() []common.Hash {
	out := make([]common.Hash, 0, len(t.touched))
	for k := range t.touched {
		out = append(out, k)
	}
	return out
}

// Reset clears the touched set, e.g. between transactions within one
// challenge-context build.
func (t *Tracker) Reset() {
	t.touched = make(map[common.Hash]struct{})
}
