package challenge

import (
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/smt"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// RevertedMarker is the leaf value a reverted-block tree records for a
// reverted block's hash; any non-zero value means "present". Matches
// the marker chain.Synchroniser's revertedTree records.
var RevertedMarker = common.Hash{0: 1}

// RevertContext is what a defender submits to justify an L1 revert
// transaction: proof that the reverted blocks currently sit on the
// main chain at their own slots, and proof that those same blocks now
// resolve in the reverted-block tree instead. Distinct from
// chain.RevertContext, the L1 action context that merely names which
// block numbers a revert transaction erased; this is the witness
// bundle built to justify that action.
type RevertContext struct {
	RevertedBlockNumbers  []uint64
	MainChainProof        KVStateProof
	RevertedProof         KVStateProof
	PostRevertedBlockRoot common.Hash
}

// BuildRevertContext proves a set of reverted blocks (sorted by
// number, strictly ascending; any other order is rejected): blockHashes, keyed by state.BlockNumberKey(number), is
// the block-hashes tree as it stood before the revert; revertedTree,
// keyed by the block's own hash, is the reverted-block tree as it
// stands after the revert recorded those hashes into it.
func BuildRevertContext(blockHashes, revertedTree *smt.Tree, numbers []uint64) (*RevertContext, error) {
	if len(numbers) == 0 {
		return nil, fmt.Errorf("challenge: revert context needs at least one block number")
	}
	for i := 1; i < len(numbers); i++ {
		if numbers[i] <= numbers[i-1] {
			return nil, fmt.Errorf("challenge: revert context block numbers must be strictly ascending, got %v", numbers)
		}
	}

	slotKeys := make([]common.Hash, len(numbers))
	for i, n := range numbers {
		slotKeys[i] = state.BlockNumberKey(n)
	}
	mainProof := buildKVStateProof(blockHashes, slotKeys)

	blockHashKeys := make([]common.Hash, len(mainProof.Keys))
	for i, v := range mainProof.Values {
		if v.IsZero() {
			return nil, fmt.Errorf("challenge: block %d is absent from the main chain it is supposed to be reverted from", numbers[i])
		}
		blockHashKeys[i] = v
	}
	revertedProof := buildKVStateProof(revertedTree, blockHashKeys)
	for i, v := range revertedProof.Values {
		if v != RevertedMarker {
			return nil, fmt.Errorf("challenge: block hash %s is not recorded in the reverted-block tree", revertedProof.Keys[i])
		}
	}

	return &RevertContext{
		RevertedBlockNumbers:  numbers,
		MainChainProof:        mainProof,
		RevertedProof:         revertedProof,
		PostRevertedBlockRoot: revertedTree.Root(),
	}, nil
}

// VerifyRevertContext checks rc's main-chain proof opens against
// preRevertBlockHashesRoot, that each resulting block hash is exactly
// the reverted proof's key set (binding the two proofs to the same
// blocks), and that the reverted proof opens against
// rc.PostRevertedBlockRoot with every value equal to RevertedMarker.
func VerifyRevertContext(rc *RevertContext, preRevertBlockHashesRoot common.Hash) (bool, error) {
	ok, err := rc.MainChainProof.Verify(preRevertBlockHashesRoot)
	if err != nil || !ok {
		return ok, err
	}
	if len(rc.MainChainProof.Values) != len(rc.RevertedProof.Keys) {
		return false, nil
	}
	wantHashes := make(map[common.Hash]struct{}, len(rc.MainChainProof.Values))
	for _, v := range rc.MainChainProof.Values {
		wantHashes[v] = struct{}{}
	}
	for i, k := range rc.RevertedProof.Keys {
		if _, ok := wantHashes[k]; !ok {
			return false, nil
		}
		if rc.RevertedProof.Values[i] != RevertedMarker {
			return false, nil
		}
	}
	return rc.RevertedProof.Verify(rc.PostRevertedBlockRoot)
}
