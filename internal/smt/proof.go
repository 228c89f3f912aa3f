package smt

import (
	"sort"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
)

// KeyValue is one leaf entry a compiled proof asserts, either present
// (Value != ZeroHash) or absent (Value == ZeroHash).
type KeyValue struct {
	Key   common.Hash
	Value common.Hash
}

// CompiledProof is the ordered list of sibling hashes a verifier
// consumes to recompute the root from a sorted batch of (key, value)
// leaves. Entries are emitted in the depth-first
// order the verifier's own recursive walk consumes them in, so no
// positional metadata beyond the key set itself is required. Every
// one-sided branch on the walk contributes one sibling, including a
// sibling equal to the empty-subtree hash for its depth; such siblings
// are not left out, so a proof's size grows with the number of levels
// walked even where the siblings are empty.
type CompiledProof struct {
	Siblings []common.Hash
}

// MerkleProof compiles a proof for the given set of keys against the
// tree's current state. Keys need not be sorted or unique on input.
func (t *Tree) MerkleProof(keys []common.Hash) *CompiledProof {
	uniq := dedupeSorted(keys)
	var siblings []common.Hash
	collectProof(t.root, uniq, Depth, &siblings)
	return &CompiledProof{Siblings: siblings}
}

func collectProof(n *node, keys []common.Hash, depthRemaining int, out *[]common.Hash) {
	if len(keys) == 0 {
		return
	}
	if depthRemaining == 0 {
		// A single target key has reached a leaf slot; nothing further
		// to reveal, the (key,value) pair itself is the leaf.
		return
	}
	depth := Depth - depthRemaining
	var left, right []common.Hash
	for _, k := range keys {
		if bitAt(k, depth) == 0 {
			left = append(left, k)
		} else {
			right = append(right, k)
		}
	}
	var leftNode, rightNode *node
	if n != nil {
		leftNode, rightNode = n.left, n.right
	}
	switch {
	case len(left) == 0:
		*out = append(*out, hashOf(leftNode, depthRemaining-1))
		collectProof(rightNode, right, depthRemaining-1, out)
	case len(right) == 0:
		*out = append(*out, hashOf(rightNode, depthRemaining-1))
		collectProof(leftNode, left, depthRemaining-1, out)
	default:
		collectProof(leftNode, left, depthRemaining-1, out)
		collectProof(rightNode, right, depthRemaining-1, out)
	}
}

// Verify checks that proof, together with the given (key,value) leaves,
// recomputes to root. Leaves need not be pre-sorted.
func Verify(root common.Hash, proof *CompiledProof, leaves []KeyValue) (bool, error) {
	sorted := append([]KeyValue(nil), leaves...)
	sort.Slice(sorted, func(i, j int) bool { return lessHash(sorted[i].Key, sorted[j].Key) })

	cursor := 0
	got, err := verifyWalk(sorted, Depth, proof.Siblings, &cursor)
	if err != nil {
		return false, err
	}
	if cursor != len(proof.Siblings) {
		return false, ErrProofInvalid
	}
	return got == root, nil
}

func verifyWalk(leaves []KeyValue, depthRemaining int, siblings []common.Hash, cursor *int) (common.Hash, error) {
	if len(leaves) == 0 {
		return zeroHashes[depthRemaining], nil
	}
	if depthRemaining == 0 {
		if len(leaves) != 1 {
			return common.Hash{}, ErrProofInvalid
		}
		leaf := leaves[0]
		if leaf.Value == common.ZeroHash {
			return common.ZeroHash, nil
		}
		return common.Hash(leafHash(leaf.Key, leaf.Value)), nil
	}
	depth := Depth - depthRemaining
	var left, right []KeyValue
	for _, l := range leaves {
		if bitAt(l.Key, depth) == 0 {
			left = append(left, l)
		} else {
			right = append(right, l)
		}
	}
	var leftHash, rightHash common.Hash
	var err error
	switch {
	case len(left) == 0:
		if *cursor >= len(siblings) {
			return common.Hash{}, ErrProofInvalid
		}
		leftHash = siblings[*cursor]
		*cursor++
		rightHash, err = verifyWalk(right, depthRemaining-1, siblings, cursor)
	case len(right) == 0:
		if *cursor >= len(siblings) {
			return common.Hash{}, ErrProofInvalid
		}
		rightHash = siblings[*cursor]
		*cursor++
		leftHash, err = verifyWalk(left, depthRemaining-1, siblings, cursor)
	default:
		leftHash, err = verifyWalk(left, depthRemaining-1, siblings, cursor)
		if err == nil {
			rightHash, err = verifyWalk(right, depthRemaining-1, siblings, cursor)
		}
	}
	if err != nil {
		return common.Hash{}, err
	}
	return branchHash(leftHash, rightHash), nil
}

func dedupeSorted(keys []common.Hash) []common.Hash {
	sorted := append([]common.Hash(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool { return lessHash(sorted[i], sorted[j]) })
	out := sorted[:0]
	for i, k := range sorted {
		if i == 0 || k != out[len(out)-1] {
			out = append(out, k)
		}
	}
	return out
}
