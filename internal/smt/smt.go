// Package smt implements a depth-256 sparse Merkle tree: recursive
// left/right nodes, MSB-first bit traversal, and depth-first sibling
// collection for proofs, keyed directly by 32-byte domain hashes and
// re-hashed with blake2b under explicit branch/leaf domain separation
// (gwcrypto.SMTBranchHash / SMTLeafHash), with compiled proofs that
// cover a multi-key batch rather than one key at a time.
package smt

import (
	"errors"
	"sort"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/gwcrypto"
)

// Depth is the fixed tree depth: one bit of the 256-bit key per level.
const Depth = 256

// ErrProofInvalid is returned by Verify when a compiled proof does not
// recompute to the expected root.
var ErrProofInvalid = errors.New("smt: merkle proof verification failed")

// zeroHashes[d] is the root hash of a fully-empty subtree of depth d,
// where d counts levels remaining below the current node (0 = a bare
// leaf slot, Depth = the whole tree). Precomputed once.
var zeroHashes = computeZeroHashes()

func computeZeroHashes() []common.Hash {
	z := make([]common.Hash, Depth+1)
	z[0] = common.ZeroHash // an absent leaf hashes to the zero sentinel
	for d := 1; d <= Depth; d++ {
		h := gwcrypto.SMTBranchHash([32]byte(z[d-1]), [32]byte(z[d-1]))
		z[d] = common.Hash(h)
	}
	return z
}

// node is an internal or leaf tree node, held in memory with
// structural sharing: unmodified subtrees are never copied, only
// replaced pointer-wise on the path from the root.
type node struct {
	left, right *node // nil on a leaf
	isLeaf      bool
	key         common.Hash // full key, only meaningful on a leaf
	value       common.Hash // full value, only meaningful on a leaf (never zero: zero means absent/deleted)
}

// Tree is an in-memory depth-256 sparse Merkle tree. The zero value is
// a valid, empty tree.
type Tree struct {
	root *node
}

// New returns a new, empty tree.
func New() *Tree {
	return &Tree{}
}

// Root returns the tree's current root hash.
func (t *Tree) Root() common.Hash {
	return hashOf(t.root, Depth)
}

func leafHash(key, value common.Hash) common.Hash {
	return common.Hash(gwcrypto.SMTLeafHash([32]byte(key), [32]byte(value)))
}

func branchHash(left, right common.Hash) common.Hash {
	return common.Hash(gwcrypto.SMTBranchHash([32]byte(left), [32]byte(right)))
}

func hashOf(n *node, depthRemaining int) common.Hash {
	if n == nil {
		return zeroHashes[depthRemaining]
	}
	if n.isLeaf {
		return common.Hash(gwcrypto.SMTLeafHash([32]byte(n.key), [32]byte(n.value)))
	}
	l := hashOf(n.left, depthRemaining-1)
	r := hashOf(n.right, depthRemaining-1)
	return common.Hash(gwcrypto.SMTBranchHash([32]byte(l), [32]byte(r)))
}

// Get returns the value stored at key, or common.ZeroHash if absent —
// "absent is zero" is the protocol convention.
func (t *Tree) Get(key common.Hash) common.Hash {
	n := t.root
	for depth := 0; n != nil; depth++ {
		if n.isLeaf {
			if n.key == key {
				return n.value
			}
			return common.ZeroHash
		}
		if bitAt(key, depth) == 0 {
			n = n.left
		} else {
			n = n.right
		}
	}
	return common.ZeroHash
}

// Update sets key to value. Setting value to common.ZeroHash deletes
// the key.
func (t *Tree) Update(key, value common.Hash) {
	if value == common.ZeroHash {
		t.root = deleteKey(t.root, key, 0)
		return
	}
	t.root = insertKey(t.root, key, value, 0)
}

// UpdateAll applies a batch of updates, the shape the block producer
// uses when finalising a tx/deposit/withdrawal's writes at once.
func (t *Tree) UpdateAll(kvs map[common.Hash]common.Hash) {
	keys := make([]common.Hash, 0, len(kvs))
	for k := range kvs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessHash(keys[i], keys[j]) })
	for _, k := range keys {
		t.Update(k, kvs[k])
	}
}

func insertKey(n *node, key, value common.Hash, depth int) *node {
	if n == nil {
		return &node{isLeaf: true, key: key, value: value}
	}
	if n.isLeaf {
		if n.key == key {
			return &node{isLeaf: true, key: key, value: value}
		}
		// Split: push the existing leaf down alongside the new one.
		split := &node{}
		if bitAt(n.key, depth) == 0 {
			split.left = insertKey(nil, n.key, n.value, depth+1)
		} else {
			split.right = insertKey(nil, n.key, n.value, depth+1)
		}
		return insertKey(split, key, value, depth)
	}
	out := &node{left: n.left, right: n.right}
	if bitAt(key, depth) == 0 {
		out.left = insertKey(n.left, key, value, depth+1)
	} else {
		out.right = insertKey(n.right, key, value, depth+1)
	}
	return out
}

func deleteKey(n *node, key common.Hash, depth int) *node {
	if n == nil {
		return nil
	}
	if n.isLeaf {
		if n.key == key {
			return nil
		}
		return n
	}
	out := &node{left: n.left, right: n.right}
	if bitAt(key, depth) == 0 {
		out.left = deleteKey(n.left, key, depth+1)
	} else {
		out.right = deleteKey(n.right, key, depth+1)
	}
	// Collapse a branch with a single remaining leaf child back into a leaf.
	if out.left == nil && out.right != nil && out.right.isLeaf {
		return out.right
	}
	if out.right == nil && out.left != nil && out.left.isLeaf {
		return out.left
	}
	if out.left == nil && out.right == nil {
		return nil
	}
	return out
}

func bitAt(h common.Hash, depth int) byte {
	byteIdx := depth / 8
	bitIdx := 7 - uint(depth%8)
	return (h[byteIdx] >> bitIdx) & 1
}

func lessHash(a, b common.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
