package producer

import (
	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/gwcrypto"
)

// CBMTProofPath returns the sibling path proving that hashes[index] is
// the leaf at that position in the tree merkleRootOf(hashes) commits
// to. A challenge context builder uses this to prove a withdrawal or
// transaction's witness hash is included at a specific index of a
// block's witness root.
func CBMTProofPath(hashes []common.Hash, index int) []common.Hash {
	if len(hashes) == 0 || index < 0 || index >= len(hashes) {
		return nil
	}
	level := make([]common.Hash, len(hashes))
	copy(level, hashes)
	idx := index
	var path []common.Hash
	for len(level) > 1 {
		if idx%2 == 0 {
			if idx+1 < len(level) {
				path = append(path, level[idx+1])
			} else {
				path = append(path, level[idx])
			}
		} else {
			path = append(path, level[idx-1])
		}

		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, common.Hash(gwcrypto.SMTBranchHash([32]byte(level[i]), [32]byte(level[i+1]))))
			} else {
				next = append(next, common.Hash(gwcrypto.SMTBranchHash([32]byte(level[i]), [32]byte(level[i]))))
			}
		}
		level = next
		idx /= 2
	}
	return path
}

// CBMTVerify recomputes a merkleRootOf-style root from leaf, its
// index, and proof, and reports whether it matches root.
func CBMTVerify(root, leaf common.Hash, index int, proof []common.Hash) bool {
	cur := leaf
	idx := index
	for _, sib := range proof {
		if idx%2 == 0 {
			cur = common.Hash(gwcrypto.SMTBranchHash([32]byte(cur), [32]byte(sib)))
		} else {
			cur = common.Hash(gwcrypto.SMTBranchHash([32]byte(sib), [32]byte(cur)))
		}
		idx /= 2
	}
	return cur == root
}
