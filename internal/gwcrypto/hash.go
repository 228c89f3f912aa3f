// Package gwcrypto collects the hashing and signature primitives the
// rollup core needs: domain-separated blake2b for the SMT and script
// hashing, secp256k1 signer recovery for Layer-2 tx
// authentication, and BN254 curve operations for the syscall surface
// generator back-ends may invoke.
package gwcrypto

import (
	"golang.org/x/crypto/blake2b"
)

// Domain-separation personalization strings, one per distinct hashing
// use-site, so that no two logical hash domains can ever collide even
// on identical input bytes. Mirrors the "ckbhash" family of personals
// used by the CKB/Godwoken protocol this node implements.
var (
	domainSMTBranch    = []byte("ckb-smt-branch-01")
	domainSMTLeaf      = []byte("ckb-smt-leaf-0001")
	domainScriptHash   = []byte("ckb-script-hash01")
	domainCheckpoint   = []byte("ckb-checkpoint-01")
	domainWitnessHash  = []byte("ckb-witness-hash1")
	domainDefault      = []byte("ckb-default-hash1")
)

func sum(personal []byte, parts ...[]byte) [32]byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic("gwcrypto: blake2b.New256 failed: " + err.Error())
	}
	_, _ = h.Write(personal)
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Blake2b256 hashes data with the default (non-domain-bound) personal.
// Used where the caller supplies its own disambiguating prefix.
func Blake2b256(data []byte) [32]byte {
	return sum(domainDefault, data)
}

// SMTBranchHash hashes an SMT internal node: left child || right child.
func SMTBranchHash(left, right [32]byte) [32]byte {
	return sum(domainSMTBranch, left[:], right[:])
}

// SMTLeafHash hashes an SMT leaf: key || value.
func SMTLeafHash(key, value [32]byte) [32]byte {
	return sum(domainSMTLeaf, key[:], value[:])
}

// ScriptHash hashes a Script's canonical serialisation.
func ScriptHash(serialized []byte) [32]byte {
	return sum(domainScriptHash, serialized)
}

// CheckpointHash computes hash(state_root || account_count), the
// per-transaction checkpoint binding it
func CheckpointHash(stateRoot [32]byte, accountCount uint32) [32]byte {
	cb := []byte{byte(accountCount), byte(accountCount >> 8), byte(accountCount >> 16), byte(accountCount >> 24)}
	return sum(domainCheckpoint, stateRoot[:], cb)
}

// WitnessHash hashes an arbitrary witness payload (tx or withdrawal).
func WitnessHash(data []byte) [32]byte {
	return sum(domainWitnessHash, data)
}
