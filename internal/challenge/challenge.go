// Package challenge builds the three per-target witnesses (withdrawal,
// tx-signature, tx-execution) and the revert context a defender
// submits to a Layer-1 rollup contract to contest a challenge, by
// replaying just enough of a produced block against a historical
// account-tree snapshot to reach the disputed step. Grounded on the
// proof-generator shape of rollup/fraud_proof.go, rollup/cross_layer_proof.go,
// and rollup/state_proof.go: a typed proof struct, a generator built
// from live state, and the sentinel error taxonomy a malformed request
// surfaces.
package challenge

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/generator"
	"github.com/godwokenrises/godwoken-sub002/internal/gwcrypto"
	"github.com/godwokenrises/godwoken-sub002/internal/kv"
	"github.com/godwokenrises/godwoken-sub002/internal/producer"
	"github.com/godwokenrises/godwoken-sub002/internal/smt"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// Sentinel errors a caller can match on when a witness cannot be built.
var (
	ErrTargetIndexOutOfRange = errors.New("challenge: target index out of range")
)

// Builder builds witnesses by replaying a block's own components
// against a tree forked from a historical snapshot, through the same
// Producer/Generator that originally produced the block, never
// touching the live tree the rest of the node keeps advancing.
type Builder struct {
	prod *producer.Producer
	gen  *generator.Generator
}

// NewBuilder returns a Builder replaying deposits/withdrawals through
// prod and transactions through gen.
func NewBuilder(prod *producer.Producer, gen *generator.Generator) *Builder {
	return &Builder{prod: prod, gen: gen}
}

// BlockWitnessInput bundles a produced block's own content together
// with the account-tree state as it stood immediately before the
// block (RawBlock.PrevAccount) — the last state a Layer-1 validator
// already trusts when judging a challenge against this block.
type BlockWitnessInput struct {
	Raw            common.RawBlock
	Deposits       []common.Deposit
	Withdrawals    []common.WithdrawalRequest
	Txs            []common.RawL2Transaction
	MaxCyclesPerTx uint64

	PreBlock             smt.Snapshot
	PreBlockAccountCount uint32
}

// KVStateProof is the minimal key/value set plus compiled Merkle proof
// a Layer-1 validator needs to independently recompute a small slice
// of the account tree's root, without trusting this node's full state.
type KVStateProof struct {
	Keys   []common.Hash
	Values []common.Hash
	Proof  *smt.CompiledProof
}

// Verify reports whether p's keys/values recompute to root under p's
// compiled proof — the self-check a defender runs before submitting a
// witness it built, and the check a test runs in place of an on-chain
// validator script.
func (p KVStateProof) Verify(root common.Hash) (bool, error) {
	leaves := make([]smt.KeyValue, len(p.Keys))
	for i := range p.Keys {
		leaves[i] = smt.KeyValue{Key: p.Keys[i], Value: p.Values[i]}
	}
	return smt.Verify(root, p.Proof, leaves)
}

// buildKVStateProof compiles a proof for exactly the given keys
// against tree's current root, in a canonical (sorted, deduplicated)
// order matching smt.MerkleProof's own leaf ordering.
func buildKVStateProof(tree *smt.Tree, keys []common.Hash) KVStateProof {
	uniq := dedupeSortedHashes(keys)
	values := make([]common.Hash, len(uniq))
	for i, k := range uniq {
		values[i] = tree.Get(k)
	}
	return KVStateProof{Keys: uniq, Values: values, Proof: tree.MerkleProof(uniq)}
}

func dedupeSortedHashes(keys []common.Hash) []common.Hash {
	seen := make(map[common.Hash]struct{}, len(keys))
	out := make([]common.Hash, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// witnessHashFn matches the hash producer.go feeds WithdrawalRequest
// and RawL2Transaction's WitnessHash/Hash methods.
func witnessHashFn(b []byte) common.Hash { return common.Hash(gwcrypto.WitnessHash(b)) }

// replayDepositsAndWithdrawals forks a tree from in.PreBlock and
// replays every deposit, then every withdrawal, landing on the state a
// transaction's pre-checkpoint builds from. The tree is returned
// alongside the RawState wrapping it, since RawState keeps no exported
// accessor to the tree a compiled proof needs directly.
func (b *Builder) replayDepositsAndWithdrawals(txn kv.Txn, in BlockWitnessInput) (*state.RawState, *smt.Tree, error) {
	tree := smt.At(in.PreBlock)
	s := state.NewRawState(txn, tree, in.PreBlockAccountCount, in.Raw.Number)

	for i, d := range in.Deposits {
		if err := b.prod.ApplyDeposit(s, d); err != nil {
			return nil, nil, fmt.Errorf("challenge: replaying deposit %d: %w", i, err)
		}
	}
	for i, w := range in.Withdrawals {
		if err := b.prod.ApplyWithdrawal(s, w); err != nil {
			return nil, nil, fmt.Errorf("challenge: replaying withdrawal %d: %w", i, err)
		}
	}
	return s, tree, nil
}

// replayToTx resolves the pre-checkpoint for in.Txs[txIndex]: the
// state after every deposit, every withdrawal, and every earlier
// transaction of the same block, with tracker (if non-nil) attached so
// the target transaction's own replay records every raw key it reads
// or writes.
func (b *Builder) replayToTx(txn kv.Txn, in BlockWitnessInput, txIndex uint32, tracker *state.Tracker) (*state.RawState, *smt.Tree, error) {
	if int(txIndex) >= len(in.Txs) {
		return nil, nil, fmt.Errorf("%w: tx %d", ErrTargetIndexOutOfRange, txIndex)
	}

	s, tree, err := b.replayDepositsAndWithdrawals(txn, in)
	if err != nil {
		return nil, nil, err
	}
	for i := uint32(0); i < txIndex; i++ {
		if _, err := b.gen.ExecuteTransaction(generator.BlockInfo{
			Number:        in.Raw.Number,
			TimestampMs:   in.Raw.TimestampMs,
			BlockProducer: in.Raw.BlockProducer,
		}, s, in.Txs[i], in.MaxCyclesPerTx); err != nil {
			return nil, nil, fmt.Errorf("challenge: replaying tx %d while resolving tx %d's checkpoint: %w", i, txIndex, err)
		}
	}
	if tracker != nil {
		s.SetTracker(tracker)
	}
	return s, tree, nil
}
