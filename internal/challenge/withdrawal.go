package challenge

import (
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/kv"
	"github.com/godwokenrises/godwoken-sub002/internal/producer"
	"github.com/godwokenrises/godwoken-sub002/internal/smt"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// VerifyWithdrawalWitness is what a defender submits to contest a
// withdrawal-target challenge: proof that the named withdrawal sits at
// WithdrawalIndex of RawBlock's withdrawal-witness root, plus a
// minimal state proof resolving the withdrawer's script and nonce at
// the pre-block state.
type VerifyWithdrawalWitness struct {
	RawBlock        common.RawBlock
	WithdrawalIndex uint32
	Withdrawal      common.WithdrawalRequest
	WithdrawalProof []common.Hash
	KVStateProof    KVStateProof
}

// BuildWithdrawalWitness builds the witness for the withdrawal at
// index within in.Withdrawals. Per the withdrawal target's definition,
// the KV proof resolves the withdrawer's account against the
// pre-block state (in.PreBlock), not any later checkpoint within the
// block, and covers only the withdrawer's script hash and nonce. A
// withdrawer whose account is created by the same block's deposits is
// not found there, and the build fails with ErrUnknownAccount.
func (b *Builder) BuildWithdrawalWitness(txn kv.Txn, in BlockWitnessInput, index uint32) (*VerifyWithdrawalWitness, error) {
	if int(index) >= len(in.Withdrawals) {
		return nil, fmt.Errorf("%w: withdrawal %d", ErrTargetIndexOutOfRange, index)
	}

	witnessHashes := make([]common.Hash, len(in.Withdrawals))
	for i, w := range in.Withdrawals {
		witnessHashes[i] = w.WitnessHash(witnessHashFn)
	}
	proofPath := producer.CBMTProofPath(witnessHashes, int(index))

	tree := smt.At(in.PreBlock)
	s := state.NewRawState(txn, tree, in.PreBlockAccountCount, in.Raw.Number)

	w := in.Withdrawals[index]
	accountID, ok := state.ResolveRegistryAddress(s, w.FromRegistry)
	if !ok {
		return nil, fmt.Errorf("%w: withdrawer %x has no registered account at the pre-block state", common.ErrUnknownAccount, w.FromRegistry.Address)
	}

	keys := []common.Hash{state.ScriptHashKey(accountID), state.NonceKey(accountID)}
	kvProof := buildKVStateProof(tree, keys)

	return &VerifyWithdrawalWitness{
		RawBlock:        in.Raw,
		WithdrawalIndex: index,
		Withdrawal:      w,
		WithdrawalProof: proofPath,
		KVStateProof:    kvProof,
	}, nil
}

// VerifyWithdrawal re-derives w's witness hash, checks it against
// w.RawBlock's recorded withdrawal-witness root via the CBMT proof,
// and checks the KV state proof opens against preBlockRoot — the
// self-contained check a Layer-1 validator performs, modeled here for
// a local defender to run before ever submitting a witness on-chain.
func VerifyWithdrawal(w *VerifyWithdrawalWitness, preBlockRoot common.Hash) (bool, error) {
	leaf := w.Withdrawal.WitnessHash(witnessHashFn)
	if !producer.CBMTVerify(w.RawBlock.SubmitWithdrawals.WithdrawalWitnessRoot, leaf, int(w.WithdrawalIndex), w.WithdrawalProof) {
		return false, nil
	}
	return w.KVStateProof.Verify(preBlockRoot)
}
