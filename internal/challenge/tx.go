package challenge

import (
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/generator"
	"github.com/godwokenrises/godwoken-sub002/internal/gwcrypto"
	"github.com/godwokenrises/godwoken-sub002/internal/kv"
	"github.com/godwokenrises/godwoken-sub002/internal/producer"
	"github.com/godwokenrises/godwoken-sub002/internal/smt"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// VerifyTransactionSignatureWitness is what a defender submits to
// contest a tx-signature-target challenge: proof that the named
// transaction sits at TxIndex of RawBlock's tx-witness root, plus a
// state proof resolving the two parties' scripts, nonces, and the
// sender's registered address at the transaction's own pre-checkpoint.
type VerifyTransactionSignatureWitness struct {
	RawBlock          common.RawBlock
	TxIndex           uint32
	Tx                common.RawL2Transaction
	TxProof           []common.Hash
	PreCheckpointRoot common.Hash
	KVStateProof      KVStateProof
}

func (b *Builder) txProofPath(in BlockWitnessInput, index uint32) []common.Hash {
	witnessHashes := make([]common.Hash, len(in.Txs))
	for i, tx := range in.Txs {
		witnessHashes[i] = tx.WitnessHash(witnessHashFn)
	}
	return producer.CBMTProofPath(witnessHashes, int(index))
}

// signatureWitnessKeys touches (and so records into tracker) exactly
// the keys a signature check needs: both parties' scripts and nonces,
// and the sender's registered address.
func signatureWitnessKeys(s *state.RawState, tx common.RawL2Transaction) {
	s.GetRaw(state.ScriptHashKey(tx.FromID))
	s.GetRaw(state.ScriptHashKey(tx.ToID))
	s.GetRaw(state.NonceKey(tx.FromID))
	s.GetRaw(state.NonceKey(tx.ToID))
	s.GetRaw(state.RegistryReverseKey(tx.FromID))
}

// BuildTransactionSignatureWitness builds the witness for the
// transaction at index within in.Txs, resolving its pre-checkpoint by
// replaying every deposit, withdrawal, and earlier transaction of the
// same block from in.PreBlock.
func (b *Builder) BuildTransactionSignatureWitness(txn kv.Txn, in BlockWitnessInput, index uint32) (*VerifyTransactionSignatureWitness, error) {
	if int(index) >= len(in.Txs) {
		return nil, fmt.Errorf("%w: tx %d", ErrTargetIndexOutOfRange, index)
	}

	tracker := state.NewTracker()
	s, tree, err := b.replayToTx(txn, in, index, tracker)
	if err != nil {
		return nil, err
	}
	signatureWitnessKeys(s, in.Txs[index])

	return &VerifyTransactionSignatureWitness{
		RawBlock:          in.Raw,
		TxIndex:           index,
		Tx:                in.Txs[index],
		TxProof:           b.txProofPath(in, index),
		PreCheckpointRoot: tree.Root(),
		KVStateProof:      buildKVStateProof(tree, tracker.Keys()),
	}, nil
}

// VerifyTransactionSignature re-derives w's witness hash, checks it
// against w.RawBlock's recorded tx-witness root via the CBMT proof,
// and checks the KV state proof opens against PreCheckpointRoot.
func VerifyTransactionSignature(w *VerifyTransactionSignatureWitness) (bool, error) {
	leaf := w.Tx.WitnessHash(witnessHashFn)
	if !producer.CBMTVerify(w.RawBlock.SubmitTransactions.TxWitnessRoot, leaf, int(w.TxIndex), w.TxProof) {
		return false, nil
	}
	return w.KVStateProof.Verify(w.PreCheckpointRoot)
}

// VerifyTransactionWitness is what a defender submits to contest a
// tx-execution-target challenge: everything VerifyTransactionSignatureWitness
// carries, plus the run result execute_transaction produced, the
// state root it left behind, and a proof binding RawBlock to the
// block-hash tree so a Layer-1 validator can trust RawBlock's own
// identity before trusting anything computed from it.
type VerifyTransactionWitness struct {
	VerifyTransactionSignatureWitness

	ReturnDataHash   common.Hash
	ExitCode         int8
	CyclesExecution  uint64
	PostCheckpointRoot common.Hash

	BlockHashesRoot  common.Hash
	BlockHashesProof *smt.CompiledProof
}

// BuildTransactionExecutionWitness builds the witness for the
// transaction at index, additionally running it against a mutable
// forked view and binding the raw block into blockHashes, the
// in-memory tree mapping block number to block hash that a
// synchroniser maintains alongside its account tree.
func (b *Builder) BuildTransactionExecutionWitness(txn kv.Txn, in BlockWitnessInput, index uint32, blockHashes *smt.Tree) (*VerifyTransactionWitness, error) {
	if int(index) >= len(in.Txs) {
		return nil, fmt.Errorf("%w: tx %d", ErrTargetIndexOutOfRange, index)
	}

	tracker := state.NewTracker()
	s, tree, err := b.replayToTx(txn, in, index, tracker)
	if err != nil {
		return nil, err
	}
	tx := in.Txs[index]
	signatureWitnessKeys(s, tx)
	preRoot := tree.Root()

	result, err := b.gen.ExecuteTransaction(generator.BlockInfo{
		Number:        in.Raw.Number,
		TimestampMs:   in.Raw.TimestampMs,
		BlockProducer: in.Raw.BlockProducer,
	}, s, tx, in.MaxCyclesPerTx)
	if err != nil {
		return nil, fmt.Errorf("challenge: executing tx %d for its execution witness: %w", index, err)
	}

	kvProof := buildKVStateProof(tree, tracker.Keys())
	postRoot := tree.Root()

	blockHashKey := state.BlockNumberKey(in.Raw.Number)
	blockHashesProof := blockHashes.MerkleProof([]common.Hash{blockHashKey})

	return &VerifyTransactionWitness{
		VerifyTransactionSignatureWitness: VerifyTransactionSignatureWitness{
			RawBlock:          in.Raw,
			TxIndex:           index,
			Tx:                tx,
			TxProof:           b.txProofPath(in, index),
			PreCheckpointRoot: preRoot,
			KVStateProof:      kvProof,
		},
		ReturnDataHash:     common.Hash(gwcrypto.Blake2b256(result.ReturnData)),
		ExitCode:           result.ExitCode,
		CyclesExecution:    result.CyclesExecution,
		PostCheckpointRoot: postRoot,
		BlockHashesRoot:    blockHashes.Root(),
		BlockHashesProof:   blockHashesProof,
	}, nil
}

// VerifyTransactionExecution re-checks every VerifyTransactionSignature
// assertion, then checks the block-hashes proof and that ReturnDataHash
// matches a claimed return_data, completing the full on-chain check a
// tx-execution target defense requires.
func VerifyTransactionExecution(w *VerifyTransactionWitness, returnData []byte) (bool, error) {
	ok, err := VerifyTransactionSignature(&w.VerifyTransactionSignatureWitness)
	if err != nil || !ok {
		return ok, err
	}
	if common.Hash(gwcrypto.Blake2b256(returnData)) != w.ReturnDataHash {
		return false, nil
	}
	leaves := []smt.KeyValue{{Key: state.BlockNumberKey(w.RawBlock.Number), Value: producer.BlockHash(w.RawBlock)}}
	return smt.Verify(w.BlockHashesRoot, w.BlockHashesProof, leaves)
}
