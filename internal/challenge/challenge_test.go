package challenge

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/godwokenrises/godwoken-sub002/internal/backend"
	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/generator"
	"github.com/godwokenrises/godwoken-sub002/internal/gwcrypto"
	"github.com/godwokenrises/godwoken-sub002/internal/kv"
	"github.com/godwokenrises/godwoken-sub002/internal/producer"
	"github.com/godwokenrises/godwoken-sub002/internal/smt"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// fixture produces a single block carrying one deposit, two
// meta-backend account-creation transactions signed by priv, and one
// withdrawal from an account registered before the block, and returns everything a Builder needs to build witnesses
// against it: the txn/tree it ran on, the produced RawBlock, and a
// block-hashes tree it has been recorded into (mirroring
// chain.Synchroniser's own bookkeeping).
type fixture struct {
	txn          kv.Txn
	prod         *producer.Producer
	builder      *Builder
	block        common.RawBlock
	deposits     []common.Deposit
	withdrawals  []common.WithdrawalRequest
	txs          []common.RawL2Transaction
	preBlock     smt.Snapshot
	preCount     uint32
	blockHashes  *smt.Tree
	txReturnData []byte
}

func depositorScript(seed byte) common.Script {
	return common.Script{CodeHash: common.BytesToHash([]byte{seed}), HashType: common.HashTypeType, Args: []byte{seed, seed}}
}

func ethAddrFromPub(pub *secp256k1.PublicKey) [20]byte {
	serialized := pub.SerializeUncompressed()[1:]
	digest := gwcrypto.Blake2b256(serialized)
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr
}

func signRawTx(t *testing.T, priv *secp256k1.PrivateKey, tx common.RawL2Transaction) []byte {
	t.Helper()
	msgHash := tx.Hash(func(b []byte) common.Hash { return common.Hash(gwcrypto.Blake2b256(b)) })
	sig, err := ecdsa.SignCompact(priv, msgHash[:], false)
	require.NoError(t, err)
	out := make([]byte, 65)
	copy(out[:64], sig[1:])
	out[64] = sig[0] - 27
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := kv.NewMemStore()
	txn, err := store.BeginTransaction()
	require.NoError(t, err)
	tree := smt.New()

	seed := state.NewRawState(txn, tree, 0, 0)
	_, err = state.CreateAccount(seed, common.Script{CodeHash: common.BytesToHash([]byte("meta-code")), HashType: common.HashTypeType})
	require.NoError(t, err)
	_, err = state.CreateAccount(seed, common.Script{CodeHash: common.BytesToHash([]byte("ckb-sudt-code")), HashType: common.HashTypeType})
	require.NoError(t, err)
	_, err = state.CreateAccount(seed, common.Script{CodeHash: common.BytesToHash([]byte("eth-reg-code")), HashType: common.HashTypeType})
	require.NoError(t, err)

	// The transaction's sender account is created here, before the
	// block under test, so it is already present in the pre-block
	// snapshot both the real replay and the witness builder fork from.
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	ethAddr := ethAddrFromPub(priv.PubKey())
	callerScript := common.Script{CodeHash: common.BytesToHash([]byte("eth-account")), HashType: common.HashTypeType, Args: ethAddr[:]}
	callerID, err := state.CreateAccount(seed, callerScript)
	require.NoError(t, err)
	require.NoError(t, state.RegisterAddress(seed, common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: ethAddr[:]}, callerID))

	// The withdrawer is registered before the block under test as well,
	// so the withdrawal witness can resolve it at the pre-block state.
	withdrawerID, err := state.CreateAccount(seed, depositorScript(9))
	require.NoError(t, err)
	require.NoError(t, state.RegisterAddress(seed, common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: depositorScript(9).Args}, withdrawerID))

	reg := backend.NewRegistry()
	meta := backend.NewMetaBackend()
	require.NoError(t, reg.Register(backend.ForkEntry{
		CodeHash: common.BytesToHash([]byte("meta-code")), ForkBlockNumber: 0,
		Type: backend.TypeMeta, Checksum: meta.Checksum(), Backend: meta,
	}))
	gen := generator.New(reg)
	prod := producer.New(gen)

	preBlock := tree.TakeSnapshot()
	preCount := seed.GetAccountCount()

	depositScript := depositorScript(9)
	deposit := common.Deposit{Capacity: 100_00000000, Script: depositScript, RegistryID: common.ETHRegistryAccountID}
	addr := common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: depositScript.Args}

	metaID := common.MetaContractAccountID
	newScript1 := common.Script{CodeHash: common.BytesToHash([]byte("created-script-1")), HashType: common.HashTypeType, Args: []byte{9}}
	tx1 := common.RawL2Transaction{FromID: callerID, ToID: metaID, Nonce: 0, Args: append([]byte{0}, newScript1.Serialize()...)}
	tx1.Signature = signRawTx(t, priv, tx1)

	newScript2 := common.Script{CodeHash: common.BytesToHash([]byte("created-script-2")), HashType: common.HashTypeType, Args: []byte{10}}
	tx2 := common.RawL2Transaction{FromID: callerID, ToID: metaID, Nonce: 1, Args: append([]byte{0}, newScript2.Serialize()...)}
	tx2.Signature = signRawTx(t, priv, tx2)

	withdrawal := common.WithdrawalRequest{Nonce: 0, FromRegistry: addr, Capacity: 30_00000000}

	s := state.NewRawState(txn, smt.At(preBlock), preCount, 1)
	out, err := prod.ProduceBlock(s, producer.Input{
		Number:         1,
		MaxCyclesPerTx: 1_000_000,
		Deposits:       []common.Deposit{deposit},
		Withdrawals:    []common.WithdrawalRequest{withdrawal},
		Txs:            []common.RawL2Transaction{tx1, tx2},
	})
	require.NoError(t, err)

	blockHashes := smt.New()
	blockHashes.Update(state.BlockNumberKey(out.Block.Raw.Number), producer.BlockHash(out.Block.Raw))

	return &fixture{
		txn:          txn,
		prod:         prod,
		builder:      NewBuilder(prod, gen),
		block:        out.Block.Raw,
		deposits:     []common.Deposit{deposit},
		withdrawals:  []common.WithdrawalRequest{withdrawal},
		txs:          []common.RawL2Transaction{tx1, tx2},
		preBlock:     preBlock,
		preCount:     preCount,
		blockHashes:  blockHashes,
		txReturnData: out.TxResults[0].ReturnData,
	}
}

func (f *fixture) preBlockRoot() common.Hash {
	return smt.At(f.preBlock).Root()
}

func (f *fixture) input() BlockWitnessInput {
	return BlockWitnessInput{
		Raw:                  f.block,
		Deposits:             f.deposits,
		Withdrawals:          f.withdrawals,
		Txs:                  f.txs,
		MaxCyclesPerTx:       1_000_000,
		PreBlock:             f.preBlock,
		PreBlockAccountCount: f.preCount,
	}
}

func TestWithdrawalWitnessRoundTrips(t *testing.T) {
	f := newFixture(t)
	w, err := f.builder.BuildWithdrawalWitness(f.txn, f.input(), 0)
	require.NoError(t, err)
	ok, err := VerifyWithdrawal(w, f.preBlockRoot())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestWithdrawalWitnessRejectsTamperedCapacity(t *testing.T) {
	f := newFixture(t)
	w, err := f.builder.BuildWithdrawalWitness(f.txn, f.input(), 0)
	require.NoError(t, err)
	w.Withdrawal.Capacity += 1
	ok, err := VerifyWithdrawal(w, f.preBlockRoot())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWithdrawalWitnessRejectsOutOfRangeIndex(t *testing.T) {
	f := newFixture(t)
	_, err := f.builder.BuildWithdrawalWitness(f.txn, f.input(), 1)
	require.ErrorIs(t, err, ErrTargetIndexOutOfRange)
}

func TestTransactionSignatureWitnessRoundTrips(t *testing.T) {
	f := newFixture(t)
	w, err := f.builder.BuildTransactionSignatureWitness(f.txn, f.input(), 0)
	require.NoError(t, err)
	ok, err := VerifyTransactionSignature(w)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTransactionSignatureWitnessRejectsTamperedProof(t *testing.T) {
	f := newFixture(t)
	w, err := f.builder.BuildTransactionSignatureWitness(f.txn, f.input(), 0)
	require.NoError(t, err)
	if len(w.TxProof) > 0 {
		w.TxProof[0] = common.BytesToHash([]byte("tampered"))
	}
	ok, err := VerifyTransactionSignature(w)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTransactionExecutionWitnessRoundTrips(t *testing.T) {
	f := newFixture(t)
	w, err := f.builder.BuildTransactionExecutionWitness(f.txn, f.input(), 0, f.blockHashes)
	require.NoError(t, err)
	require.Equal(t, int8(0), w.ExitCode)

	ok, err := VerifyTransactionExecution(w, f.txReturnData)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTransactionExecutionWitnessRejectsWrongReturnData(t *testing.T) {
	f := newFixture(t)
	w, err := f.builder.BuildTransactionExecutionWitness(f.txn, f.input(), 0, f.blockHashes)
	require.NoError(t, err)

	ok, err := VerifyTransactionExecution(w, []byte("not the real return data"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRevertContextRoundTrips(t *testing.T) {
	blockHashes := smt.New()
	blockHashes.Update(state.BlockNumberKey(1), common.BytesToHash([]byte("block-1-hash")))
	blockHashes.Update(state.BlockNumberKey(2), common.BytesToHash([]byte("block-2-hash")))
	preRoot := blockHashes.Root()

	reverted := smt.New()
	reverted.Update(common.BytesToHash([]byte("block-1-hash")), RevertedMarker)
	reverted.Update(common.BytesToHash([]byte("block-2-hash")), RevertedMarker)

	rc, err := BuildRevertContext(blockHashes, reverted, []uint64{1, 2})
	require.NoError(t, err)
	ok, err := VerifyRevertContext(rc, preRoot)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRevertContextRejectsMissingMainChainBlock(t *testing.T) {
	blockHashes := smt.New()
	reverted := smt.New()
	_, err := BuildRevertContext(blockHashes, reverted, []uint64{1})
	require.Error(t, err)
}

func TestRevertContextRejectsUnsortedNumbers(t *testing.T) {
	blockHashes := smt.New()
	reverted := smt.New()
	_, err := BuildRevertContext(blockHashes, reverted, []uint64{2, 1})
	require.Error(t, err)
}
