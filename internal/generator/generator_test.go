package generator

import (
	"encoding/binary"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/godwokenrises/godwoken-sub002/internal/backend"
	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/gwcrypto"
	"github.com/godwokenrises/godwoken-sub002/internal/kv"
	"github.com/godwokenrises/godwoken-sub002/internal/smt"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

func newTestState(t *testing.T) *state.RawState {
	t.Helper()
	store := kv.NewMemStore()
	txn, err := store.BeginTransaction()
	require.NoError(t, err)
	return state.NewRawState(txn, smt.New(), 0, 1)
}

func newTestRegistry(t *testing.T) *backend.Registry {
	t.Helper()
	reg := backend.NewRegistry()
	meta := backend.NewMetaBackend()
	require.NoError(t, reg.Register(backend.ForkEntry{
		CodeHash: common.BytesToHash([]byte("meta-code")), ForkBlockNumber: 0,
		Type: backend.TypeMeta, Checksum: meta.Checksum(), Backend: meta,
	}))
	sudt := backend.NewSudtBackend()
	require.NoError(t, reg.Register(backend.ForkEntry{
		CodeHash: common.BytesToHash([]byte("sudt-code")), ForkBlockNumber: 0,
		Type: backend.TypeSudt, Checksum: sudt.Checksum(), Backend: sudt,
	}))
	return reg
}

// signRawTx produces a 65-byte [R|S|V] signature over tx's content
// hash using priv, mirroring how a Layer-2 client would sign.
func signRawTx(t *testing.T, priv *secp256k1.PrivateKey, tx common.RawL2Transaction) []byte {
	t.Helper()
	msgHash := tx.Hash(func(b []byte) common.Hash { return common.Hash(gwcrypto.Blake2b256(b)) })
	sig, err := ecdsa.SignCompact(priv, msgHash[:], false)
	require.NoError(t, err)
	// sig is [V(1) || R(32) || S(32)] per dcrd's compact format; convert
	// to the [R|S|V] Ethereum convention RecoverAddress expects.
	out := make([]byte, 65)
	copy(out[:64], sig[1:])
	out[64] = sig[0] - 27
	return out
}

func ethAddrFromPub(pub *secp256k1.PublicKey) [20]byte {
	serialized := pub.SerializeUncompressed()[1:]
	digest := gwcrypto.Blake2b256(serialized)
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr
}

func TestExecuteTransactionRunsMetaBackend(t *testing.T) {
	s := newTestState(t)
	reg := newTestRegistry(t)
	gen := New(reg)

	metaScript := common.Script{CodeHash: common.BytesToHash([]byte("meta-code")), HashType: common.HashTypeType}
	metaID, err := state.CreateAccount(s, metaScript)
	require.NoError(t, err)
	require.Equal(t, common.MetaContractAccountID, metaID)

	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	ethAddr := ethAddrFromPub(priv.PubKey())

	callerScript := common.Script{CodeHash: common.BytesToHash([]byte("eth-account")), HashType: common.HashTypeType, Args: ethAddr[:]}
	callerID, err := state.CreateAccount(s, callerScript)
	require.NoError(t, err)
	require.NoError(t, state.RegisterAddress(s, common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: ethAddr[:]}, callerID))

	newScript := common.Script{CodeHash: common.BytesToHash([]byte("created-script")), HashType: common.HashTypeType, Args: []byte{9}}
	payload := append([]byte{0}, newScript.Serialize()...) // metaOpCreateAccount == 0

	tx := common.RawL2Transaction{FromID: callerID, ToID: metaID, Nonce: 0, Args: payload}
	tx.Signature = signRawTx(t, priv, tx)

	result, err := gen.ExecuteTransaction(BlockInfo{Number: 1}, s, tx, 1_000_000)
	require.NoError(t, err)
	require.True(t, result.Success())
	require.Equal(t, uint32(1), state.GetNonce(s, callerID))
}

func TestExecuteTransactionRejectsBadSignature(t *testing.T) {
	s := newTestState(t)
	reg := newTestRegistry(t)
	gen := New(reg)

	metaScript := common.Script{CodeHash: common.BytesToHash([]byte("meta-code")), HashType: common.HashTypeType}
	metaID, err := state.CreateAccount(s, metaScript)
	require.NoError(t, err)

	otherScript := common.Script{CodeHash: common.BytesToHash([]byte("eth-account")), HashType: common.HashTypeType}
	callerID, err := state.CreateAccount(s, otherScript)
	require.NoError(t, err)

	tx := common.RawL2Transaction{FromID: callerID, ToID: metaID, Nonce: 0, Args: []byte{0}, Signature: make([]byte, 65)}

	_, err = gen.ExecuteTransaction(BlockInfo{Number: 1}, s, tx, 1_000_000)
	require.ErrorIs(t, err, common.ErrInvalidTxSignature)
	// Rejection must not have bumped the nonce.
	require.Equal(t, uint32(0), state.GetNonce(s, callerID))
}

func TestExecuteTransactionRejectsWrongNonce(t *testing.T) {
	s := newTestState(t)
	reg := newTestRegistry(t)
	gen := New(reg)

	metaScript := common.Script{CodeHash: common.BytesToHash([]byte("meta-code")), HashType: common.HashTypeType}
	metaID, err := state.CreateAccount(s, metaScript)
	require.NoError(t, err)

	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	ethAddr := ethAddrFromPub(priv.PubKey())
	callerScript := common.Script{CodeHash: common.BytesToHash([]byte("eth-account")), HashType: common.HashTypeType}
	callerID, err := state.CreateAccount(s, callerScript)
	require.NoError(t, err)
	require.NoError(t, state.RegisterAddress(s, common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: ethAddr[:]}, callerID))

	tx := common.RawL2Transaction{FromID: callerID, ToID: metaID, Nonce: 5, Args: []byte{0}}
	tx.Signature = signRawTx(t, priv, tx)

	_, err = gen.ExecuteTransaction(BlockInfo{Number: 1}, s, tx, 1_000_000)
	require.ErrorIs(t, err, common.ErrInvalidNonce)
}

func TestExecuteTransactionEnforcesCycleBudget(t *testing.T) {
	s := newTestState(t)
	reg := newTestRegistry(t)
	gen := New(reg)

	sudtScript := common.Script{CodeHash: common.BytesToHash([]byte("sudt-code")), HashType: common.HashTypeType}
	sudtID, err := state.CreateAccount(s, sudtScript)
	require.NoError(t, err)

	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	ethAddr := ethAddrFromPub(priv.PubKey())
	callerScript := common.Script{CodeHash: common.BytesToHash([]byte("eth-account")), HashType: common.HashTypeType}
	callerID, err := state.CreateAccount(s, callerScript)
	require.NoError(t, err)
	require.NoError(t, state.RegisterAddress(s, common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: ethAddr[:]}, callerID))
	require.NoError(t, state.MintSudt(s, sudtID, backend.AccountRegistryAddress(callerID), 1000, 0))

	args := make([]byte, 20)
	binary.BigEndian.PutUint32(args[0:4], 999)
	binary.BigEndian.PutUint64(args[4:12], 10)
	tx := common.RawL2Transaction{FromID: callerID, ToID: sudtID, Nonce: 0, Args: args}
	tx.Signature = signRawTx(t, priv, tx)

	_, err = gen.ExecuteTransaction(BlockInfo{Number: 1}, s, tx, 0)
	var cyclesErr *common.ExceededMaxBlockCyclesError
	require.ErrorAs(t, err, &cyclesErr)

	// The overdraft-free transfer itself must have been rolled back.
	require.Equal(t, uint64(1000), state.GetSudtBalance(s, sudtID, backend.AccountRegistryAddress(callerID)).Uint64())
}
