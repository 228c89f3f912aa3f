package backend

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
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

func TestMetaBackendCreateAccount(t *testing.T) {
	s := newTestState(t)
	m := NewMetaBackend()

	script := common.Script{CodeHash: common.BytesToHash([]byte("some-code")), HashType: common.HashTypeType, Args: []byte{1, 2, 3}}
	payload := append([]byte{metaOpCreateAccount}, script.Serialize()...)

	result, err := m.Execute(Context{}, s, common.RawL2Transaction{FromID: 0, ToID: common.MetaContractAccountID, Args: payload})
	require.NoError(t, err)
	require.True(t, result.Success())
	require.Equal(t, uint32(1), result.AccountCountAfter)

	got, err := state.GetScript(s, 0)
	require.NoError(t, err)
	require.True(t, got.Equal(script))
}

func TestSudtBackendTransfer(t *testing.T) {
	s := newTestState(t)
	sudt := NewSudtBackend()

	fromAddr := AccountRegistryAddress(1)
	require.NoError(t, state.MintSudt(s, common.CKBSudtAccountID, fromAddr, 1000, 0))

	args := make([]byte, 20)
	binary.BigEndian.PutUint32(args[0:4], 2) // to account 2
	binary.BigEndian.PutUint64(args[4:12], 300)

	result, err := sudt.Execute(Context{ToAccountID: common.CKBSudtAccountID}, s, common.RawL2Transaction{FromID: 1, ToID: common.CKBSudtAccountID, Args: args})
	require.NoError(t, err)
	require.True(t, result.Success())

	require.Equal(t, uint64(700), state.GetSudtBalance(s, common.CKBSudtAccountID, fromAddr).Uint64())
	require.Equal(t, uint64(300), state.GetSudtBalance(s, common.CKBSudtAccountID, AccountRegistryAddress(2)).Uint64())
}

func TestSudtBackendRejectsOverdraft(t *testing.T) {
	s := newTestState(t)
	sudt := NewSudtBackend()

	args := make([]byte, 20)
	binary.BigEndian.PutUint32(args[0:4], 2)
	binary.BigEndian.PutUint64(args[4:12], 50)

	_, err := sudt.Execute(Context{ToAccountID: common.CKBSudtAccountID}, s, common.RawL2Transaction{FromID: 1, ToID: common.CKBSudtAccountID, Args: args})
	require.ErrorIs(t, err, common.ErrInsufficientBalance)
}

func TestEthAddrRegBindsAddress(t *testing.T) {
	s := newTestState(t)
	reg := NewEthAddrRegBackend()

	ethAddr := make([]byte, 20)
	for i := range ethAddr {
		ethAddr[i] = byte(i)
	}

	result, err := reg.Execute(Context{}, s, common.RawL2Transaction{FromID: 7, Args: ethAddr})
	require.NoError(t, err)
	require.True(t, result.Success())

	id, ok := state.ResolveRegistryAddress(s, common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: ethAddr})
	require.True(t, ok)
	require.Equal(t, uint32(7), id)
}

func TestPolyjuiceBackendSStoreAndLog(t *testing.T) {
	s := newTestState(t)
	poly := NewPolyjuiceBackend()

	var key, value common.Hash
	key[31] = 1
	value[31] = 42

	args := []byte{polyOpSStore}
	args = append(args, key[:]...)
	args = append(args, value[:]...)
	args = append(args, polyOpLog)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, 3)
	args = append(args, lenBuf...)
	args = append(args, []byte("hi!")...)
	args = append(args, polyOpStop)

	result, err := poly.Execute(Context{ToAccountID: 9}, s, common.RawL2Transaction{Args: args})
	require.NoError(t, err)
	require.True(t, result.Success())
	require.Len(t, result.Logs, 1)
	require.Equal(t, []byte("hi!"), result.Logs[0].Data)

	require.Equal(t, value, state.GetStorage(s, 9, key))
}
