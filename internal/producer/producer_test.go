package producer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godwokenrises/godwoken-sub002/internal/backend"
	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/generator"
	"github.com/godwokenrises/godwoken-sub002/internal/kv"
	"github.com/godwokenrises/godwoken-sub002/internal/smt"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

func newTestState(t *testing.T, blockNumber uint64) *state.RawState {
	t.Helper()
	store := kv.NewMemStore()
	txn, err := store.BeginTransaction()
	require.NoError(t, err)
	return state.NewRawState(txn, smt.New(), 0, blockNumber)
}

// seedReservedAccounts creates the three reserved accounts in order so
// they land on their fixed ids: meta (0), CKB sudt (1), eth registry (2).
func seedReservedAccounts(t *testing.T, s *state.RawState) {
	t.Helper()
	metaID, err := state.CreateAccount(s, common.Script{CodeHash: common.BytesToHash([]byte("meta-code")), HashType: common.HashTypeType})
	require.NoError(t, err)
	require.Equal(t, common.MetaContractAccountID, metaID)

	ckbID, err := state.CreateAccount(s, common.Script{CodeHash: common.BytesToHash([]byte("ckb-sudt-code")), HashType: common.HashTypeType})
	require.NoError(t, err)
	require.Equal(t, common.CKBSudtAccountID, ckbID)

	ethRegID, err := state.CreateAccount(s, common.Script{CodeHash: common.BytesToHash([]byte("eth-reg-code")), HashType: common.HashTypeType})
	require.NoError(t, err)
	require.Equal(t, common.ETHRegistryAccountID, ethRegID)
}

func newTestProducer() *Producer {
	return New(generator.New(backend.NewRegistry()))
}

func depositorScript(seed byte) common.Script {
	return common.Script{CodeHash: common.BytesToHash([]byte{seed}), HashType: common.HashTypeType, Args: []byte{seed, seed}}
}

func TestApplyDepositCreatesAccountAndCreditsCustodian(t *testing.T) {
	s := newTestState(t, 1)
	seedReservedAccounts(t, s)
	p := newTestProducer()

	d := common.Deposit{Capacity: 100_00000000, Script: depositorScript(7), RegistryID: common.ETHRegistryAccountID}
	require.NoError(t, p.applyDeposit(s, d))

	addr := common.RegistryAddress{RegistryID: d.RegistryID, Address: d.Script.Args}
	accountID, ok := state.ResolveRegistryAddress(s, addr)
	require.True(t, ok)
	require.Equal(t, uint64(100_00000000), state.GetSudtBalance(s, common.CKBSudtAccountID, addr).Uint64())
	require.Equal(t, uint64(100_00000000), state.GetCustodianBalance(s, common.ZeroHash).Uint64())
	require.NotZero(t, accountID)
}

func TestApplyDepositRejectsBelowMinimumCapacity(t *testing.T) {
	s := newTestState(t, 1)
	seedReservedAccounts(t, s)
	p := newTestProducer()

	d := common.Deposit{Capacity: 1, Script: depositorScript(7), RegistryID: common.ETHRegistryAccountID}
	err := p.applyDeposit(s, d)
	require.ErrorIs(t, err, common.ErrMinCapacity)
}

func TestApplyDepositRejectsFakedCKBAmount(t *testing.T) {
	s := newTestState(t, 1)
	seedReservedAccounts(t, s)
	p := newTestProducer()

	d := common.Deposit{Capacity: minDepositCapacityShannons, Script: depositorScript(7), RegistryID: common.ETHRegistryAccountID, Amount: 1}
	err := p.applyDeposit(s, d)
	var depErr *common.DepositError
	require.ErrorAs(t, err, &depErr)
}

func TestApplyWithdrawalDebitsBalanceAndCustodian(t *testing.T) {
	s := newTestState(t, 1)
	seedReservedAccounts(t, s)
	p := newTestProducer()

	d := common.Deposit{Capacity: 100_00000000, Script: depositorScript(7), RegistryID: common.ETHRegistryAccountID}
	require.NoError(t, p.applyDeposit(s, d))
	addr := common.RegistryAddress{RegistryID: d.RegistryID, Address: d.Script.Args}

	w := common.WithdrawalRequest{Nonce: 0, FromRegistry: addr, Capacity: 40_00000000}
	require.NoError(t, p.applyWithdrawal(s, w))

	require.Equal(t, uint64(60_00000000), state.GetSudtBalance(s, common.CKBSudtAccountID, addr).Uint64())
	require.Equal(t, uint64(60_00000000), state.GetCustodianBalance(s, common.ZeroHash).Uint64())
}

func TestApplyWithdrawalRejectsOverdraft(t *testing.T) {
	s := newTestState(t, 1)
	seedReservedAccounts(t, s)
	p := newTestProducer()

	d := common.Deposit{Capacity: 100_00000000, Script: depositorScript(7), RegistryID: common.ETHRegistryAccountID}
	require.NoError(t, p.applyDeposit(s, d))
	addr := common.RegistryAddress{RegistryID: d.RegistryID, Address: d.Script.Args}

	w := common.WithdrawalRequest{Nonce: 0, FromRegistry: addr, Capacity: 1_000_00000000}
	err := p.applyWithdrawal(s, w)
	var wErr *common.WithdrawalError
	require.ErrorAs(t, err, &wErr)
}

func TestApplyWithdrawalRejectsUnregisteredAddress(t *testing.T) {
	s := newTestState(t, 1)
	seedReservedAccounts(t, s)
	p := newTestProducer()

	w := common.WithdrawalRequest{Nonce: 0, FromRegistry: common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: []byte{1, 2, 3}}, Capacity: 1}
	err := p.applyWithdrawal(s, w)
	require.ErrorIs(t, err, common.ErrUnknownAccount)
}

func TestProduceBlockAppliesDepositsThenWithdrawals(t *testing.T) {
	s := newTestState(t, 1)
	seedReservedAccounts(t, s)
	p := newTestProducer()

	depositScript := depositorScript(9)
	addr := common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: depositScript.Args}

	out, err := p.ProduceBlock(s, Input{
		Number:         1,
		MaxCyclesPerTx: 1_000_000,
		Deposits: []common.Deposit{
			{Capacity: 100_00000000, Script: depositScript, RegistryID: common.ETHRegistryAccountID},
		},
		Withdrawals: []common.WithdrawalRequest{
			{Nonce: 0, FromRegistry: addr, Capacity: 30_00000000},
		},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), out.Block.Raw.Number)
	require.Equal(t, uint32(1), out.Block.Raw.SubmitWithdrawals.WithdrawalCount)
	require.Equal(t, uint64(70_00000000), state.GetSudtBalance(s, common.CKBSudtAccountID, addr).Uint64())
	require.Equal(t, out.Block.Raw.PostAccount.Root, out.GlobalState.Account.Root)
}

func TestProduceBlockRejectsBadWithdrawalWithoutApplyingLaterEntries(t *testing.T) {
	s := newTestState(t, 1)
	seedReservedAccounts(t, s)
	p := newTestProducer()

	depositScript := depositorScript(9)
	addr := common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: depositScript.Args}

	_, err := p.ProduceBlock(s, Input{
		Number:         1,
		MaxCyclesPerTx: 1_000_000,
		Deposits: []common.Deposit{
			{Capacity: 100_00000000, Script: depositScript, RegistryID: common.ETHRegistryAccountID},
		},
		Withdrawals: []common.WithdrawalRequest{
			{Nonce: 0, FromRegistry: addr, Capacity: 1_000_00000000}, // overdraft, rejected
			{Nonce: 1, FromRegistry: addr, Capacity: 1_00000000},     // must never apply
		},
	})
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	require.Equal(t, "withdrawal", rej.Phase)
	require.Equal(t, uint32(0), rej.Index)
	// A block is all-or-nothing: rejecting the first withdrawal must
	// unwind the deposit that preceded it too, and the second
	// withdrawal must never have been reached.
	require.Equal(t, uint64(0), state.GetSudtBalance(s, common.CKBSudtAccountID, addr).Uint64())
	_, registered := state.ResolveRegistryAddress(s, addr)
	require.False(t, registered)
}
