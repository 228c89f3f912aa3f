package producer

import (
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// minDepositCapacityShannons is the minimum native-capacity value a
// deposit cell must carry to be accepted, below which the cell could
// never cover its own on-chain storage rent.
const minDepositCapacityShannons uint64 = 61_00000000 // 61 CKB, one cell's base occupancy

// sudtIdentityScript is the canonical Script a foreign SUDT's account
// is addressed by: its own code_hash standing in for both the L1 type
// script and the Layer-2 identity, with no extra args. Deposits and
// withdrawals of the same sudtScriptHash therefore always resolve to
// the same account.
func sudtIdentityScript(sudtScriptHash common.Hash) common.Script {
	return common.Script{CodeHash: sudtScriptHash, HashType: common.HashTypeType}
}

// applyDeposits applies in order, stopping at the first rejected
// deposit.
func (p *Producer) applyDeposits(s *state.RawState, deposits []common.Deposit) error {
	for i, d := range deposits {
		if err := p.applyDeposit(s, d); err != nil {
			return &RejectionError{Phase: "deposit", Index: uint32(i), Err: err}
		}
	}
	return nil
}

func (p *Producer) applyDeposit(s *state.RawState, d common.Deposit) error {
	if d.Capacity < minDepositCapacityShannons {
		return fmt.Errorf("%w: capacity=%d minimum=%d", common.ErrMinCapacity, d.Capacity, minDepositCapacityShannons)
	}
	if d.SudtScriptHash.IsZero() && (d.Amount != 0 || d.AmountHi != 0) {
		return common.DepositFakedCKB()
	}

	accountID, err := state.ResolveOrCreateAccount(s, d.Script)
	if err != nil {
		return err
	}

	addr := common.RegistryAddress{RegistryID: d.RegistryID, Address: d.Script.Args}
	if err := state.RegisterAddress(s, addr, accountID); err != nil {
		return err
	}

	if err := state.MintSudt(s, common.CKBSudtAccountID, addr, d.Capacity, 0); err != nil {
		return err
	}
	if err := state.CreditCustodian(s, common.ZeroHash, d.Capacity, 0); err != nil {
		return err
	}

	if !d.SudtScriptHash.IsZero() {
		sudtAccountID, err := state.ResolveOrCreateAccount(s, sudtIdentityScript(d.SudtScriptHash))
		if err != nil {
			return err
		}
		if err := state.MintSudt(s, sudtAccountID, addr, d.Amount, d.AmountHi); err != nil {
			return err
		}
		if err := state.CreditCustodian(s, d.SudtScriptHash, d.Amount, d.AmountHi); err != nil {
			return err
		}
	}
	return nil
}

// applyWithdrawal debits the withdrawing account's balances and the
// matching custodian pools, rejecting an overdraft or a request against
// a custodian pool insufficient to cover it.
func (p *Producer) applyWithdrawal(s *state.RawState, w common.WithdrawalRequest) error {
	accountID, ok := state.ResolveRegistryAddress(s, w.FromRegistry)
	if !ok {
		return fmt.Errorf("%w: withdrawal from unregistered address", common.ErrUnknownAccount)
	}
	expectedNonce := withdrawalNonceKey(s, accountID)
	if w.Nonce != expectedNonce {
		return fmt.Errorf("%w: withdrawal account=%d expected=%d got=%d", common.ErrInvalidNonce, accountID, expectedNonce, w.Nonce)
	}

	if err := state.BurnSudt(s, common.CKBSudtAccountID, w.FromRegistry, w.Capacity, 0); err != nil {
		return common.WithdrawalOverdraft()
	}
	if err := state.DebitCustodian(s, common.ZeroHash, w.Capacity, 0); err != nil {
		return err
	}

	if !w.SudtScriptHash.IsZero() {
		sudtAccountID, ok := state.ResolveAccountByScript(s, sudtIdentityScript(w.SudtScriptHash))
		if !ok {
			return fmt.Errorf("%w: withdrawal names an sudt never deposited", common.ErrUnknownAccount)
		}
		if err := state.BurnSudt(s, sudtAccountID, w.FromRegistry, w.Amount, w.AmountHi); err != nil {
			return common.WithdrawalOverdraft()
		}
		if err := state.DebitCustodian(s, w.SudtScriptHash, w.Amount, w.AmountHi); err != nil {
			return err
		}
	}

	state.SetNonce(s, accountID, w.Nonce+1)
	return nil
}

// ApplyDeposit exposes applyDeposit to a challenge witness builder,
// which needs to re-reach the state a block's deposits left behind
// without re-deriving their account-creation/minting logic separately.
func (p *Producer) ApplyDeposit(s *state.RawState, d common.Deposit) error {
	return p.applyDeposit(s, d)
}

// ApplyWithdrawal exposes applyWithdrawal to a challenge witness
// builder for the same reason as ApplyDeposit.
func (p *Producer) ApplyWithdrawal(s *state.RawState, w common.WithdrawalRequest) error {
	return p.applyWithdrawal(s, w)
}

// withdrawalNonceKey reuses the account's ordinary nonce counter for
// withdrawal-request replay protection, the same sequential counter
// transactions advance.
func withdrawalNonceKey(s *state.RawState, accountID uint32) uint32 {
	return state.GetNonce(s, accountID)
}
