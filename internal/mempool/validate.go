package mempool

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// withdrawalSudtScript is the same canonical, args-less identity a
// deposit or withdrawal of a foreign SUDT resolves to as
// internal/producer's sudtIdentityScript — duplicated here rather than
// exported, since it is a one-line protocol fact (an SUDT's own
// code_hash doubles as its Layer-2 identity script) rather than shared
// machinery.
func withdrawalSudtScript(sudtScriptHash common.Hash) common.Script {
	return common.Script{CodeHash: sudtScriptHash, HashType: common.HashTypeType}
}

func u128(lo, hi uint64) *uint256.Int {
	v := uint256.NewInt(hi)
	v.Lsh(v, 64)
	v.Add(v, uint256.NewInt(lo))
	return v
}

// validateWithdrawal speculatively checks w against s without mutating
// it: registered sender, correct replay nonce, custodian pools large
// enough for the requested capacity and SUDT amount, and a sender SUDT
// balance covering the amount. The sender's own capacity balance is not
// checked. This is
// deliberately a second, read-only copy of the checks
// internal/producer's applyWithdrawal performs authoritatively at block
// production time — the same duplication crates/mem-pool/src/withdrawal.rs
// makes, so a request can be rejected at submission time instead of
// silently waiting to fail when a block is finally assembled.
func validateWithdrawal(s state.State, w common.WithdrawalRequest) error {
	accountID, ok := state.ResolveRegistryAddress(s, w.FromRegistry)
	if !ok {
		return fmt.Errorf("%w: withdrawal from unregistered address", common.ErrUnknownAccount)
	}
	expectedNonce := state.GetNonce(s, accountID)
	if w.Nonce != expectedNonce {
		return fmt.Errorf("%w: withdrawal account=%d expected=%d got=%d", common.ErrInvalidNonce, accountID, expectedNonce, w.Nonce)
	}

	ckbPool := state.GetCustodianBalance(s, common.ZeroHash)
	if ckbPool.Lt(uint256.NewInt(w.Capacity)) {
		return fmt.Errorf("%w: capacity pool=%s requested=%d", common.ErrInsufficientCustodian, ckbPool, w.Capacity)
	}

	if w.SudtScriptHash.IsZero() {
		return nil
	}

	sudtAccountID, ok := state.ResolveAccountByScript(s, withdrawalSudtScript(w.SudtScriptHash))
	if !ok {
		return fmt.Errorf("%w: withdrawal names an sudt never deposited", common.ErrUnknownAccount)
	}
	amount := u128(w.Amount, w.AmountHi)
	sudtPool := state.GetCustodianBalance(s, w.SudtScriptHash)
	if sudtPool.Lt(amount) {
		return fmt.Errorf("%w: sudt pool=%s requested=%s", common.ErrInsufficientCustodian, sudtPool, amount)
	}
	balance := state.GetSudtBalance(s, sudtAccountID, w.FromRegistry)
	if balance.Lt(amount) {
		return common.WithdrawalOverdraft()
	}
	return nil
}
