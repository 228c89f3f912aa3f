package backend

import (
	"encoding/binary"
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/gwcrypto"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// SudtBackend implements transfer execution for a simple user-defined
// token account. One SudtBackend instance is shared by every SUDT account;
// ctx.ToAccountID selects which token's balances are moved.
//
// Args layout: to_account_id(4 BE) || amount_lo(8 BE) || amount_hi(8 BE).
type SudtBackend struct{}

// NewSudtBackend returns the stateless singleton SUDT transfer backend.
func NewSudtBackend() *SudtBackend { return &SudtBackend{} }

func (b *SudtBackend) Checksum() common.Hash {
	return common.Hash(gwcrypto.Blake2b256([]byte("backend/sudt-transfer-v1")))
}

func (b *SudtBackend) Execute(ctx Context, s state.State, tx common.RawL2Transaction) (common.RunResult, error) {
	if len(tx.Args) != 20 {
		return common.RunResult{ExitCode: 1}, fmt.Errorf("backend/sudt: args must be 20 bytes, got %d", len(tx.Args))
	}
	toAccountID := binary.BigEndian.Uint32(tx.Args[0:4])
	amountLo := binary.BigEndian.Uint64(tx.Args[4:12])
	amountHi := binary.BigEndian.Uint64(tx.Args[12:20])

	from := AccountRegistryAddress(tx.FromID)
	to := AccountRegistryAddress(toAccountID)

	if err := state.BurnSudt(s, ctx.ToAccountID, from, amountLo, amountHi); err != nil {
		return common.RunResult{ExitCode: 1}, err
	}
	if err := state.MintSudt(s, ctx.ToAccountID, to, amountLo, amountHi); err != nil {
		// Roll back the burn: the caller (generator) owns the outer
		// snapshot, but a half-applied transfer must never be returned
		// as a successful RunResult.
		_ = state.MintSudt(s, ctx.ToAccountID, from, amountLo, amountHi)
		return common.RunResult{ExitCode: 1}, err
	}

	return common.RunResult{ExitCode: 0}, nil
}
