package backend

import (
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/gwcrypto"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// EthAddrRegBackend implements the eth_addr_reg contract: it lets an
// account bind a 20-byte Ethereum-style address to itself under
// common.ETHRegistryAccountID, after which deposits and withdrawals
// naming that address resolve to the account.
//
// Args layout: eth_address(20 bytes), exactly.
type EthAddrRegBackend struct{}

// NewEthAddrRegBackend returns the stateless singleton registry backend.
func NewEthAddrRegBackend() *EthAddrRegBackend { return &EthAddrRegBackend{} }

func (b *EthAddrRegBackend) Checksum() common.Hash {
	return common.Hash(gwcrypto.Blake2b256([]byte("backend/eth-addr-reg-v1")))
}

func (b *EthAddrRegBackend) Execute(ctx Context, s state.State, tx common.RawL2Transaction) (common.RunResult, error) {
	if len(tx.Args) != 20 {
		return common.RunResult{ExitCode: 1}, fmt.Errorf("backend/eth_addr_reg: args must be 20 bytes, got %d", len(tx.Args))
	}
	addr := common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: append([]byte(nil), tx.Args...)}
	if err := state.RegisterAddress(s, addr, tx.FromID); err != nil {
		return common.RunResult{ExitCode: 1}, err
	}
	return common.RunResult{ExitCode: 0}, nil
}
