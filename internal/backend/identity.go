package backend

import (
	"encoding/binary"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
)

// internalRegistryID namespaces SUDT balances by raw account id rather
// than by an externally-registered address, so accounts that have
// never called register_address (eth_addr_reg) still have a stable
// balance key. It is distinct from common.ETHRegistryAccountID: a
// balance keyed under internalRegistryID and one keyed under an
// eth_addr_reg address are separate entries, and nothing here links or
// mirrors one to the other.
const internalRegistryID uint32 = 0

// AccountRegistryAddress is the canonical SUDT-balance identity of
// accountID before (or absent) any external address registration.
func AccountRegistryAddress(accountID uint32) common.RegistryAddress {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, accountID)
	return common.RegistryAddress{RegistryID: internalRegistryID, Address: buf}
}
