// Package backend implements the fork-indexed back-end registry: a
// mapping from (block_number, account script's
// code_hash) to the Backend implementation responsible for executing
// transactions against accounts running that code, with checksum
// enforcement against tampering and support for upgrading a back-end's
// binary at a future fork height without touching history already
// committed under the old one.
package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
)

// Type names the four back-end kinds account model singles
// out by reserved account id or registration path.
type Type uint8

const (
	TypeMeta Type = iota
	TypeSudt
	TypePolyjuice
	TypeEthAddrReg
)

func (t Type) String() string {
	switch t {
	case TypeMeta:
		return "meta_contract"
	case TypeSudt:
		return "sudt"
	case TypePolyjuice:
		return "polyjuice"
	case TypeEthAddrReg:
		return "eth_addr_reg"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

var (
	// ErrNoBackendRegistered means no fork entry for code_hash exists at all.
	ErrNoBackendRegistered = errors.New("backend: no back-end registered for code_hash")
	// ErrNoActiveFork means entries exist for code_hash but none has
	// activated by the requested block number.
	ErrNoActiveFork = errors.New("backend: code_hash has no active fork at this block number")
	// ErrChecksumMismatch is returned when a registered entry's recorded
	// checksum disagrees with the checksum computed over the backend's
	// actual binary/logic at registration time.
	ErrChecksumMismatch = common.ErrChecksumMismatch
)

// ForkEntry binds one Backend implementation to a code_hash, active
// from ForkBlockNumber onward until (implicitly) superseded by a later
// entry for the same code_hash.
type ForkEntry struct {
	CodeHash        common.Hash
	ForkBlockNumber uint64
	Type            Type
	Checksum        common.Hash
	Backend         Backend
}

// Registry resolves a (block_number, code_hash) pair to the Backend
// active at that height. Entries for the same code_hash are kept
// sorted by ForkBlockNumber so resolution is a binary search.
type Registry struct {
	mu      sync.RWMutex
	entries map[common.Hash][]ForkEntry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[common.Hash][]ForkEntry)}
}

// Register adds entry, verifying entry.Checksum against the checksum
// computed from entry.Backend's own declared checksum (ErrChecksumMismatch
// if they disagree — this catches a registration built against the
// wrong binary before it can ever be dispatched to).
func (r *Registry) Register(entry ForkEntry) error {
	if entry.Backend == nil {
		return fmt.Errorf("backend: cannot register a nil Backend for code_hash=%s", entry.CodeHash)
	}
	if entry.Backend.Checksum() != entry.Checksum {
		return fmt.Errorf("%w: code_hash=%s fork=%d", ErrChecksumMismatch, entry.CodeHash, entry.ForkBlockNumber)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.entries[entry.CodeHash]
	for _, e := range list {
		if e.ForkBlockNumber == entry.ForkBlockNumber {
			return fmt.Errorf("backend: code_hash=%s already has a fork entry at block %d", entry.CodeHash, entry.ForkBlockNumber)
		}
	}
	list = append(list, entry)
	sort.Slice(list, func(i, j int) bool { return list[i].ForkBlockNumber < list[j].ForkBlockNumber })
	r.entries[entry.CodeHash] = list
	return nil
}

// GetBackend resolves the Backend active for codeHash at blockNumber:
// the entry with the greatest ForkBlockNumber <= blockNumber. The
// resolution is keyed by the block's own number, not the number of any
// transaction within it — a back-end change never takes effect
// mid-block.
func (r *Registry) GetBackend(blockNumber uint64, codeHash common.Hash) (Backend, Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list, ok := r.entries[codeHash]
	if !ok || len(list) == 0 {
		return nil, 0, fmt.Errorf("%w: code_hash=%s", ErrNoBackendRegistered, codeHash)
	}
	// list is sorted ascending; find the last entry with ForkBlockNumber <= blockNumber.
	idx := sort.Search(len(list), func(i int) bool { return list[i].ForkBlockNumber > blockNumber }) - 1
	if idx < 0 {
		return nil, 0, fmt.Errorf("%w: code_hash=%s block=%d earliest_fork=%d", ErrNoActiveFork, codeHash, blockNumber, list[0].ForkBlockNumber)
	}
	return list[idx].Backend, list[idx].Type, nil
}

// Lookup returns every registered fork entry for codeHash, for
// diagnostics.
func (r *Registry) Lookup(codeHash common.Hash) []ForkEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ForkEntry, len(r.entries[codeHash]))
	copy(out, r.entries[codeHash])
	return out
}
