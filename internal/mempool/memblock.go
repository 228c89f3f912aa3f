package mempool

import (
	"sync"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
)

// MemBlock accumulates the speculatively-accepted transactions and
// withdrawals waiting for the next real block, in arrival order.
type MemBlock struct {
	mu          sync.Mutex
	txs         []common.RawL2Transaction
	txHashes    map[common.Hash]struct{}
	withdrawals []common.WithdrawalRequest
}

func newMemBlock() *MemBlock {
	return &MemBlock{txHashes: make(map[common.Hash]struct{})}
}

// TxsSet returns the set of transaction hashes already queued, for a
// caller (the RPC submission path) to reject an exact duplicate before
// even attempting speculative execution.
func (b *MemBlock) TxsSet() map[common.Hash]struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[common.Hash]struct{}, len(b.txHashes))
	for h := range b.txHashes {
		out[h] = struct{}{}
	}
	return out
}

func (b *MemBlock) hasTx(hash common.Hash) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.txHashes[hash]
	return ok
}

func (b *MemBlock) addTx(hash common.Hash, tx common.RawL2Transaction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txHashes[hash] = struct{}{}
	b.txs = append(b.txs, tx)
}

func (b *MemBlock) addWithdrawal(w common.WithdrawalRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.withdrawals = append(b.withdrawals, w)
}

// Txs returns the queued transactions in arrival order.
func (b *MemBlock) Txs() []common.RawL2Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]common.RawL2Transaction, len(b.txs))
	copy(out, b.txs)
	return out
}

// Withdrawals returns the queued withdrawal requests in arrival order.
func (b *MemBlock) Withdrawals() []common.WithdrawalRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]common.WithdrawalRequest, len(b.withdrawals))
	copy(out, b.withdrawals)
	return out
}

// Reset empties the mem block, called once its contents have been
// folded into a real produced block.
func (b *MemBlock) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txs = nil
	b.withdrawals = nil
	b.txHashes = make(map[common.Hash]struct{})
}
