package mempool

import (
	"sync"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
)

// CyclesPool tracks the block-level cycle budget a mempool package draws
// down as transactions are speculatively accepted, mirroring the
// generator's own per-tx cap (internal/generator.ExecuteTransaction) one
// level up: a tx that individually fits under the per-tx cap can still
// be rejected here if the pool has already spent its block-wide budget
// on earlier transactions.
type CyclesPool struct {
	mu        sync.Mutex
	total     uint64
	available uint64
}

// NewCyclesPool opens a pool with total cycles available.
func NewCyclesPool(total uint64) *CyclesPool {
	return &CyclesPool{total: total, available: total}
}

// AvailableCycles returns the cycles not yet spent by an accepted
// transaction in the current mem block.
func (c *CyclesPool) AvailableCycles() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

// consume debits n cycles, rejecting with ErrInsufficientPoolCycles if
// the pool cannot cover it.
func (c *CyclesPool) consume(n uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > c.available {
		return common.ErrInsufficientPoolCycles
	}
	c.available -= n
	return nil
}

// Refund credits n cycles back, used when a speculatively-accepted
// transaction is later dropped from the mem block (e.g. superseded by a
// real block covering the same range).
func (c *CyclesPool) Refund(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available += n
	if c.available > c.total {
		c.available = c.total
	}
}

// Reset restores the pool to its full budget, called once the mem block
// it was tracking has been superseded by a real produced block.
func (c *CyclesPool) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available = c.total
}
