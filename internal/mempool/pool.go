// Package mempool is the narrow, in-process surface C6 (the block
// producer) consumes between blocks: a speculative overlay
// (internal/state.MemStateDB) over the chain tip's committed state, a
// cycle budget, and the set of provisionally-accepted transactions and
// withdrawals waiting to be folded into the next real block.
// Ordering/relay policy — which of several valid candidates to prefer,
// how long to hold one, peer propagation — is out of scope; this
// package only answers "can this be spent against current state, and
// is there budget left for it".
package mempool

import (
	"fmt"
	"sync"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/generator"
	"github.com/godwokenrises/godwoken-sub002/internal/gwcrypto"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// Pool is the mempool's single entry point: push_transaction and
// push_withdrawal_request validate a candidate against a single
// MemStateDB overlay kept for the whole mem block round, so one
// transaction push's tentative mutations (a bumped nonce, a debited
// balance) are visible to the next push in the same round, while the
// durable backing State is never touched. A withdrawal push only reads
// the overlay and leaves no mutation in it. The overlay is replaced wholesale by
// DrainForBlock (a new round starts clean) and by Rebase (the backing
// state moved on).
type Pool struct {
	mu sync.Mutex

	backing        state.State
	overlay        *state.MemStateDB
	gen            *generator.Generator
	block          generator.BlockInfo
	maxCyclesPerTx uint64

	cycles *CyclesPool
	mem    *MemBlock
	ps     *PoolState
}

// New opens a Pool speculating against backing (typically the chain
// tip's RawState, or a snapshot of it), executing transactions through
// gen under blockInfo, each capped at maxCyclesPerTx, with a block-wide
// budget of totalCycles.
func New(backing state.State, gen *generator.Generator, blockInfo generator.BlockInfo, maxCyclesPerTx, totalCycles uint64) *Pool {
	return &Pool{
		backing:        backing,
		overlay:        state.NewMemStateDB(backing),
		gen:            gen,
		block:          blockInfo,
		maxCyclesPerTx: maxCyclesPerTx,
		cycles:         NewCyclesPool(totalCycles),
		mem:            newMemBlock(),
		ps:             newPoolState(),
	}
}

// CyclesPool exposes the pool's remaining block-wide cycle budget.
func (p *Pool) CyclesPool() *CyclesPool { return p.cycles }

// MemBlock exposes the transactions and withdrawals accepted so far.
func (p *Pool) MemBlock() *MemBlock { return p.mem }

// MemPoolState exposes the initial-syncing completion flag.
func (p *Pool) MemPoolState() *PoolState { return p.ps }

// PushTransaction speculatively executes tx against the pool's shared
// overlay, so its effects (nonce bump, balance change) are visible to
// the next push in the same round. A tx whose gas limit strictly
// exceeds the block's per-tx cycle cap is dropped outright
// (ExceededMaxBlockCyclesError); one that fits under the cap but that
// the pool's remaining budget cannot currently cover is rejected with
// ErrInsufficientPoolCycles and may be retried once earlier
// transactions are folded into a block and the budget resets. A
// duplicate of an already-queued transaction hash is rejected without
// re-executing it.
func (p *Pool) PushTransaction(tx common.RawL2Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if tx.GasLimit > p.maxCyclesPerTx {
		return &common.ExceededMaxBlockCyclesError{Cycles: tx.GasLimit, Limit: p.maxCyclesPerTx}
	}

	hash := tx.Hash(hashFn)
	if p.mem.hasTx(hash) {
		return fmt.Errorf("mempool: transaction %s already queued", hash)
	}

	if tx.GasLimit > p.cycles.AvailableCycles() {
		return common.ErrInsufficientPoolCycles
	}

	result, err := p.gen.ExecuteTransaction(p.block, p.overlay, tx, p.maxCyclesPerTx)
	if err != nil {
		return err
	}
	if err := p.cycles.consume(result.CyclesExecution); err != nil {
		return err
	}
	p.mem.addTx(hash, tx)
	return nil
}

// PushWithdrawalRequest speculatively validates wdr against the pool's
// shared overlay (registered sender, replay nonce, custodian sufficiency,
// SUDT balance sufficiency) without mutating the overlay or the backing
// state, queuing it for the next block on success.
func (p *Pool) PushWithdrawalRequest(wdr common.WithdrawalRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := validateWithdrawal(p.overlay, wdr); err != nil {
		return err
	}
	p.mem.addWithdrawal(wdr)
	return nil
}

// DrainForBlock returns the queued transactions and withdrawals for C6
// to assemble into the next block, and resets the mem block, cycle
// budget, and speculative overlay so the next round starts clean
// against the same backing state (the caller is expected to call
// Rebase once the block it assembles from this round is attached).
func (p *Pool) DrainForBlock() ([]common.RawL2Transaction, []common.WithdrawalRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()

	txs := p.mem.Txs()
	withdrawals := p.mem.Withdrawals()
	p.mem.Reset()
	p.cycles.Reset()
	p.overlay = state.NewMemStateDB(p.backing)
	return txs, withdrawals
}

// Rebase swaps the pool's backing state, called once a new block has
// been attached so subsequent speculation reads through to it, and
// opens a fresh overlay over the new backing.
func (p *Pool) Rebase(backing state.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backing = backing
	p.overlay = state.NewMemStateDB(backing)
}

func hashFn(b []byte) common.Hash { return common.Hash(gwcrypto.Blake2b256(b)) }
