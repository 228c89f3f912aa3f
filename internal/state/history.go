package state

import (
	"encoding/binary"
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/kv"
)

// SubState distinguishes the several logical checkpoints within one
// block's production, so history can answer "what was this key's value
// just before withdrawal #2 of block 9" as well as "just before the
// block".
type SubState struct {
	Kind  SubStateKind
	Index uint32 // meaningful only for Withdrawal/Tx
}

type SubStateKind uint8

const (
	SubStatePreBlock SubStateKind = iota
	SubStateWithdrawal
	SubStateTx
	SubStateBlock
)

func (s SubState) encode() []byte {
	buf := make([]byte, 1+4)
	buf[0] = byte(s.Kind)
	binary.BigEndian.PutUint32(buf[1:], s.Index)
	return buf
}

// PreBlockSubState is the checkpoint taken before any deposit of the
// block under construction has been applied.
func PreBlockSubState() SubState { return SubState{Kind: SubStatePreBlock} }

// WithdrawalSubState is the checkpoint taken after applying withdrawal
// number idx (0-based) of the block under construction.
func WithdrawalSubState(idx uint32) SubState { return SubState{Kind: SubStateWithdrawal, Index: idx} }

// TxSubState is the checkpoint taken after applying transaction number
// idx (0-based) of the block under construction.
func TxSubState(idx uint32) SubState { return SubState{Kind: SubStateTx, Index: idx} }

// BlockSubState is the checkpoint taken once a whole block has been
// finalised.
func BlockSubState() SubState { return SubState{Kind: SubStateBlock} }

// historyKey derives the rawdb key a prior value of rawKey is recorded
// under, for the given block number and sub-state.
func historyKey(blockNumber uint64, sub SubState, rawKey common.Hash) []byte {
	buf := make([]byte, 8+5+common.HashLength)
	binary.BigEndian.PutUint64(buf[:8], blockNumber)
	copy(buf[8:13], sub.encode())
	copy(buf[13:], rawKey[:])
	return buf
}

// history records, per block, the previous value of every raw key that
// a block's production touched, indexed by (block_number, sub_state,
// key). It is the durable counterpart to the in-memory journal: the
// journal reverts a live, uncommitted mutation; history lets a
// committed block be detached (reorg) by replaying its records
// backwards. Grounded on core/state/state_history.go.
type history struct {
	store kv.Store
}

func newHistory(store kv.Store) *history {
	return &history{store: store}
}

// record appends, within txn, the fact that at (blockNumber, sub) the
// raw key `key` previously held `prevValue`. Only the first write to a
// key within one (blockNumber, sub) is recorded, so the stored value is
// the one the key held before that sub-state touched it.
func (h *history) record(txn kv.Txn, blockNumber uint64, sub SubState, key, prevValue common.Hash) error {
	k := historyKey(blockNumber, sub, key)
	if _, err := txn.Get(kv.ColumnHistoryState, k); err == nil {
		return nil
	} else if err != kv.ErrNotFound {
		return err
	}
	return txn.Put(kv.ColumnHistoryState, k, prevValue[:])
}

// lastRecordedBlock returns the highest block number with recorded
// history, or 0 if none.
func (h *history) lastRecordedBlock(r kv.Reader) (uint64, bool, error) {
	v, err := r.Get(kv.ColumnMeta, kv.MetaKeyLastHistoryBlock)
	if err == kv.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return binary.BigEndian.Uint64(v), true, nil
}

// DetachBlockState undoes every raw-key mutation recorded for block n,
// replaying the records in reverse to restore the SMT leaves to their
// pre-block values, and removes n's history records. Code-store inserts
// are not recorded in history and stay in place. Reorg safety requires
// blocks to be detached in strict descending order; detaching a block
// above the last recorded one (such as the same block twice) is a no-op,
// detaching a block below it is an error.
func (h *history) DetachBlockState(txn kv.Txn, tree *smtTreeView, n uint64) error {
	last, ok, err := h.lastRecordedBlock(txn)
	if err != nil {
		return err
	}
	if !ok {
		return nil // nothing recorded; treat as already-detached
	}
	if n > last {
		return nil // already detached
	}
	if n < last {
		return fmt.Errorf("%w: attempted to detach %d while %d is still attached", common.ErrInconsistentState, n, last)
	}

	prefix := make([]byte, 8)
	binary.BigEndian.PutUint64(prefix, n)
	it := txn.IterPrefix(kv.ColumnHistoryState, prefix)
	defer it.Release()

	type restore struct {
		key, prevValue common.Hash
	}
	var restores []restore
	for it.Next() {
		k := it.Key()
		if len(k) < 8+5+common.HashLength {
			continue
		}
		var key, prevValue common.Hash
		copy(key[:], k[8+5:8+5+common.HashLength])
		copy(prevValue[:], it.Value())
		restores = append(restores, restore{key: key, prevValue: prevValue})
		if err := txn.Delete(kv.ColumnHistoryState, k); err != nil {
			return err
		}
	}
	if err := it.Error(); err != nil {
		return err
	}
	for i := len(restores) - 1; i >= 0; i-- {
		r := restores[i]
		tree.tree.Update(r.key, r.prevValue)
	}

	if n == 0 {
		return txn.Delete(kv.ColumnMeta, kv.MetaKeyLastHistoryBlock)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n-1)
	return txn.Put(kv.ColumnMeta, kv.MetaKeyLastHistoryBlock, buf)
}

// setLastRecordedBlock advances the high-water mark after a block's
// mutations have all been recorded.
func (h *history) setLastRecordedBlock(txn kv.Txn, n uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return txn.Put(kv.ColumnMeta, kv.MetaKeyLastHistoryBlock, buf)
}

// smtTreeView is the narrow surface history needs from *smt.Tree,
// satisfied by RawState's embedded tree.
type smtTreeView struct {
	tree interface {
		Update(key, value common.Hash)
	}
}
