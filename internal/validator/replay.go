// ReplayValidator is the independent read-only replay check: grounded
// on crates/block-producer/src/db_block_validator.rs's
// DBBlockCancelChallengeValidator, it re-derives an already-attached
// block's post-account root by replaying the block's own recorded
// deposits, withdrawals, and transactions against the account tree as
// it stood immediately before the block, and compares the result
// against the root the block itself claims. Unlike Validator (C9)
// above, it never builds a cancel-challenge witness or tracks a byte
// or cycle budget — it only asks whether history, replayed from
// scratch, still agrees with what was recorded.
package validator

import (
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/challenge"
	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/kv"
	"github.com/godwokenrises/godwoken-sub002/internal/producer"
	"github.com/godwokenrises/godwoken-sub002/internal/smt"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// Mismatch reports one block whose replayed post-account state
// disagrees with what the block itself recorded.
type Mismatch struct {
	BlockNumber uint64
	GotRoot     common.Hash
	WantRoot    common.Hash
	GotCount    uint32
	WantCount   uint32
}

func (m Mismatch) Error() string {
	return fmt.Sprintf("validator: block %d replayed to root %s (count %d), block claims root %s (count %d)",
		m.BlockNumber, m.GotRoot, m.GotCount, m.WantRoot, m.WantCount)
}

// ReplayValidator replays attached blocks through the same Producer
// that originally produced them, against a tree forked from each
// block's own pre-block snapshot, never touching or advancing any live
// state the rest of the node keeps.
type ReplayValidator struct {
	prod *producer.Producer
}

// NewReplayValidator returns a ReplayValidator replaying blocks through prod.
func NewReplayValidator(prod *producer.Producer) *ReplayValidator {
	return &ReplayValidator{prod: prod}
}

// VerifyBlock replays in's deposits, withdrawals, and transactions
// against a tree forked from in.PreBlock and reports a *Mismatch if the
// resulting account root or account count disagrees with in.Raw's own
// PostAccount, or if the recomputed block hash disagrees with in.Raw's
// identity hash. A nil error means the block replays exactly as
// recorded.
func (rv *ReplayValidator) VerifyBlock(txn kv.Txn, in challenge.BlockWitnessInput) error {
	tree := smt.At(in.PreBlock)
	s := state.NewRawState(txn, tree, in.PreBlockAccountCount, in.Raw.Number)

	out, err := rv.prod.ProduceBlock(s, producer.Input{
		Number:          in.Raw.Number,
		ParentBlockHash: in.Raw.ParentBlockHash,
		TimestampMs:     in.Raw.TimestampMs,
		BlockProducer:   in.Raw.BlockProducer,
		Deposits:        in.Deposits,
		Withdrawals:     in.Withdrawals,
		Txs:             in.Txs,
		MaxCyclesPerTx:  in.MaxCyclesPerTx,
	})
	if err != nil {
		return fmt.Errorf("validator: replaying block %d: %w", in.Raw.Number, err)
	}

	got := out.Block.Raw.PostAccount
	want := in.Raw.PostAccount
	if got.Root != want.Root || got.AccountCount != want.AccountCount {
		return &Mismatch{
			BlockNumber: in.Raw.Number,
			GotRoot:     got.Root,
			WantRoot:    want.Root,
			GotCount:    got.AccountCount,
			WantCount:   want.AccountCount,
		}
	}
	if gotHash := producer.BlockHash(out.Block.Raw); gotHash != producer.BlockHash(in.Raw) {
		return fmt.Errorf("validator: block %d replayed to a different identity hash %s than recorded %s",
			in.Raw.Number, gotHash, producer.BlockHash(in.Raw))
	}
	return nil
}

// BlockSource looks up the retained replay input for an attached
// block by number, reporting false if the node no longer retains it.
type BlockSource func(number uint64) (challenge.BlockWitnessInput, bool)

// VerifyRange replays every block numbered from..to (inclusive)
// available from source, collecting one Mismatch per block that fails
// to reproduce its recorded state, mirroring verify_db's
// range-at-a-time sweep. A block source misses (already pruned or not
// yet attached) are skipped rather than treated as failures.
func (rv *ReplayValidator) VerifyRange(txn kv.Txn, from, to uint64, source BlockSource) []error {
	var failures []error
	for n := from; n <= to; n++ {
		in, ok := source(n)
		if !ok {
			continue
		}
		if err := rv.VerifyBlock(txn, in); err != nil {
			failures = append(failures, err)
		}
	}
	return failures
}
