// Package chain implements the chain synchroniser: a Running/Halting
// reducer over a stream of L1 actions (submitted blocks, challenges,
// cancel-challenges, reverts) that keeps local Layer-2 state caught up
// with whatever the Layer-1 rollup cell has most recently committed to.
// Grounded on rollup/anchor_chain_tracker.go and
// rollup/state_bridge_sync.go's mutex-guarded reducer/journal shape,
// generalized from a single anchor-tracking reducer into the
// Running/Halting state machine below.
package chain

import "github.com/godwokenrises/godwoken-sub002/internal/common"

// CommittedInfo pins an L1Action to the L1 transaction that committed it.
type CommittedInfo struct {
	L1BlockNumber uint64
	L1TxHash      common.Hash
	TimestampMs   uint64
}

// ActionContext is the discriminated union of everything an L1 action
// can carry: exactly one of SubmitBlockContext, ChallengeContext,
// CancelChallengeContext, or RevertContext.
type ActionContext interface {
	isActionContext()
}

// SubmitBlockContext is a new Layer-2 block committed to L1, along with
// the deposit requests it consumed and any previously-bad blocks the L1
// transaction reverted in the same step.
type SubmitBlockContext struct {
	Block               common.Block
	Deposits            []common.Deposit
	RevertedBlockHashes []common.Hash
}

func (SubmitBlockContext) isActionContext() {}

// ChallengeContext names a disputed fact within a specific block,
// opened on L1 against the rollup cell.
type ChallengeContext struct {
	Target  common.ChallengeTarget
	Witness []byte
}

func (ChallengeContext) isActionContext() {}

// CancelChallengeContext closes an open challenge: the defender
// produced a valid state transition proof disproving it.
type CancelChallengeContext struct{}

func (CancelChallengeContext) isActionContext() {}

// RevertContext names the blocks an L1 revert transaction erased, in
// any order: the synchroniser sorts them highest block number first,
// the order DetachBlock requires, before detaching.
type RevertContext struct {
	RevertedBlockNumbers []uint64
}

func (RevertContext) isActionContext() {}

// L1Action is one parsed rollup-cell-update transaction observed on L1.
type L1Action struct {
	Transaction   common.Hash
	CommittedInfo CommittedInfo
	Context       ActionContext
}

// EventKind classifies what applying an L1Action produced.
type EventKind uint8

const (
	// EventSuccess means the action applied cleanly with no dispute.
	EventSuccess EventKind = iota
	// EventBadBlock means a submitted block failed local replay: the
	// synchroniser has recorded it and stays Running until an L1
	// challenge moves it to Halting.
	EventBadBlock
	// EventWaitChallenge means an L1 challenge was observed against a
	// block this node already believes (or now independently confirms)
	// is bad; the right response is to let it run, not contest it.
	EventWaitChallenge
	// EventBadChallenge means an L1 challenge targets a block this node
	// believes is valid; Plan carries what a defender would need to
	// cancel it.
	EventBadChallenge
)

// CancelChallengePlan is what processChallenge hands back when an
// observed challenge is judged bad: the target it disputes and the
// witness bytes a defender would submit to cancel it.
type CancelChallengePlan struct {
	Target  common.ChallengeTarget
	Witness []byte
}

// Event is the result of applying a single L1Action.
type Event struct {
	Kind     EventKind
	BadBlock *common.ChallengeTarget
	Plan     *CancelChallengePlan
}
