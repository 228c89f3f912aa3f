package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/godwokenrises/godwoken-sub002/internal/challenge"
	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/kv"
	"github.com/godwokenrises/godwoken-sub002/internal/producer"
	"github.com/godwokenrises/godwoken-sub002/internal/smt"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
	"github.com/godwokenrises/godwoken-sub002/internal/validator"
)

// ErrInvalidTransition reports an L1Action arriving in a status it
// cannot apply to — e.g. a Challenge while already Halting. The
// transition table admits no such pair; observing one means the L1
// feed or this node's own bookkeeping has diverged from the protocol.
var ErrInvalidTransition = errors.New("chain: invalid (status, action) transition")

// badBlockRecord is the synchroniser's memory of the one block it
// currently believes is fraudulent, kept until a CancelChallenge or
// Revert action resolves it.
type badBlockRecord struct {
	Target common.ChallengeTarget
	Number uint64
}

// Synchroniser is the Running/Halting reducer driving local state from
// a stream of L1 actions. It owns the node's local account tree and
// backing transaction directly, constructing one RawState per block it
// replays. Mutex-guarded so a caller can feed it from one goroutine
// while another inspects Status for RPC purposes.
type Synchroniser struct {
	mu sync.Mutex

	prod           *producer.Producer
	maxCyclesPerTx uint64

	txn          kv.Txn
	tree         *smt.Tree
	accountCount uint32
	tracker      *state.Tracker

	status      common.RollupStatus
	tip         uint64
	globalState common.GlobalState
	badBlock    *badBlockRecord

	hashToNumber        map[common.Hash]uint64
	accountCountAtBlock map[uint64]uint32
	revertedTree        *smt.Tree
	blockHashes         *smt.Tree
	blocks              map[uint64]blockRecord

	challenger *challenge.Builder
	replayer   *validator.ReplayValidator
}

// blockRecord is everything a challenge witness needs to reconstruct
// one already-applied block: its own content, plus the account-tree
// snapshot and account count as they stood immediately before it.
type blockRecord struct {
	raw                  common.RawBlock
	deposits             []common.Deposit
	withdrawals          []common.WithdrawalRequest
	txs                  []common.RawL2Transaction
	preBlock             smt.Snapshot
	preBlockAccountCount uint32
}

// revertedMarker is the leaf value recorded for a reverted block's hash
// in revertedTree; any non-zero value means "present", so one
// canonical marker is enough.
var revertedMarker = common.Hash{0: 1}

// New returns a Synchroniser starting from genesis, replaying blocks
// against txn/tree (the node's local durable account store) through
// prod, enforcing maxCyclesPerTx on every transaction it replays.
func New(prod *producer.Producer, txn kv.Txn, tree *smt.Tree, accountCount uint32, genesis common.GlobalState, maxCyclesPerTx uint64) *Synchroniser {
	return &Synchroniser{
		prod:                prod,
		maxCyclesPerTx:      maxCyclesPerTx,
		txn:                 txn,
		tree:                tree,
		accountCount:        accountCount,
		status:              common.RollupStatusRunning,
		globalState:         genesis,
		hashToNumber:        make(map[common.Hash]uint64),
		accountCountAtBlock: map[uint64]uint32{0: accountCount},
		revertedTree:        smt.New(),
		blockHashes:         smt.New(),
		blocks:              make(map[uint64]blockRecord),
		challenger:          challenge.NewBuilder(prod, prod.Generator()),
		replayer:            validator.NewReplayValidator(prod),
	}
}

// VerifyReplay independently re-derives every retained block numbered
// from..to (inclusive) by replaying its deposits, withdrawals, and
// transactions against its own pre-block snapshot, reporting one error
// per block whose replayed state disagrees with what it recorded.
// Blocks this node no longer retains are skipped rather than treated
// as failures.
func (c *Synchroniser) VerifyReplay(from, to uint64) []error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.replayer.VerifyRange(c.txn, from, to, func(n uint64) (challenge.BlockWitnessInput, bool) {
		rec, ok := c.blocks[n]
		if !ok {
			return challenge.BlockWitnessInput{}, false
		}
		return challenge.BlockWitnessInput{
			Raw:                  rec.raw,
			Deposits:             rec.deposits,
			Withdrawals:          rec.withdrawals,
			Txs:                  rec.txs,
			MaxCyclesPerTx:       c.maxCyclesPerTx,
			PreBlock:             rec.preBlock,
			PreBlockAccountCount: rec.preBlockAccountCount,
		}, true
	})
}

// SetTracker attaches t so every RawState the synchroniser opens from
// here on records the raw keys its block replay touches, for the
// challenge context builder to compile a witness from afterward.
func (c *Synchroniser) SetTracker(t *state.Tracker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker = t
}

// newBlockState opens a RawState bound to blockNumber over the
// synchroniser's own txn/tree, carrying forward the account count as
// of the last successfully applied block.
func (c *Synchroniser) newBlockState(blockNumber uint64) *state.RawState {
	s := state.NewRawState(c.txn, c.tree, c.accountCount, blockNumber)
	if c.tracker != nil {
		s.SetTracker(c.tracker)
	}
	return s
}

// Status returns the synchroniser's current Running/Halting state.
func (c *Synchroniser) Status() common.RollupStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Tip returns the highest locally-applied block number.
func (c *Synchroniser) Tip() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip
}

// BadBlock returns the currently-recorded bad block's target, or nil
// if none is outstanding.
func (c *Synchroniser) BadBlock() *common.ChallengeTarget {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.badBlock == nil {
		return nil
	}
	t := c.badBlock.Target
	return &t
}

// Sync applies updates in order, one L1Action at a time, stopping at
// the first non-success Event (a bad challenge or a wait condition
// needs the caller's attention before continuing). A non-empty reverts
// is an unsupported L1 reorg: ErrL1Forked is returned and nothing in
// updates is applied.
func (c *Synchroniser) Sync(updates []L1Action, reverts []L1Action) (Event, error) {
	if len(reverts) > 0 {
		return Event{}, common.ErrL1Forked
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, action := range updates {
		ev, err := c.apply(action)
		if err != nil {
			return Event{}, err
		}
		if ev.Kind != EventSuccess {
			return ev, nil
		}
	}
	return Event{Kind: EventSuccess}, nil
}

func (c *Synchroniser) apply(action L1Action) (Event, error) {
	switch ctx := action.Context.(type) {
	case SubmitBlockContext:
		if c.status != common.RollupStatusRunning {
			return Event{}, fmt.Errorf("%w: SubmitBlock while %v", ErrInvalidTransition, c.status)
		}
		return c.processSubmitBlock(ctx)

	case ChallengeContext:
		if c.status != common.RollupStatusRunning {
			return Event{}, fmt.Errorf("%w: Challenge while %v", ErrInvalidTransition, c.status)
		}
		return c.processChallenge(ctx)

	case CancelChallengeContext:
		if c.status != common.RollupStatusHalting {
			return Event{}, fmt.Errorf("%w: CancelChallenge while %v", ErrInvalidTransition, c.status)
		}
		c.badBlock = nil
		c.status = common.RollupStatusRunning
		return Event{Kind: EventSuccess}, nil

	case RevertContext:
		if c.status != common.RollupStatusHalting {
			return Event{}, fmt.Errorf("%w: Revert while %v", ErrInvalidTransition, c.status)
		}
		return c.processRevert(ctx)

	default:
		return Event{}, fmt.Errorf("%w: unrecognized L1 action context %T", ErrInvalidTransition, action.Context)
	}
}

// processSubmitBlock replays ctx.Block against local state. A
// resubmission of an already-recorded bad block short-circuits
// straight to EventBadBlock without replaying it a second time.
func (c *Synchroniser) processSubmitBlock(ctx SubmitBlockContext) (Event, error) {
	blockHash := producer.BlockHash(ctx.Block.Raw)

	var event Event
	if c.badBlock != nil && c.badBlock.Target.BlockHash == blockHash {
		event = Event{Kind: EventBadBlock, BadBlock: &c.badBlock.Target}
	} else {
		preBlock := c.tree.TakeSnapshot()
		preBlockAccountCount := c.accountCount

		s := c.newBlockState(ctx.Block.Raw.Number)
		out, err := c.prod.ProduceBlock(s, producer.Input{
			Number:            ctx.Block.Raw.Number,
			ParentBlockHash:   ctx.Block.Raw.ParentBlockHash,
			TimestampMs:       ctx.Block.Raw.TimestampMs,
			BlockProducer:     ctx.Block.Raw.BlockProducer,
			Deposits:          ctx.Deposits,
			Withdrawals:       ctx.Block.Withdrawals,
			Txs:               ctx.Block.Txs,
			MaxCyclesPerTx:    c.maxCyclesPerTx,
			RevertedBlockRoot: c.revertedTree.Root(),
			RollupConfigHash:  c.globalState.RollupConfigHash,
			Version:           c.globalState.Version,
			Status:            common.RollupStatusRunning,
			LastFinalized:     c.globalState.LastFinalizedBlockOrTime,
		})
		if err != nil {
			target, fraudErr := classifyRejection(blockHash, err)
			if fraudErr != nil {
				return Event{}, fraudErr
			}
			c.badBlock = &badBlockRecord{Target: target, Number: ctx.Block.Raw.Number}
			c.hashToNumber[target.BlockHash] = ctx.Block.Raw.Number
			event = Event{Kind: EventBadBlock, BadBlock: &target}
		} else {
			c.tip = ctx.Block.Raw.Number
			c.globalState = out.GlobalState
			c.accountCount = out.GlobalState.Account.AccountCount
			c.hashToNumber[blockHash] = ctx.Block.Raw.Number
			c.accountCountAtBlock[ctx.Block.Raw.Number] = c.accountCount
			c.blockHashes.Update(state.BlockNumberKey(ctx.Block.Raw.Number), blockHash)
			c.blocks[ctx.Block.Raw.Number] = blockRecord{
				raw:                  ctx.Block.Raw,
				deposits:             ctx.Deposits,
				withdrawals:          ctx.Block.Withdrawals,
				txs:                  ctx.Block.Txs,
				preBlock:             preBlock,
				preBlockAccountCount: preBlockAccountCount,
			}
			event = Event{Kind: EventSuccess}
		}
	}

	if err := c.applyReverted(ctx.RevertedBlockHashes); err != nil {
		return Event{}, err
	}
	return event, nil
}

// applyReverted detaches the local state of every block named by hash,
// highest number first as DetachBlock requires, and folds each hash
// into the reverted-block tree backing GlobalState.RevertedBlockRoot.
func (c *Synchroniser) applyReverted(hashes []common.Hash) error {
	if len(hashes) == 0 {
		return nil
	}
	numbers := make([]uint64, 0, len(hashes))
	for _, h := range hashes {
		n, ok := c.hashToNumber[h]
		if !ok {
			return fmt.Errorf("%w: reverted block hash %s never seen locally", common.ErrInconsistentState, h)
		}
		numbers = append(numbers, n)
		c.revertedTree.Update(h, revertedMarker)
		c.blockHashes.Update(state.BlockNumberKey(n), common.Hash{})
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] > numbers[j] })
	s := c.newBlockState(0)
	for _, n := range numbers {
		if err := s.DetachBlock(n); err != nil {
			return fmt.Errorf("chain: detaching reverted block %d: %w", n, err)
		}
		if n == c.tip {
			c.tip = n - 1
		}
		delete(c.accountCountAtBlock, n)
		delete(c.blocks, n)
	}
	c.accountCount = c.accountCountAtBlock[c.tip]
	return nil
}

// processChallenge judges an L1 challenge against this node's own view:
// a challenge naming the already-recorded bad block, or any block at or
// after it, is left to run (this node agrees or cannot yet disprove
// it); anything earlier is judged bad and a cancel-challenge plan is
// returned so a defender can contest it. Either way status moves to
// Halting — the chain does not keep producing on top of a disputed tip.
func (c *Synchroniser) processChallenge(ctx ChallengeContext) (Event, error) {
	c.status = common.RollupStatusHalting

	if c.badBlock != nil {
		if ctx.Target == c.badBlock.Target {
			return Event{Kind: EventWaitChallenge}, nil
		}
		targetNumber, ok := c.hashToNumber[ctx.Target.BlockHash]
		if ok && targetNumber >= c.badBlock.Number {
			return Event{Kind: EventWaitChallenge}, nil
		}
	}

	witness, err := c.cancelChallengeWitness(ctx)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Kind: EventBadChallenge,
		Plan: &CancelChallengePlan{Target: ctx.Target, Witness: witness},
	}, nil
}

// cancelChallengeWitness builds the bytes a defender would submit to
// cancel a bad challenge. When the targeted block is one this node
// itself retains (the common case: it produced the block and is now
// defending it), it assembles a real merkle-proof witness through
// internal/challenge. Otherwise — the challenge names a block this
// node never saw, so no local replay can justify anything — it falls
// back to echoing ctx's own witness bytes, on the assumption that they
// came from whatever process is feeding this node's L1 view.
func (c *Synchroniser) cancelChallengeWitness(ctx ChallengeContext) ([]byte, error) {
	if n, ok := c.hashToNumber[ctx.Target.BlockHash]; ok {
		if rec, ok := c.blocks[n]; ok {
			if payload, err := c.buildChallengeWitnessPayload(ctx.Target, rec); err == nil {
				return payload, nil
			}
		}
	}

	if len(ctx.Witness) == 0 {
		return nil, fmt.Errorf("%w: challenge against %s carries no witness to rebut", common.ErrInvalidChallengeTarget, ctx.Target.BlockHash)
	}
	out := make([]byte, len(ctx.Witness))
	copy(out, ctx.Witness)
	return out, nil
}

// buildChallengeWitnessPayload dispatches to the matching
// internal/challenge builder for rec's target type and JSON-encodes
// the resulting typed witness into an opaque payload, the same
// encoding a later "dump failing witness to disk" debugging aid would
// use.
func (c *Synchroniser) buildChallengeWitnessPayload(target common.ChallengeTarget, rec blockRecord) ([]byte, error) {
	in := challenge.BlockWitnessInput{
		Raw:                  rec.raw,
		Deposits:             rec.deposits,
		Withdrawals:          rec.withdrawals,
		Txs:                  rec.txs,
		MaxCyclesPerTx:       c.maxCyclesPerTx,
		PreBlock:             rec.preBlock,
		PreBlockAccountCount: rec.preBlockAccountCount,
	}

	switch target.TargetType {
	case common.ChallengeTargetWithdrawal:
		w, err := c.challenger.BuildWithdrawalWitness(c.txn, in, target.TargetIndex)
		if err != nil {
			return nil, err
		}
		return json.Marshal(w)

	case common.ChallengeTargetTxSignature:
		w, err := c.challenger.BuildTransactionSignatureWitness(c.txn, in, target.TargetIndex)
		if err != nil {
			return nil, err
		}
		return json.Marshal(w)

	case common.ChallengeTargetTxExecution:
		w, err := c.challenger.BuildTransactionExecutionWitness(c.txn, in, target.TargetIndex, c.blockHashes)
		if err != nil {
			return nil, err
		}
		return json.Marshal(w)

	default:
		return nil, fmt.Errorf("chain: unrecognized challenge target type %v", target.TargetType)
	}
}

// processRevert detaches every block named in ctx, highest number
// first, and requires the current bad block to be among them — a
// revert that leaves the disputed block standing cannot resolve the
// halt that a challenge against it caused.
func (c *Synchroniser) processRevert(ctx RevertContext) (Event, error) {
	if c.badBlock == nil {
		return Event{}, fmt.Errorf("%w: Revert with no outstanding bad block", ErrInvalidTransition)
	}
	numbers := append([]uint64(nil), ctx.RevertedBlockNumbers...)
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] > numbers[j] })

	includesBadBlock := false
	for _, n := range numbers {
		if n == c.badBlock.Number {
			includesBadBlock = true
		}
	}
	if !includesBadBlock {
		return Event{}, fmt.Errorf("%w: reverted set excludes bad block %d", common.ErrInconsistentState, c.badBlock.Number)
	}

	s := c.newBlockState(0)
	for _, n := range numbers {
		if hash := c.blockHashes.Get(state.BlockNumberKey(n)); !hash.IsZero() {
			c.revertedTree.Update(hash, revertedMarker)
			c.blockHashes.Update(state.BlockNumberKey(n), common.Hash{})
		}
		if err := s.DetachBlock(n); err != nil {
			return Event{}, fmt.Errorf("chain: detaching block %d: %w", n, err)
		}
		if n == c.tip {
			c.tip = n - 1
		}
		delete(c.accountCountAtBlock, n)
		delete(c.blocks, n)
	}
	c.accountCount = c.accountCountAtBlock[c.tip]

	c.badBlock = nil
	c.status = common.RollupStatusRunning
	return Event{Kind: EventSuccess}, nil
}

// classifyRejection turns a ProduceBlock replay error into a
// ChallengeTarget naming the rejected step, or returns a non-nil error
// when the rejection cannot be attributed to a challengeable fact.
// Deposits have no ChallengeTargetType of their own — a real deposit
// cell is validated by its own L1 lock script before the block ever
// reaches this node, so a rejected deposit here means local replay has
// diverged from L1-enforced invariants, not a disputable L2 fact.
func classifyRejection(blockHash common.Hash, err error) (common.ChallengeTarget, error) {
	var rej *producer.RejectionError
	if !errors.As(err, &rej) {
		return common.ChallengeTarget{}, fmt.Errorf("chain: non-attributable block replay failure: %w", err)
	}
	if rej.Phase == "deposit" {
		return common.ChallengeTarget{}, fmt.Errorf("%w: deposit %d rejected on replay: %v", common.ErrInconsistentState, rej.Index, rej.Err)
	}
	if !isProtocolFraud(rej.Err) {
		return common.ChallengeTarget{}, fmt.Errorf("chain: non-fraud rejection replaying block: %w", rej.Err)
	}

	targetType := common.ChallengeTargetTxExecution
	switch rej.Phase {
	case "withdrawal":
		targetType = common.ChallengeTargetWithdrawal
	case "tx":
		if errors.Is(rej.Err, common.ErrInvalidTxSignature) {
			targetType = common.ChallengeTargetTxSignature
		}
	}
	return common.ChallengeTarget{BlockHash: blockHash, TargetIndex: rej.Index, TargetType: targetType}, nil
}

// isProtocolFraud reports whether err is one of the sentinel classes a
// malicious or buggy block producer can trigger — as opposed to an
// integrity error meaning this node's own state has diverged, which
// should never be blamed on the submitted block.
func isProtocolFraud(err error) bool {
	sentinels := []error{
		common.ErrInvalidTxSignature,
		common.ErrInvalidNonce,
		common.ErrUnknownAccount,
		common.ErrUnknownBackend,
		common.ErrOwnerLockMismatch,
		common.ErrV1DepositLockMismatch,
		common.ErrMinCapacity,
		common.ErrInsufficientCustodian,
		common.ErrInsufficientBalance,
		common.ErrAmountOverflow,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	var cycles *common.ExceededMaxBlockCyclesError
	if errors.As(err, &cycles) {
		return true
	}
	var depErr *common.DepositError
	if errors.As(err, &depErr) {
		return true
	}
	var wErr *common.WithdrawalError
	if errors.As(err, &wErr) {
		return true
	}
	return false
}
