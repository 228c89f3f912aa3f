// Package validator implements the offchain validator (C9): before a
// producer commits to a candidate block, it replays the worst-case
// cancel-challenge witness for every withdrawal and every transaction
// in it (signature path and execution path), rejecting the block if
// any witness would overrun the byte-size budget a single Layer-1
// cancel-challenge transaction can carry, or the cycle budget a
// Layer-1 script run can spend. Grounded on
// crates/challenge/src/offchain.rs's OffChainCancelChallengeValidator
// and MarginOfMockBlockSafity: this port has no embedded CKB script
// VM to run the real mock transaction against, so "cycles" here is
// the same CyclesExecution internal/generator already meters for the
// execution target, and "tx size" is the JSON-encoded witness size —
// both stand in for the serialized L1 transaction the original
// measures directly.
package validator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/godwokenrises/godwoken-sub002/internal/challenge"
	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/kv"
	"github.com/godwokenrises/godwoken-sub002/internal/smt"
)

// maxBlockBytes mirrors ckb_chain_spec::consensus::MAX_BLOCK_BYTES.
const maxBlockBytes uint64 = 597_979

// maxTxWithdrawalProofSize mirrors MAX_TX_WITHDRAWAL_PROOF_SIZE: a
// sibling path of 33 hashes (32 bytes each) plus one leaf-presence byte.
const maxTxWithdrawalProofSize uint64 = 32*33 + 1

// MaxMockBlockSafetyTxSize is the per-cancel-challenge-transaction byte
// budget: a block's own size limit minus the proof overhead a
// withdrawal cancel-challenge always carries.
const MaxMockBlockSafetyTxSize uint64 = maxBlockBytes - maxTxWithdrawalProofSize

// MaxMockBlockSafetyCycles is the cycle budget a Layer-1 script run
// defending a single target may spend. TODO: relax once a tighter
// per-backend cycle estimate is available.
const MaxMockBlockSafetyCycles uint64 = 65_000_000

// ErrTxTooLarge reports a single simulated cancel-challenge witness
// that alone exceeds MaxMockBlockSafetyTxSize.
var ErrTxTooLarge = fmt.Errorf("validator: cancel-challenge witness exceeds %d bytes", MaxMockBlockSafetyTxSize)

// ErrBlockSizeBudgetExhausted reports a block whose accumulated
// witness sizes leave no remaining room for the next target's
// cancel-challenge transaction.
var ErrBlockSizeBudgetExhausted = fmt.Errorf("validator: block exhausted its %d-byte cancel-challenge budget", MaxMockBlockSafetyTxSize)

// ErrCyclesExceeded reports a simulated execution-target replay that
// spent more than MaxMockBlockSafetyCycles.
var ErrCyclesExceeded = fmt.Errorf("validator: cancel-challenge replay exceeded %d cycles", MaxMockBlockSafetyCycles)

// marginOfSafety tracks the shrinking byte budget across a block's
// withdrawals and transactions, mirroring
// MarginOfMockBlockSafity::check_and_update.
type marginOfSafety struct {
	remainPackageSize uint64
	havePrev          bool
	prevRawBlockSize  uint64
}

func newMarginOfSafety() marginOfSafety {
	return marginOfSafety{remainPackageSize: MaxMockBlockSafetyTxSize}
}

// rawBlockGrew selects the check_and_update(..., RawBlock::New) branch:
// rawBlockSize measures a candidate raw block that has grown to
// include one more entry since the previous check. rawBlockSame
// selects RawBlock::Prev: the same entry is being checked a second way
// (e.g. a tx's execution-target check after its signature-target
// check), so the raw block itself has not grown further.
func (m *marginOfSafety) checkAndUpdate(rawBlockSize, txSize uint64, rawBlockGrew bool) error {
	if txSize > MaxMockBlockSafetyTxSize {
		return fmt.Errorf("%w: got %d", ErrTxTooLarge, txSize)
	}

	if !m.havePrev {
		m.remainPackageSize = MaxMockBlockSafetyTxSize - txSize
		m.prevRawBlockSize = rawBlockSize
		m.havePrev = true
		return nil
	}

	newRemain := m.remainPackageSize
	if rawBlockGrew {
		diff := rawBlockSize - m.prevRawBlockSize
		if diff > m.remainPackageSize {
			return ErrBlockSizeBudgetExhausted
		}
		newRemain = m.remainPackageSize - diff
	}

	txRemain := MaxMockBlockSafetyTxSize - txSize
	if txRemain < newRemain {
		newRemain = txRemain
	}
	m.remainPackageSize = newRemain
	m.prevRawBlockSize = rawBlockSize
	return nil
}

// Validator simulates cancel-challenge witnesses for a candidate block
// through a challenge.Builder, dumping any witness whose simulation
// fails to dumpDir for debugging (dumping is skipped when dumpDir is
// empty).
type Validator struct {
	builder *challenge.Builder
	dumpDir string
	margin  marginOfSafety
	rawSize uint64
}

// New returns a Validator building witnesses through builder, dumping
// failing cancel-challenge witnesses under dumpDir.
func New(builder *challenge.Builder, dumpDir string) *Validator {
	return &Validator{builder: builder, dumpDir: dumpDir, margin: newMarginOfSafety()}
}

// Reset clears accumulated budget state, for reuse across blocks.
func (v *Validator) Reset() {
	v.margin = newMarginOfSafety()
	v.rawSize = 0
}

// withdrawalEntrySize approximates a withdrawal request's contribution
// to a growing candidate raw block's serialized size.
func withdrawalEntrySize(w common.WithdrawalRequest) uint64 {
	return uint64(4 + 4 + len(w.FromRegistry.Address) + 8 + common.HashLength + 8 + 8 + common.HashLength + len(w.Signature))
}

// txEntrySize approximates a transaction's contribution to a growing
// candidate raw block's serialized size.
func txEntrySize(tx common.RawL2Transaction) uint64 {
	return uint64(4 + 4 + 4 + len(tx.Args) + 8 + 8 + len(tx.Signature))
}

// VerifyWithdrawal simulates the withdrawal-target cancel-challenge
// witness for in.Withdrawals[index], appended as the latest entry of a
// growing candidate block, rejecting it if the witness would overrun
// the block's remaining cancel-challenge budget.
func (v *Validator) VerifyWithdrawal(txn kv.Txn, in challenge.BlockWitnessInput, index uint32) error {
	w, err := v.builder.BuildWithdrawalWitness(txn, in, index)
	if err != nil {
		return fmt.Errorf("validator: building withdrawal %d witness: %w", index, err)
	}

	v.rawSize += withdrawalEntrySize(in.Withdrawals[index])
	payload, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("validator: encoding withdrawal %d witness: %w", index, err)
	}

	if err := v.margin.checkAndUpdate(v.rawSize, uint64(len(payload)), true); err != nil {
		v.dump(fmt.Sprintf("withdrawal-%d", index), payload)
		return err
	}
	return nil
}

// VerifyTransaction simulates both the tx-signature and tx-execution
// cancel-challenge witnesses for in.Txs[index], in that order, exactly
// as crates/challenge/src/offchain.rs's verify_transaction does:
// the signature-target check grows the candidate block's raw size,
// the execution-target check re-examines the same entry without
// growing it further, and the execution replay's own cycle count is
// checked against the cycle budget.
func (v *Validator) VerifyTransaction(txn kv.Txn, in challenge.BlockWitnessInput, index uint32, blockHashes *smt.Tree) error {
	sigWitness, err := v.builder.BuildTransactionSignatureWitness(txn, in, index)
	if err != nil {
		return fmt.Errorf("validator: building tx %d signature witness: %w", index, err)
	}
	v.rawSize += txEntrySize(in.Txs[index])
	sigPayload, err := json.Marshal(sigWitness)
	if err != nil {
		return fmt.Errorf("validator: encoding tx %d signature witness: %w", index, err)
	}
	if err := v.margin.checkAndUpdate(v.rawSize, uint64(len(sigPayload)), true); err != nil {
		v.dump(fmt.Sprintf("tx-%d-signature", index), sigPayload)
		return err
	}

	execWitness, err := v.builder.BuildTransactionExecutionWitness(txn, in, index, blockHashes)
	if err != nil {
		return fmt.Errorf("validator: building tx %d execution witness: %w", index, err)
	}
	execPayload, err := json.Marshal(execWitness)
	if err != nil {
		return fmt.Errorf("validator: encoding tx %d execution witness: %w", index, err)
	}
	if err := v.margin.checkAndUpdate(v.rawSize, uint64(len(execPayload)), false); err != nil {
		v.dump(fmt.Sprintf("tx-%d-execution", index), execPayload)
		return err
	}
	if execWitness.CyclesExecution > MaxMockBlockSafetyCycles {
		v.dump(fmt.Sprintf("tx-%d-execution", index), execPayload)
		return fmt.Errorf("%w: tx %d spent %d", ErrCyclesExceeded, index, execWitness.CyclesExecution)
	}
	return nil
}

// dump writes payload to "<label>-offchain-cancel-tx.json" under
// dumpDir for later inspection, swallowing any write error the same
// way dump_tx_to_file logs and continues rather than aborting the
// validator over a debugging aid. A no-op when dumpDir is empty.
func (v *Validator) dump(label string, payload []byte) {
	if v.dumpDir == "" {
		return
	}
	if err := os.MkdirAll(v.dumpDir, 0o755); err != nil {
		return
	}
	path := filepath.Join(v.dumpDir, label+"-offchain-cancel-tx.json")
	_ = os.WriteFile(path, payload, 0o644)
}
