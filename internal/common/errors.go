package common

import (
	"errors"
	"fmt"
)

// Error taxonomy. Each kind carries a fixed
// classification so callers at the RPC boundary and the mempool can
// route it without string-matching.

// Protocol errors: the block/tx was malformed. Never retried.
var (
	ErrInvalidTxSignature    = errors.New("protocol: invalid transaction signature")
	ErrInvalidNonce          = errors.New("protocol: invalid nonce")
	ErrUnknownAccount        = errors.New("protocol: unknown account")
	ErrUnknownBackend        = errors.New("protocol: unknown backend")
	ErrInvalidChallengeTarget = errors.New("protocol: invalid challenge target")
	ErrOwnerLockMismatch     = errors.New("protocol: owner lock mismatch")
	ErrV1DepositLockMismatch = errors.New("protocol: v1 deposit lock mismatch")
	ErrMinCapacity           = errors.New("protocol: below minimum cell capacity")
	ErrInsufficientCustodian = errors.New("protocol: insufficient custodian")
)

// Resource errors: surfaced to the mempool; may be retried later.
var (
	ErrInsufficientPoolCycles = errors.New("resource: insufficient pool cycles")
	ErrWitnessSizeExceeded    = errors.New("resource: witness size exceeded")
)

// Integrity errors: a local invariant is violated. Fatal.
var (
	ErrInconsistentState  = errors.New("integrity: inconsistent state")
	ErrMerkleProofFailed  = errors.New("integrity: merkle proof verification failed")
	ErrChecksumMismatch   = errors.New("integrity: checksum mismatch")
)

// State-store specific errors.
var (
	ErrInsufficientBalance = errors.New("state: insufficient balance")
	ErrAmountOverflow      = errors.New("state: amount overflow")
	ErrMissingScript       = errors.New("state: script not present in code store")
)

// ErrL1Forked reports a synchroniser invariant violation: a non-empty
// L1 reorg is unsupported and must halt the node rather than guess at
// fork-replay semantics.
var ErrL1Forked = errors.New("chain: layer1 chain has forked")

// ExceededMaxBlockCyclesError reports that a single transaction's cycle
// consumption exceeded the configured per-tx cap.
type ExceededMaxBlockCyclesError struct {
	Cycles uint64
	Limit  uint64
}

func (e *ExceededMaxBlockCyclesError) Error() string {
	return fmt.Sprintf("resource: exceeded max cycles: used %d, limit %d", e.Cycles, e.Limit)
}

// InvalidExitCodeError wraps a non-zero Generator exit code. This is not
// a node error: it is recorded in the transaction receipt and surfaced
// to the caller, never causing block rejection.
type InvalidExitCodeError struct {
	ExitCode int8
}

func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("execution: non-zero exit code %d", e.ExitCode)
}

// DepositError classifies a rejected deposit application.
type DepositError struct {
	Reason string
}

func (e *DepositError) Error() string { return "deposit: " + e.Reason }

// DepositFakedCKB is returned when a deposit's SUDT amount is nonzero
// but its script hash claims no SUDT at all.
func DepositFakedCKB() error { return &DepositError{Reason: "faked CKB amount"} }

// WithdrawalError classifies a rejected withdrawal application.
type WithdrawalError struct {
	Reason string
}

func (e *WithdrawalError) Error() string { return "withdrawal: " + e.Reason }

// WithdrawalOverdraft is returned when a withdrawal would exceed the
// sender's balance.
func WithdrawalOverdraft() error { return &WithdrawalError{Reason: "overdraft"} }
