package backend

import (
	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// Context carries everything a Backend's Execute needs beyond the tx
// itself: the producing block's header fields a script may read via
// the load_block_info syscall, and the account id the tx is addressed
// to (already resolved and script-loaded by the generator).
type Context struct {
	BlockNumber    uint64
	TimestampMs    uint64
	BlockProducer  common.RegistryAddress
	ToAccountID    uint32
	ToScript       common.Script
	FromAccountID  uint32
}

// Backend executes one Layer-2 transaction addressed to an account
// running its code. Concrete backends are registered into a Registry
// keyed by the fork height their checksum activates at.
type Backend interface {
	// Checksum identifies this exact build of the backend's logic, used
	// to catch a Registry entry pointing at the wrong implementation.
	Checksum() common.Hash

	// Execute runs tx against s, returning the same RunResult shape
	// every backend produces regardless of internal logic. A non-nil
	// error means the transaction could not be dispatched at all (e.g.
	// malformed args) as distinct from running and reverting, which is
	// reported via RunResult.ExitCode.
	Execute(ctx Context, s state.State, tx common.RawL2Transaction) (common.RunResult, error)
}
