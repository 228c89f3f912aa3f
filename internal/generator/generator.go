// Package generator implements transaction execution: it validates a
// Layer-2 transaction against the account model (nonce, signature,
// known back-end), dispatches it to whichever Backend owns the
// recipient's script, and enforces the per-transaction cycle budget,
// returning the RunResult the block producer folds into its checkpoint
// list.
package generator

import (
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/backend"
	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/gwcrypto"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// Generator dispatches transaction execution through a back-end
// Registry, enforcing the surrounding protocol checks (nonce,
// signature, cycle budget) that are common to every back-end.
type Generator struct {
	registry *backend.Registry
}

// New returns a Generator dispatching through registry.
func New(registry *backend.Registry) *Generator {
	return &Generator{registry: registry}
}

// BlockInfo is the subset of the block under construction a
// transaction's execution context needs.
type BlockInfo struct {
	Number        uint64
	TimestampMs   uint64
	BlockProducer common.RegistryAddress
}

// ExecuteTransaction runs tx against s. On any error the caller's own
// outer snapshot is expected to cover reverting s; ExecuteTransaction
// itself only guarantees that a rejected transaction never partially
// mutates s (it snapshots internally and reverts before returning an
// error).
func (g *Generator) ExecuteTransaction(block BlockInfo, s state.State, tx common.RawL2Transaction, maxCycles uint64) (common.RunResult, error) {
	snap := s.Snapshot()

	result, err := g.executeTransaction(block, s, tx, maxCycles)
	if err != nil {
		s.RevertToSnapshot(snap)
		return common.RunResult{}, err
	}
	return result, nil
}

func (g *Generator) executeTransaction(block BlockInfo, s state.State, tx common.RawL2Transaction, maxCycles uint64) (common.RunResult, error) {
	if err := g.validateNonce(s, tx); err != nil {
		return common.RunResult{}, err
	}
	if err := g.validateSignature(s, tx); err != nil {
		return common.RunResult{}, err
	}

	toScript, err := state.GetScript(s, tx.ToID)
	if err != nil {
		return common.RunResult{}, err
	}
	be, _, err := g.registry.GetBackend(block.Number, toScript.CodeHash)
	if err != nil {
		return common.RunResult{}, fmt.Errorf("%w: %v", common.ErrUnknownBackend, err)
	}

	if _, err := state.GetScript(s, tx.FromID); err != nil {
		return common.RunResult{}, err
	}

	ctx := backend.Context{
		BlockNumber:   block.Number,
		TimestampMs:   block.TimestampMs,
		BlockProducer: block.BlockProducer,
		ToAccountID:   tx.ToID,
		ToScript:      toScript,
		FromAccountID: tx.FromID,
	}

	result, err := be.Execute(ctx, s, tx)
	if err != nil {
		return common.RunResult{}, err
	}

	if result.CyclesExecution > maxCycles {
		return common.RunResult{}, &common.ExceededMaxBlockCyclesError{Cycles: result.CyclesExecution, Limit: maxCycles}
	}

	state.SetNonce(s, tx.FromID, tx.Nonce+1)
	result.AccountCountAfter = s.GetAccountCount()
	return result, nil
}

func (g *Generator) validateNonce(s state.State, tx common.RawL2Transaction) error {
	current := state.GetNonce(s, tx.FromID)
	if current != tx.Nonce {
		return fmt.Errorf("%w: account=%d expected=%d got=%d", common.ErrInvalidNonce, tx.FromID, current, tx.Nonce)
	}
	return nil
}

// validateSignature recovers the signer from tx's content hash
// (tx.Hash, which excludes the signature) and signature and checks it against the from-account's registered ETH
// address. An account that has never registered an address (and so
// can never have originated a signed L2 transaction through the normal
// path) rejects every signed tx outright.
func (g *Generator) validateSignature(s state.State, tx common.RawL2Transaction) error {
	if len(tx.Signature) == 0 {
		return fmt.Errorf("%w: missing signature", common.ErrInvalidTxSignature)
	}
	msgHash := tx.Hash(func(b []byte) common.Hash { return common.Hash(gwcrypto.Blake2b256(b)) })
	recovered, err := gwcrypto.RecoverAddress(msgHash, tx.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidTxSignature, err)
	}

	expectedID, ok := state.ResolveRegistryAddress(s, common.RegistryAddress{
		RegistryID: common.ETHRegistryAccountID,
		Address:    recovered[:],
	})
	if !ok || expectedID != tx.FromID {
		return fmt.Errorf("%w: recovered address does not own account %d", common.ErrInvalidTxSignature, tx.FromID)
	}
	return nil
}
