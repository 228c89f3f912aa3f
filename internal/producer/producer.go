// Package producer implements block production: it
// applies a block's deposits, then withdrawals, then transactions
// against a RawState in that fixed order, recording a checkpoint after
// the deposits and after each transaction (none after the withdrawals),
// and assembles the resulting GlobalState.
package producer

import (
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/backend"
	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/generator"
	"github.com/godwokenrises/godwoken-sub002/internal/gwcrypto"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// Producer builds blocks against a RawState using a Generator to run
// transactions.
type Producer struct {
	gen *generator.Generator
}

// RejectionError names exactly which phase and index of a block's
// deposits/withdrawals/transactions was rejected, alongside the
// underlying cause. A synchroniser replaying a submitted block uses
// this to build the ChallengeTarget a fraud proof would need, rather
// than string-matching ProduceBlock's error text.
type RejectionError struct {
	Phase string // "deposit", "withdrawal", or "tx"
	Index uint32
	Err   error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("producer: %s %d rejected: %v", e.Phase, e.Index, e.Err)
}

func (e *RejectionError) Unwrap() error { return e.Err }

// New returns a Producer dispatching transaction execution through gen.
func New(gen *generator.Generator) *Producer {
	return &Producer{gen: gen}
}

// Generator exposes the Generator a Producer dispatches transaction
// execution through, for a challenge witness builder that must replay
// the same transactions the same way.
func (p *Producer) Generator() *generator.Generator {
	return p.gen
}

// Input is everything ProduceBlock needs beyond the open RawState.
type Input struct {
	Number            uint64
	ParentBlockHash   common.Hash
	TimestampMs       uint64
	BlockProducer     common.RegistryAddress
	Deposits          []common.Deposit
	Withdrawals       []common.WithdrawalRequest
	Txs               []common.RawL2Transaction
	MaxCyclesPerTx    uint64
	RevertedBlockRoot common.Hash
	RollupConfigHash  common.Hash
	Version           common.GlobalStateVersion
	Status            common.RollupStatus
	LastFinalized     uint64
}

// Output is the produced block alongside the GlobalState it commits to.
type Output struct {
	Block       common.Block
	GlobalState common.GlobalState
	TxResults   []common.RunResult
}

// ProduceBlock runs in.Deposits, then in.Withdrawals, then in.Txs
// against s in that order,
// recording a PostStateCheckpoint after every transaction and
// surfacing the first rejection as an error without partially applying
// later entries of the same phase.
func (p *Producer) ProduceBlock(s *state.RawState, in Input) (*Output, error) {
	prevRoot := s.RootHash()
	prevCount := s.GetAccountCount()

	// A block is all-or-nothing: a rejection at any phase must leave s
	// exactly as ProduceBlock found it, since a caller replaying a
	// submitted block keeps reusing the same tree for whatever it
	// replays next.
	checkpoint := s.Snapshot()

	s.MarkSubState(state.PreBlockSubState())
	if err := p.applyDeposits(s, in.Deposits); err != nil {
		s.RevertToSnapshot(checkpoint)
		return nil, err
	}
	preStateCheckpoint := s.Checkpoint()

	withdrawalWitnesses := make([]common.Hash, 0, len(in.Withdrawals))
	for i, w := range in.Withdrawals {
		s.MarkSubState(state.WithdrawalSubState(uint32(i)))
		if err := p.applyWithdrawal(s, w); err != nil {
			s.RevertToSnapshot(checkpoint)
			return nil, &RejectionError{Phase: "withdrawal", Index: uint32(i), Err: err}
		}
		withdrawalWitnesses = append(withdrawalWitnesses, w.WitnessHash(witnessHashFn))
	}

	txWitnesses := make([]common.Hash, 0, len(in.Txs))
	postCheckpoints := make([]common.Hash, 0, len(in.Txs))
	results := make([]common.RunResult, 0, len(in.Txs))
	for i, tx := range in.Txs {
		s.MarkSubState(state.TxSubState(uint32(i)))
		result, err := p.gen.ExecuteTransaction(generator.BlockInfo{
			Number:        in.Number,
			TimestampMs:   in.TimestampMs,
			BlockProducer: in.BlockProducer,
		}, s, tx, in.MaxCyclesPerTx)
		if err != nil {
			s.RevertToSnapshot(checkpoint)
			return nil, &RejectionError{Phase: "tx", Index: uint32(i), Err: err}
		}
		results = append(results, result)
		txWitnesses = append(txWitnesses, tx.WitnessHash(witnessHashFn))
		postCheckpoints = append(postCheckpoints, s.Checkpoint())
	}

	s.MarkSubState(state.BlockSubState())
	if err := s.FinaliseBlock(); err != nil {
		return nil, fmt.Errorf("producer: finalising block: %w", err)
	}

	postAccount := common.AccountMerkleState{Root: s.RootHash(), AccountCount: s.GetAccountCount()}
	raw := common.RawBlock{
		Number:          in.Number,
		ParentBlockHash: in.ParentBlockHash,
		TimestampMs:     in.TimestampMs,
		BlockProducer:   in.BlockProducer,
		PrevAccount:     common.AccountMerkleState{Root: prevRoot, AccountCount: prevCount},
		PostAccount:     postAccount,
		SubmitWithdrawals: common.SubmitWithdrawals{
			WithdrawalWitnessRoot: merkleRootOf(withdrawalWitnesses),
			WithdrawalCount:       uint32(len(in.Withdrawals)),
		},
		SubmitTransactions: common.SubmitTransactions{
			PrevStateCheckpoint:     preStateCheckpoint,
			TxWitnessRoot:           merkleRootOf(txWitnesses),
			TxCount:                 uint32(len(in.Txs)),
			PostStateCheckpointList: postCheckpoints,
		},
	}

	block := common.Block{Raw: raw, Withdrawals: in.Withdrawals, Txs: in.Txs}
	blockHash := BlockHash(raw)

	gs := common.GlobalState{
		Account:                  postAccount,
		Block:                    common.AccountMerkleState{Root: blockHash, AccountCount: uint32(in.Number + 1)},
		RevertedBlockRoot:        in.RevertedBlockRoot,
		LastFinalizedBlockOrTime: in.LastFinalized,
		Status:                   in.Status,
		TipBlockHash:             blockHash,
		TipBlockTimestamp:        in.TimestampMs,
		RollupConfigHash:         in.RollupConfigHash,
		Version:                  in.Version,
	}

	return &Output{Block: block, GlobalState: gs, TxResults: results}, nil
}

func witnessHashFn(b []byte) common.Hash { return common.Hash(gwcrypto.WitnessHash(b)) }

// BlockHash computes a RawBlock's identity hash: the same commitment a
// synchroniser replaying a submitted block recomputes to check it
// against the block the block producer that submitted it claims to
// have produced.
func BlockHash(raw common.RawBlock) common.Hash {
	buf := make([]byte, 0, 8+common.HashLength)
	var numBuf [8]byte
	for i := 0; i < 8; i++ {
		numBuf[i] = byte(raw.Number >> (8 * i))
	}
	buf = append(buf, numBuf[:]...)
	buf = append(buf, raw.ParentBlockHash[:]...)
	buf = append(buf, raw.PostAccount.Root[:]...)
	return common.Hash(gwcrypto.Blake2b256(buf))
}

// merkleRootOf computes a simple binary Merkle root over witness
// hashes so the root is stable regardless of batch size.
func merkleRootOf(hashes []common.Hash) common.Hash {
	if len(hashes) == 0 {
		return common.ZeroHash
	}
	level := make([]common.Hash, len(hashes))
	copy(level, hashes)
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, common.Hash(gwcrypto.SMTBranchHash([32]byte(level[i]), [32]byte(level[i+1]))))
			} else {
				next = append(next, common.Hash(gwcrypto.SMTBranchHash([32]byte(level[i]), [32]byte(level[i]))))
			}
		}
		level = next
	}
	return level[0]
}
