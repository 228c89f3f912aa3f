package rpctypes

import "github.com/godwokenrises/godwoken-sub002/internal/common"

// AccountMerkleState is the JSON mirror of common.AccountMerkleState.
type AccountMerkleState struct {
	Root         common.Hash `json:"root"`
	AccountCount Uint32      `json:"count"`
}

func accountMerkleStateFromDomain(s common.AccountMerkleState) AccountMerkleState {
	return AccountMerkleState{Root: s.Root, AccountCount: Uint32(s.AccountCount)}
}

func (s AccountMerkleState) toDomain() common.AccountMerkleState {
	return common.AccountMerkleState{Root: s.Root, AccountCount: uint32(s.AccountCount)}
}

// SubmitWithdrawals is the JSON mirror of common.SubmitWithdrawals.
type SubmitWithdrawals struct {
	WithdrawalWitnessRoot common.Hash `json:"withdrawal_witness_root"`
	WithdrawalCount       Uint32      `json:"withdrawal_count"`
}

// SubmitTransactions is the JSON mirror of common.SubmitTransactions.
type SubmitTransactions struct {
	PrevStateCheckpoint     common.Hash   `json:"prev_state_checkpoint"`
	TxWitnessRoot           common.Hash   `json:"tx_witness_root"`
	TxCount                 Uint32        `json:"tx_count"`
	PostStateCheckpointList []common.Hash `json:"post_state_checkpoint_list"`
}

// RawBlock is the JSON mirror of common.RawBlock.
type RawBlock struct {
	Number             Uint64             `json:"number"`
	ParentBlockHash    common.Hash        `json:"parent_block_hash"`
	TimestampMs        Uint64             `json:"timestamp"`
	BlockProducer      RegistryAddress    `json:"block_producer"`
	PrevAccount        AccountMerkleState `json:"prev_account"`
	PostAccount        AccountMerkleState `json:"post_account"`
	SubmitWithdrawals  SubmitWithdrawals  `json:"submit_withdrawals"`
	SubmitTransactions SubmitTransactions `json:"submit_transactions"`
}

// RawBlockFromDomain renders raw as its JSON wire form.
func RawBlockFromDomain(raw common.RawBlock) RawBlock {
	return RawBlock{
		Number:          Uint64(raw.Number),
		ParentBlockHash: raw.ParentBlockHash,
		TimestampMs:     Uint64(raw.TimestampMs),
		BlockProducer:   RegistryAddressFromDomain(raw.BlockProducer),
		PrevAccount:     accountMerkleStateFromDomain(raw.PrevAccount),
		PostAccount:     accountMerkleStateFromDomain(raw.PostAccount),
		SubmitWithdrawals: SubmitWithdrawals{
			WithdrawalWitnessRoot: raw.SubmitWithdrawals.WithdrawalWitnessRoot,
			WithdrawalCount:       Uint32(raw.SubmitWithdrawals.WithdrawalCount),
		},
		SubmitTransactions: SubmitTransactions{
			PrevStateCheckpoint:     raw.SubmitTransactions.PrevStateCheckpoint,
			TxWitnessRoot:           raw.SubmitTransactions.TxWitnessRoot,
			TxCount:                 Uint32(raw.SubmitTransactions.TxCount),
			PostStateCheckpointList: raw.SubmitTransactions.PostStateCheckpointList,
		},
	}
}

// ToDomain reconstructs the common.RawBlock raw describes.
func (raw RawBlock) ToDomain() common.RawBlock {
	return common.RawBlock{
		Number:          uint64(raw.Number),
		ParentBlockHash: raw.ParentBlockHash,
		TimestampMs:     uint64(raw.TimestampMs),
		BlockProducer:   raw.BlockProducer.ToDomain(),
		PrevAccount:     raw.PrevAccount.toDomain(),
		PostAccount:     raw.PostAccount.toDomain(),
		SubmitWithdrawals: common.SubmitWithdrawals{
			WithdrawalWitnessRoot: raw.SubmitWithdrawals.WithdrawalWitnessRoot,
			WithdrawalCount:       uint32(raw.SubmitWithdrawals.WithdrawalCount),
		},
		SubmitTransactions: common.SubmitTransactions{
			PrevStateCheckpoint:     raw.SubmitTransactions.PrevStateCheckpoint,
			TxWitnessRoot:           raw.SubmitTransactions.TxWitnessRoot,
			TxCount:                 uint32(raw.SubmitTransactions.TxCount),
			PostStateCheckpointList: raw.SubmitTransactions.PostStateCheckpointList,
		},
	}
}

// Block is the JSON mirror of common.Block.
type Block struct {
	Raw         RawBlock            `json:"raw"`
	Withdrawals []WithdrawalRequest `json:"withdrawals"`
	Txs         []L2Transaction     `json:"transactions"`
}

// BlockFromDomain renders b as its JSON wire form.
func BlockFromDomain(b common.Block) Block {
	withdrawals := make([]WithdrawalRequest, len(b.Withdrawals))
	for i, w := range b.Withdrawals {
		withdrawals[i] = WithdrawalRequestFromDomain(w)
	}
	txs := make([]L2Transaction, len(b.Txs))
	for i, tx := range b.Txs {
		txs[i] = L2TransactionFromDomain(tx)
	}
	return Block{Raw: RawBlockFromDomain(b.Raw), Withdrawals: withdrawals, Txs: txs}
}

// ToDomain reconstructs the common.Block b describes.
func (b Block) ToDomain() common.Block {
	withdrawals := make([]common.WithdrawalRequest, len(b.Withdrawals))
	for i, w := range b.Withdrawals {
		withdrawals[i] = w.ToDomain()
	}
	txs := make([]common.RawL2Transaction, len(b.Txs))
	for i, tx := range b.Txs {
		txs[i] = tx.ToDomain()
	}
	return common.Block{Raw: b.Raw.ToDomain(), Withdrawals: withdrawals, Txs: txs}
}
