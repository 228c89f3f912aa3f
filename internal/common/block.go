package common

// AccountMerkleState pins an (SMT root, account count) pair — the shape
// used for prev_account/post_account in RawBlock and for account/block
// in GlobalState.
type AccountMerkleState struct {
	Root         Hash
	AccountCount uint32
}

// SubmitTransactions carries the per-transaction checkpoint chain a
// block commits to.
type SubmitTransactions struct {
	PrevStateCheckpoint     Hash
	TxWitnessRoot           Hash
	TxCount                 uint32
	PostStateCheckpointList []Hash
}

// SubmitWithdrawals pins the withdrawal-witness SMT root and count.
type SubmitWithdrawals struct {
	WithdrawalWitnessRoot Hash
	WithdrawalCount       uint32
}

// RawBlock is the hashed, signable portion of a Layer-2 block.
type RawBlock struct {
	Number             uint64
	ParentBlockHash    Hash
	TimestampMs        uint64
	BlockProducer      RegistryAddress
	PrevAccount        AccountMerkleState
	PostAccount        AccountMerkleState
	SubmitWithdrawals  SubmitWithdrawals
	SubmitTransactions SubmitTransactions
}

// Block pairs a RawBlock with the witnesses (full deposit/tx/withdrawal
// bodies) that justify it; only RawBlock is hashed.
type Block struct {
	Raw         RawBlock
	Withdrawals []WithdrawalRequest
	Txs         []RawL2Transaction
}

// GlobalStateVersion selects the byte-exact meaning of the finality
// field in GlobalState.
type GlobalStateVersion uint8

const (
	// GlobalStateVersionLegacy interprets LastFinalized as a block number.
	GlobalStateVersionLegacy GlobalStateVersion = 0
	// GlobalStateVersionCurrent interprets LastFinalized as an L1 timestamp.
	GlobalStateVersionCurrent GlobalStateVersion = 1
)

// RollupStatus is the GlobalState.status field.
type RollupStatus uint8

const (
	RollupStatusRunning RollupStatus = iota
	RollupStatusHalting
)

// GlobalState is the Layer-1 rollup cell's data: the authoritative
// pointer into Layer-2 state and block history that Layer-1 validators
// check every rollup-update transaction against.
type GlobalState struct {
	Account                     AccountMerkleState
	Block                       AccountMerkleState
	RevertedBlockRoot           Hash
	LastFinalizedBlockOrTime    uint64
	Status                      RollupStatus
	TipBlockHash                Hash
	TipBlockTimestamp           uint64
	RollupConfigHash            Hash
	Version                     GlobalStateVersion
}

// Checkpoint binds a specific intra-block state to an index so a fraud
// prover can reference it: hash(state_root || account_count).
type Checkpoint = Hash

// ChallengeTargetType distinguishes the three disputable facets of a block.
type ChallengeTargetType uint8

const (
	ChallengeTargetTxExecution ChallengeTargetType = iota
	ChallengeTargetTxSignature
	ChallengeTargetWithdrawal
)

// ChallengeTarget names one disputable fact within a specific block.
type ChallengeTarget struct {
	BlockHash   Hash
	TargetIndex uint32
	TargetType  ChallengeTargetType
}
