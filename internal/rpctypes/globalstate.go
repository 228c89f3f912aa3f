package rpctypes

import "github.com/godwokenrises/godwoken-sub002/internal/common"

// GlobalState is the JSON mirror of common.GlobalState, the Layer-1
// rollup cell's data.
type GlobalState struct {
	Account                  AccountMerkleState `json:"account"`
	Block                    AccountMerkleState `json:"block"`
	RevertedBlockRoot        common.Hash        `json:"reverted_block_root"`
	LastFinalizedBlockOrTime Uint64             `json:"last_finalized_block_number"`
	Status                   string             `json:"status"`
	TipBlockHash             common.Hash        `json:"tip_block_hash"`
	TipBlockTimestamp        Uint64             `json:"tip_block_timestamp"`
	RollupConfigHash         common.Hash        `json:"rollup_config_hash"`
	Version                  Uint32             `json:"version"`
}

func globalStateStatusString(s common.RollupStatus) string {
	switch s {
	case common.RollupStatusHalting:
		return "halting"
	default:
		return "running"
	}
}

func parseGlobalStateStatus(s string) common.RollupStatus {
	if s == "halting" {
		return common.RollupStatusHalting
	}
	return common.RollupStatusRunning
}

// GlobalStateFromDomain renders gs as its JSON wire form.
func GlobalStateFromDomain(gs common.GlobalState) GlobalState {
	return GlobalState{
		Account:                  accountMerkleStateFromDomain(gs.Account),
		Block:                    accountMerkleStateFromDomain(gs.Block),
		RevertedBlockRoot:        gs.RevertedBlockRoot,
		LastFinalizedBlockOrTime: Uint64(gs.LastFinalizedBlockOrTime),
		Status:                   globalStateStatusString(gs.Status),
		TipBlockHash:             gs.TipBlockHash,
		TipBlockTimestamp:        Uint64(gs.TipBlockTimestamp),
		RollupConfigHash:         gs.RollupConfigHash,
		Version:                  Uint32(gs.Version),
	}
}

// ToDomain reconstructs the common.GlobalState gs describes.
func (gs GlobalState) ToDomain() common.GlobalState {
	return common.GlobalState{
		Account:                  gs.Account.toDomain(),
		Block:                    gs.Block.toDomain(),
		RevertedBlockRoot:        gs.RevertedBlockRoot,
		LastFinalizedBlockOrTime: uint64(gs.LastFinalizedBlockOrTime),
		Status:                   parseGlobalStateStatus(gs.Status),
		TipBlockHash:             gs.TipBlockHash,
		TipBlockTimestamp:        uint64(gs.TipBlockTimestamp),
		RollupConfigHash:         gs.RollupConfigHash,
		Version:                  common.GlobalStateVersion(gs.Version),
	}
}
