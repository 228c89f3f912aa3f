package rpctypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
)

func TestUint32QuantityRoundTrips(t *testing.T) {
	for _, v := range []uint32{0, 1, 0xffffffff, 42} {
		data, err := json.Marshal(Uint32(v))
		require.NoError(t, err)
		var got Uint32
		require.NoError(t, json.Unmarshal(data, &got))
		require.Equal(t, v, uint32(got))
	}
}

func TestUint32QuantityRejectsMissingPrefix(t *testing.T) {
	var got Uint32
	err := json.Unmarshal([]byte(`"123"`), &got)
	require.Error(t, err)
}

func TestUint64QuantityRoundTrips(t *testing.T) {
	for _, v := range []uint64{0, 1, 1 << 62, 597979} {
		data, err := json.Marshal(Uint64(v))
		require.NoError(t, err)
		var got Uint64
		require.NoError(t, json.Unmarshal(data, &got))
		require.Equal(t, v, uint64(got))
	}
}

func TestBytesRoundTripsIncludingEmpty(t *testing.T) {
	for _, v := range [][]byte{nil, {}, {0x01, 0xab, 0xff}} {
		data, err := json.Marshal(Bytes(v))
		require.NoError(t, err)
		var got Bytes
		require.NoError(t, json.Unmarshal(data, &got))
		require.Equal(t, len(v), len(got))
	}
}

func TestScriptRoundTrips(t *testing.T) {
	s := common.Script{
		CodeHash: common.BytesToHash([]byte("code-hash")),
		HashType: common.HashTypeType,
		Args:     []byte{1, 2, 3},
	}
	wire := ScriptFromDomain(s)
	data, err := json.Marshal(wire)
	require.NoError(t, err)

	var decoded Script
	require.NoError(t, json.Unmarshal(data, &decoded))
	back, err := decoded.ToDomain()
	require.NoError(t, err)
	require.Equal(t, s, back)
}

func TestScriptRejectsUnknownHashType(t *testing.T) {
	s := Script{HashType: "bogus"}
	_, err := s.ToDomain()
	require.Error(t, err)
}

func TestRegistryAddressRoundTrips(t *testing.T) {
	a := common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: []byte{0xde, 0xad}}
	wire := RegistryAddressFromDomain(a)
	data, err := json.Marshal(wire)
	require.NoError(t, err)

	var decoded RegistryAddress
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, a, decoded.ToDomain())
}

func TestL2TransactionRoundTrips(t *testing.T) {
	tx := common.RawL2Transaction{
		FromID:    1,
		ToID:      2,
		Nonce:     7,
		Args:      []byte("call-args"),
		GasLimit:  21000,
		GasPrice:  1,
		Signature: []byte{0x01, 0x02},
	}
	wire := L2TransactionFromDomain(tx)
	data, err := json.Marshal(wire)
	require.NoError(t, err)

	var decoded L2Transaction
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, tx, decoded.ToDomain())
}

func TestWithdrawalRequestRoundTrips(t *testing.T) {
	w := common.WithdrawalRequest{
		Nonce:          3,
		FromRegistry:   common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: []byte{0x01}},
		Capacity:       1000,
		SudtScriptHash: common.BytesToHash([]byte("sudt")),
		Amount:         500,
		AmountHi:       0,
		OwnerLockHash:  common.BytesToHash([]byte("owner")),
		Signature:      []byte{0xaa, 0xbb},
	}
	wire := WithdrawalRequestFromDomain(w)
	data, err := json.Marshal(wire)
	require.NoError(t, err)

	var decoded WithdrawalRequest
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, w, decoded.ToDomain())
}

func TestDepositRoundTrips(t *testing.T) {
	d := common.Deposit{
		Capacity:       2000,
		SudtScriptHash: common.BytesToHash([]byte("sudt")),
		Amount:         10,
		AmountHi:       0,
		Script:         common.Script{CodeHash: common.BytesToHash([]byte("eth-account-lock")), HashType: common.HashTypeType, Args: []byte{0x01}},
		RegistryID:     common.ETHRegistryAccountID,
	}
	wire := DepositFromDomain(d)
	data, err := json.Marshal(wire)
	require.NoError(t, err)

	var decoded Deposit
	require.NoError(t, json.Unmarshal(data, &decoded))
	back, err := decoded.ToDomain()
	require.NoError(t, err)
	require.Equal(t, d, back)
}

func TestRawBlockRoundTrips(t *testing.T) {
	raw := common.RawBlock{
		Number:          1,
		ParentBlockHash: common.BytesToHash([]byte("parent")),
		TimestampMs:     1700000000000,
		BlockProducer:   common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: []byte{0x01}},
		PrevAccount:     common.AccountMerkleState{Root: common.BytesToHash([]byte("pre")), AccountCount: 5},
		PostAccount:     common.AccountMerkleState{Root: common.BytesToHash([]byte("post")), AccountCount: 6},
		SubmitWithdrawals: common.SubmitWithdrawals{
			WithdrawalWitnessRoot: common.BytesToHash([]byte("wwr")),
			WithdrawalCount:       1,
		},
		SubmitTransactions: common.SubmitTransactions{
			PrevStateCheckpoint:     common.BytesToHash([]byte("prev-cp")),
			TxWitnessRoot:           common.BytesToHash([]byte("twr")),
			TxCount:                 2,
			PostStateCheckpointList: []common.Hash{common.BytesToHash([]byte("cp1")), common.BytesToHash([]byte("cp2"))},
		},
	}
	wire := RawBlockFromDomain(raw)
	data, err := json.Marshal(wire)
	require.NoError(t, err)

	var decoded RawBlock
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, raw, decoded.ToDomain())
}

func TestGlobalStateRoundTrips(t *testing.T) {
	gs := common.GlobalState{
		Account:                  common.AccountMerkleState{Root: common.BytesToHash([]byte("acct")), AccountCount: 9},
		Block:                    common.AccountMerkleState{Root: common.BytesToHash([]byte("blk")), AccountCount: 9},
		RevertedBlockRoot:        common.ZeroHash,
		LastFinalizedBlockOrTime: 42,
		Status:                   common.RollupStatusHalting,
		TipBlockHash:             common.BytesToHash([]byte("tip")),
		TipBlockTimestamp:        1700000000000,
		RollupConfigHash:         common.BytesToHash([]byte("cfg")),
		Version:                  common.GlobalStateVersionCurrent,
	}
	wire := GlobalStateFromDomain(gs)
	data, err := json.Marshal(wire)
	require.NoError(t, err)
	require.Contains(t, string(data), `"halting"`)

	var decoded GlobalState
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, gs, decoded.ToDomain())
}

func TestChallengeTargetRoundTrips(t *testing.T) {
	for _, target := range []common.ChallengeTarget{
		{BlockHash: common.BytesToHash([]byte("b1")), TargetIndex: 0, TargetType: common.ChallengeTargetTxExecution},
		{BlockHash: common.BytesToHash([]byte("b2")), TargetIndex: 1, TargetType: common.ChallengeTargetTxSignature},
		{BlockHash: common.BytesToHash([]byte("b3")), TargetIndex: 2, TargetType: common.ChallengeTargetWithdrawal},
	} {
		wire := ChallengeTargetFromDomain(target)
		data, err := json.Marshal(wire)
		require.NoError(t, err)

		var decoded ChallengeTarget
		require.NoError(t, json.Unmarshal(data, &decoded))
		back, err := decoded.ToDomain()
		require.NoError(t, err)
		require.Equal(t, target, back)
	}
}

func TestChallengeTargetRejectsUnknownType(t *testing.T) {
	target := ChallengeTarget{TargetType: "not_a_real_type"}
	_, err := target.ToDomain()
	require.Error(t, err)
}
