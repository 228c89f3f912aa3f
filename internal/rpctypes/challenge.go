package rpctypes

import (
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
)

// ChallengeTarget is the JSON mirror of common.ChallengeTarget.
type ChallengeTarget struct {
	BlockHash   common.Hash `json:"block_hash"`
	TargetIndex Uint32      `json:"target_index"`
	TargetType  string      `json:"target_type"`
}

func challengeTargetTypeString(t common.ChallengeTargetType) string {
	switch t {
	case common.ChallengeTargetTxSignature:
		return "tx_signature"
	case common.ChallengeTargetWithdrawal:
		return "withdrawal"
	default:
		return "tx_execution"
	}
}

func parseChallengeTargetType(s string) (common.ChallengeTargetType, error) {
	switch s {
	case "tx_execution":
		return common.ChallengeTargetTxExecution, nil
	case "tx_signature":
		return common.ChallengeTargetTxSignature, nil
	case "withdrawal":
		return common.ChallengeTargetWithdrawal, nil
	default:
		return 0, fmt.Errorf("rpctypes: unknown target_type %q", s)
	}
}

// ChallengeTargetFromDomain renders t as its JSON wire form.
func ChallengeTargetFromDomain(t common.ChallengeTarget) ChallengeTarget {
	return ChallengeTarget{
		BlockHash:   t.BlockHash,
		TargetIndex: Uint32(t.TargetIndex),
		TargetType:  challengeTargetTypeString(t.TargetType),
	}
}

// ToDomain parses t's target_type string back into common.ChallengeTargetType.
func (t ChallengeTarget) ToDomain() (common.ChallengeTarget, error) {
	targetType, err := parseChallengeTargetType(t.TargetType)
	if err != nil {
		return common.ChallengeTarget{}, err
	}
	return common.ChallengeTarget{
		BlockHash:   t.BlockHash,
		TargetIndex: uint32(t.TargetIndex),
		TargetType:  targetType,
	}, nil
}
