package rpctypes

import "github.com/godwokenrises/godwoken-sub002/internal/common"

// WithdrawalRequest is the JSON mirror of common.WithdrawalRequest.
type WithdrawalRequest struct {
	Nonce          Uint32          `json:"nonce"`
	FromRegistry   RegistryAddress `json:"from_registry"`
	Capacity       Uint64          `json:"capacity"`
	SudtScriptHash common.Hash     `json:"sudt_script_hash"`
	Amount         Uint64          `json:"amount"`
	AmountHi       Uint64          `json:"amount_hi"`
	OwnerLockHash  common.Hash     `json:"owner_lock_hash"`
	Signature      Bytes           `json:"signature"`
}

func WithdrawalRequestFromDomain(w common.WithdrawalRequest) WithdrawalRequest {
	return WithdrawalRequest{
		Nonce:          Uint32(w.Nonce),
		FromRegistry:   RegistryAddressFromDomain(w.FromRegistry),
		Capacity:       Uint64(w.Capacity),
		SudtScriptHash: w.SudtScriptHash,
		Amount:         Uint64(w.Amount),
		AmountHi:       Uint64(w.AmountHi),
		OwnerLockHash:  w.OwnerLockHash,
		Signature:      w.Signature,
	}
}

func (w WithdrawalRequest) ToDomain() common.WithdrawalRequest {
	return common.WithdrawalRequest{
		Nonce:          uint32(w.Nonce),
		FromRegistry:   w.FromRegistry.ToDomain(),
		Capacity:       uint64(w.Capacity),
		SudtScriptHash: w.SudtScriptHash,
		Amount:         uint64(w.Amount),
		AmountHi:       uint64(w.AmountHi),
		OwnerLockHash:  w.OwnerLockHash,
		Signature:      []byte(w.Signature),
	}
}

// Deposit is the JSON mirror of common.Deposit.
type Deposit struct {
	Capacity       Uint64      `json:"capacity"`
	SudtScriptHash common.Hash `json:"sudt_script_hash"`
	Amount         Uint64      `json:"amount"`
	AmountHi       Uint64      `json:"amount_hi"`
	Script         Script      `json:"script"`
	RegistryID     Uint32      `json:"registry_id"`
}

func DepositFromDomain(d common.Deposit) Deposit {
	return Deposit{
		Capacity:       Uint64(d.Capacity),
		SudtScriptHash: d.SudtScriptHash,
		Amount:         Uint64(d.Amount),
		AmountHi:       Uint64(d.AmountHi),
		Script:         ScriptFromDomain(d.Script),
		RegistryID:     Uint32(d.RegistryID),
	}
}

func (d Deposit) ToDomain() (common.Deposit, error) {
	script, err := d.Script.ToDomain()
	if err != nil {
		return common.Deposit{}, err
	}
	return common.Deposit{
		Capacity:       uint64(d.Capacity),
		SudtScriptHash: d.SudtScriptHash,
		Amount:         uint64(d.Amount),
		AmountHi:       uint64(d.AmountHi),
		Script:         script,
		RegistryID:     uint32(d.RegistryID),
	}, nil
}
