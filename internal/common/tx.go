package common

// RawL2Transaction is a Layer-2 transaction: it moves value/control
// from the account at FromID into the account/contract at ToID,
// dispatched to whichever back-end owns ToID's script.
type RawL2Transaction struct {
	FromID    uint32
	ToID      uint32
	Nonce     uint32
	Args      []byte
	GasLimit  uint64
	GasPrice  uint64
	Signature []byte
}

// Hash returns the transaction's content hash (signature excluded), used
// as both the mempool key and the leaf key of the per-block tx witness SMT.
func (tx RawL2Transaction) Hash(hashFn func([]byte) Hash) Hash {
	buf := make([]byte, 0, 4+4+4+8+8+len(tx.Args))
	buf = append(buf, le32(tx.FromID)...)
	buf = append(buf, le32(tx.ToID)...)
	buf = append(buf, le32(tx.Nonce)...)
	buf = append(buf, le64(tx.GasLimit)...)
	buf = append(buf, le64(tx.GasPrice)...)
	buf = append(buf, tx.Args...)
	return hashFn(buf)
}

// WitnessHash is the leaf value fed into the per-block tx-witness SMT:
// hash(tx_hash || signature).
func (tx RawL2Transaction) WitnessHash(hashFn func([]byte) Hash) Hash {
	h := tx.Hash(hashFn)
	buf := make([]byte, 0, HashLength+len(tx.Signature))
	buf = append(buf, h[:]...)
	buf = append(buf, tx.Signature...)
	return hashFn(buf)
}

// Deposit is a Layer-1 deposit cell's decoded content: it mints balance
// into (or creates) an account.
type Deposit struct {
	Capacity       uint64 // shannon/CKB-equivalent native capacity
	SudtScriptHash Hash   // zero means "native capacity only, no foreign SUDT"
	Amount         uint64 // low 64 bits of the U256 SUDT amount; see AmountHi
	AmountHi       uint64 // high bits, for amounts exceeding 64 bits
	Script         Script // the depositor's Layer-2 identity script
	RegistryID     uint32
}

// WithdrawalRequest is a Layer-2 account's request to move value back
// to Layer-1, optionally to an owner-lock other than the account's own.
type WithdrawalRequest struct {
	Nonce            uint32
	FromRegistry     RegistryAddress
	Capacity         uint64
	SudtScriptHash   Hash
	Amount           uint64
	AmountHi         uint64
	OwnerLockHash    Hash // zero means "no override, use from-account's own lock"
	Signature        []byte
}

// WitnessHash is the leaf value fed into the per-block withdrawal-witness SMT.
func (w WithdrawalRequest) WitnessHash(hashFn func([]byte) Hash) Hash {
	buf := make([]byte, 0, 4+HashLength+8+HashLength+8)
	buf = append(buf, le32(w.Nonce)...)
	buf = append(buf, w.FromRegistry.Address...)
	buf = append(buf, le64(w.Capacity)...)
	buf = append(buf, w.SudtScriptHash[:]...)
	buf = append(buf, le64(w.Amount)...)
	return hashFn(buf)
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
