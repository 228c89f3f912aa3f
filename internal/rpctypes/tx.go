package rpctypes

import "github.com/godwokenrises/godwoken-sub002/internal/common"

// RawL2Transaction is the JSON mirror of common.RawL2Transaction's
// signable portion, without the signature — matching
// crates/jsonrpc-types/src/godwoken.rs's split between RawL2Transaction
// and the signed L2Transaction that wraps it.
type RawL2Transaction struct {
	FromID   Uint32 `json:"from_id"`
	ToID     Uint32 `json:"to_id"`
	Nonce    Uint32 `json:"nonce"`
	Args     Bytes  `json:"args"`
	GasLimit Uint64 `json:"gas_limit"`
	GasPrice Uint64 `json:"gas_price"`
}

func rawL2TransactionFromDomain(tx common.RawL2Transaction) RawL2Transaction {
	return RawL2Transaction{
		FromID:   Uint32(tx.FromID),
		ToID:     Uint32(tx.ToID),
		Nonce:    Uint32(tx.Nonce),
		Args:     tx.Args,
		GasLimit: Uint64(tx.GasLimit),
		GasPrice: Uint64(tx.GasPrice),
	}
}

func (raw RawL2Transaction) toDomain() common.RawL2Transaction {
	return common.RawL2Transaction{
		FromID:   uint32(raw.FromID),
		ToID:     uint32(raw.ToID),
		Nonce:    uint32(raw.Nonce),
		Args:     []byte(raw.Args),
		GasLimit: uint64(raw.GasLimit),
		GasPrice: uint64(raw.GasPrice),
	}
}

// L2Transaction is the JSON mirror of a signed common.RawL2Transaction.
type L2Transaction struct {
	Raw       RawL2Transaction `json:"raw"`
	Signature Bytes            `json:"signature"`
}

// L2TransactionFromDomain renders tx as its JSON wire form.
func L2TransactionFromDomain(tx common.RawL2Transaction) L2Transaction {
	return L2Transaction{Raw: rawL2TransactionFromDomain(tx), Signature: tx.Signature}
}

// ToDomain reassembles the signed transaction tx.Raw and tx.Signature describe.
func (tx L2Transaction) ToDomain() common.RawL2Transaction {
	out := tx.Raw.toDomain()
	out.Signature = []byte(tx.Signature)
	return out
}
