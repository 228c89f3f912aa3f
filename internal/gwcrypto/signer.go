package gwcrypto

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// ErrInvalidSignature is returned when a Layer-2 transaction signature
// does not recover to a usable public key.
var ErrInvalidSignature = errors.New("gwcrypto: invalid signature")

// RecoverAddress recovers the 20-byte Ethereum-style address that
// produced signature over messageHash. This backs the "recover a
// signer from a message" syscall it and the
// VerifyTransactionSignatureWitness fraud-proof path it
func RecoverAddress(messageHash [32]byte, signature []byte) ([20]byte, error) {
	if len(signature) != 65 {
		return [20]byte{}, fmt.Errorf("%w: signature must be 65 bytes, got %d", ErrInvalidSignature, len(signature))
	}

	// secp256k1 recoverable signatures are [R(32) || S(32) || V(1)] in
	// the Ethereum convention; the dcrd ecdsa.RecoverCompact API wants
	// [V(1) || R(32) || S(32)].
	compact := make([]byte, 65)
	compact[0] = signature[64] + 27
	copy(compact[1:], signature[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, messageHash[:])
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return pubkeyToAddress(pub), nil
}

func pubkeyToAddress(pub *secp256k1.PublicKey) [20]byte {
	serialized := pub.SerializeUncompressed()[1:] // drop the 0x04 prefix
	digest := Blake2b256(serialized)
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr
}
