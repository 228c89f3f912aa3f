package gwcrypto

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
)

// ErrInvalidCurvePoint is returned by the BN-curve syscalls when an
// operand does not decode to a point on the curve.
var ErrInvalidCurvePoint = errors.New("gwcrypto: invalid bn254 point")

// BNAdd performs point addition on the BN254 G1 group, backing the
// "perform BN-curve primitives" syscall (used by
// back-ends implementing pairing-based precompiles).
func BNAdd(aBytes, bBytes [64]byte) ([64]byte, error) {
	a, err := decodeG1(aBytes)
	if err != nil {
		return [64]byte{}, err
	}
	b, err := decodeG1(bBytes)
	if err != nil {
		return [64]byte{}, err
	}
	var sum bn254.G1Affine
	sum.Add(&a, &b)
	return encodeG1(sum), nil
}

// BNScalarMul performs scalar multiplication on the BN254 G1 group.
func BNScalarMul(pBytes [64]byte, scalar [32]byte) ([64]byte, error) {
	p, err := decodeG1(pBytes)
	if err != nil {
		return [64]byte{}, err
	}
	s := new(big.Int).SetBytes(scalar[:])
	var result bn254.G1Affine
	result.ScalarMultiplication(&p, s)
	return encodeG1(result), nil
}

// BNPairingCheck evaluates the BN254 optimal-Ate pairing product and
// reports whether it equals 1, the check underlying Groth16-style
// verification syscalls.
func BNPairingCheck(g1 []bn254.G1Affine, g2 []bn254.G2Affine) (bool, error) {
	if len(g1) != len(g2) || len(g1) == 0 {
		return false, errors.New("gwcrypto: mismatched pairing operand counts")
	}
	ok, err := bn254.PairingCheck(g1, g2)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func decodeG1(b [64]byte) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if _, err := p.SetBytes(b[:]); err != nil {
		return bn254.G1Affine{}, ErrInvalidCurvePoint
	}
	return p, nil
}

func encodeG1(p bn254.G1Affine) [64]byte {
	raw := p.RawBytes()
	var out [64]byte
	copy(out[:], raw[:])
	return out
}
