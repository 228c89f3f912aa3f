// Package common defines the value types shared by every layer of the
// rollup node: the 32-byte content-addressed Hash, the Script triple,
// and the registry-address pairing used to bind a Layer-1 lock script
// to a Layer-2 account identity.
package common

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// HashLength is the fixed size of a content-addressed identifier.
const HashLength = 32

// Hash is a 32-byte opaque identifier used as an SMT key, block hash,
// script hash, or transaction hash. Equality is byte-equality.
type Hash [HashLength]byte

// ZeroHash is the SMT's "absent" sentinel.
var ZeroHash = Hash{}

// IsZero reports whether h is the all-zero sentinel.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashLength)
	copy(b, h[:])
	return b
}

// String renders the hash as a 0x-prefixed hex string.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// BytesToHash left-pads or truncates b to HashLength bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) >= HashLength {
		copy(h[:], b[len(b)-HashLength:])
	} else {
		copy(h[HashLength-len(b):], b)
	}
	return h
}

// HexToHash parses a 0x-prefixed or bare hex string into a Hash.
func HexToHash(s string) (Hash, error) {
	s = trim0x(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("common: invalid hash hex %q: %w", s, err)
	}
	if len(b) != HashLength {
		return Hash{}, fmt.Errorf("common: hash must be %d bytes, got %d", HashLength, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// MarshalJSON renders the hash as a quoted 0x-hex string, the
// Ethereum-style JSON-RPC byte-field convention.
func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

// UnmarshalJSON parses a quoted 0x-hex string into the hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("common: hash JSON value must be a quoted string")
	}
	parsed, err := HexToHash(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
