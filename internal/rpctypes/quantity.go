// Package rpctypes is the JSON wire mirror of internal/common's packed
// domain types: every field is snake_case, every byte slice is a
// 0x-hex string, and every integer wide enough to lose precision in a
// JSON number is a 0x-hex quantity, matching the Ethereum JSON-RPC
// convention the Layer-1 tooling this node talks to already expects.
// Grounded on original_source/crates/jsonrpc-types/src/godwoken.rs's
// field naming and its ckb_jsonrpc_types::{Uint32,Uint64,JsonBytes}
// wire shapes; transport/dispatch (the RPC server itself) is out of
// scope, only the wire types and their bidirectional domain mapping.
package rpctypes

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Uint32 is a uint32 rendered as a 0x-hex quantity (no leading zeros,
// "0x0" for zero) rather than a JSON number, so a 64-bit JSON decoder
// on the other end never silently loses precision.
type Uint32 uint32

func (q Uint32) MarshalJSON() ([]byte, error) {
	return []byte(`"0x` + strconv.FormatUint(uint64(q), 16) + `"`), nil
}

func (q *Uint32) UnmarshalJSON(data []byte) error {
	v, err := parseHexQuantity(data, 32)
	if err != nil {
		return err
	}
	*q = Uint32(v)
	return nil
}

// Uint64 is a uint64 rendered as a 0x-hex quantity.
type Uint64 uint64

func (q Uint64) MarshalJSON() ([]byte, error) {
	return []byte(`"0x` + strconv.FormatUint(uint64(q), 16) + `"`), nil
}

func (q *Uint64) UnmarshalJSON(data []byte) error {
	v, err := parseHexQuantity(data, 64)
	if err != nil {
		return err
	}
	*q = Uint64(v)
	return nil
}

func parseHexQuantity(data []byte, bitSize int) (uint64, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, fmt.Errorf("rpctypes: quantity must be a JSON string, got %q: %w", data, err)
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, fmt.Errorf("rpctypes: quantity %q missing 0x prefix", s)
	}
	v, err := strconv.ParseUint(s[2:], 16, bitSize)
	if err != nil {
		return 0, fmt.Errorf("rpctypes: invalid quantity %q: %w", s, err)
	}
	return v, nil
}

// Bytes is an opaque byte slice rendered as a 0x-hex string, the
// JsonBytes equivalent for args/signature/witness payloads.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	return []byte(`"0x` + hex.EncodeToString(b) + `"`), nil
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("rpctypes: bytes must be a JSON string, got %q: %w", data, err)
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("rpctypes: invalid hex bytes %q: %w", s, err)
	}
	*b = decoded
	return nil
}
