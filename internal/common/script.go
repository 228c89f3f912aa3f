package common

import "fmt"

// HashType distinguishes how a Script's code_hash should be interpreted
// by the Layer-1 lock/type-script execution model.
type HashType uint8

const (
	// HashTypeData means code_hash is the blake2b hash of a cell's
	// immutable data blob (data-hash binding).
	HashTypeData HashType = iota
	// HashTypeType means code_hash is the hash of a cell's type script
	// (upgradable binding — the referenced code may move cells).
	HashTypeType
	// HashTypeData1 is the versioned successor of HashTypeData using a
	// different hashing domain tag, kept distinct for byte-exact L1
	// compatibility.
	HashTypeData1
)

func (t HashType) String() string {
	switch t {
	case HashTypeData:
		return "data"
	case HashTypeType:
		return "type"
	case HashTypeData1:
		return "data1"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// domain-separation tags for script_hash computation, one per hash_type,
// so that two scripts differing only in hash_type never collide.
var scriptHashDomainTag = map[HashType]byte{
	HashTypeData:  0x00,
	HashTypeType:  0x01,
	HashTypeData1: 0x02,
}

// Script is a Layer-1 lock or type predicate: a code reference, the
// convention for interpreting that reference, and opaque arguments.
type Script struct {
	CodeHash Hash
	HashType HashType
	Args     []byte
}

// Equal reports whether s and other serialise identically.
func (s Script) Equal(other Script) bool {
	if s.CodeHash != other.CodeHash || s.HashType != other.HashType {
		return false
	}
	if len(s.Args) != len(other.Args) {
		return false
	}
	for i := range s.Args {
		if s.Args[i] != other.Args[i] {
			return false
		}
	}
	return true
}

// Serialize renders the canonical byte encoding used to compute the
// script hash: code_hash(32) || hash_type(1) || args_len(4 LE) || args.
func (s Script) Serialize() []byte {
	out := make([]byte, 0, HashLength+1+4+len(s.Args))
	out = append(out, s.CodeHash[:]...)
	out = append(out, byte(s.HashType))
	out = append(out, uint32le(uint32(len(s.Args)))...)
	out = append(out, s.Args...)
	return out
}

func uint32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// ETHRegistryAccountID is the built-in registry id for Ethereum-style
// (20-byte) addresses.
const ETHRegistryAccountID uint32 = 2

// RegistryAddress is the canonical Layer-2 identity of a Layer-1
// account: a registry namespace plus the address bytes within it.
type RegistryAddress struct {
	RegistryID uint32
	Address    []byte
}

// Equal reports whether two registry addresses name the same identity.
func (r RegistryAddress) Equal(other RegistryAddress) bool {
	if r.RegistryID != other.RegistryID || len(r.Address) != len(other.Address) {
		return false
	}
	for i := range r.Address {
		if r.Address[i] != other.Address[i] {
			return false
		}
	}
	return true
}

// Key returns a canonical map key for use as a Go map key (RegistryAddress
// itself is not comparable because it embeds a slice).
func (r RegistryAddress) Key() string {
	return fmt.Sprintf("%d:%x", r.RegistryID, r.Address)
}
