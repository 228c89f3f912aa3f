package rpctypes

import (
	"fmt"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
)

// Script is the JSON mirror of common.Script.
type Script struct {
	CodeHash common.Hash `json:"code_hash"`
	HashType string      `json:"hash_type"`
	Args     Bytes       `json:"args"`
}

// ScriptFromDomain renders s as its JSON wire form.
func ScriptFromDomain(s common.Script) Script {
	return Script{CodeHash: s.CodeHash, HashType: s.HashType.String(), Args: s.Args}
}

// ToDomain parses s's hash_type string back into common.HashType.
func (s Script) ToDomain() (common.Script, error) {
	ht, err := parseHashType(s.HashType)
	if err != nil {
		return common.Script{}, err
	}
	return common.Script{CodeHash: s.CodeHash, HashType: ht, Args: []byte(s.Args)}, nil
}

func parseHashType(s string) (common.HashType, error) {
	switch s {
	case "data":
		return common.HashTypeData, nil
	case "type":
		return common.HashTypeType, nil
	case "data1":
		return common.HashTypeData1, nil
	default:
		return 0, fmt.Errorf("rpctypes: unknown hash_type %q", s)
	}
}

// RegistryAddress is the JSON mirror of common.RegistryAddress.
type RegistryAddress struct {
	RegistryID Uint32 `json:"registry_id"`
	Address    Bytes  `json:"address"`
}

func RegistryAddressFromDomain(a common.RegistryAddress) RegistryAddress {
	return RegistryAddress{RegistryID: Uint32(a.RegistryID), Address: a.Address}
}

func (a RegistryAddress) ToDomain() common.RegistryAddress {
	return common.RegistryAddress{RegistryID: uint32(a.RegistryID), Address: []byte(a.Address)}
}
