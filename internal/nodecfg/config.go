// Package nodecfg loads the node's fork-configuration file: the list
// of back-end code hashes active from genesis onward (and, at a future
// fork height, superseding entries), plus the handful of runtime
// parameters the run and genesis-init CLI commands need. The file is
// YAML, parsed with gopkg.in/yaml.v3, matching the flat,
// human-editable config files operators hand-maintain per deployment.
package nodecfg

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/godwokenrises/godwoken-sub002/internal/backend"
	"github.com/godwokenrises/godwoken-sub002/internal/common"
)

// BackendEntry names one fork-indexed back-end binding, the YAML
// mirror of backend.ForkEntry minus the Backend/Checksum fields, which
// are resolved from Type at load time rather than trusted from disk.
type BackendEntry struct {
	CodeHash        string `yaml:"code_hash"`
	ForkBlockNumber uint64 `yaml:"fork_block_number"`
	Type            string `yaml:"type"`
}

// Config is the on-disk shape of a node's fork-configuration file.
type Config struct {
	DataDir              string         `yaml:"datadir"`
	MaxCyclesPerTx       uint64         `yaml:"max_cycles_per_tx"`
	TotalCyclesPerBlock  uint64         `yaml:"total_cycles_per_block"`
	BlockProducerAddress string         `yaml:"block_producer_address"`
	Backends             []BackendEntry `yaml:"backends"`
}

// Load reads and parses the fork-configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nodecfg: reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("nodecfg: parsing %s: %w", path, err)
	}
	if cfg.MaxCyclesPerTx == 0 {
		return nil, fmt.Errorf("nodecfg: %s: max_cycles_per_tx must be nonzero", path)
	}
	if cfg.TotalCyclesPerBlock == 0 {
		return nil, fmt.Errorf("nodecfg: %s: total_cycles_per_block must be nonzero", path)
	}
	if len(cfg.Backends) == 0 {
		return nil, fmt.Errorf("nodecfg: %s: backends list must not be empty", path)
	}
	return &cfg, nil
}

// backendType resolves a YAML type string to its backend.Type and a
// freshly constructed Backend implementation.
func backendType(name string) (backend.Type, backend.Backend, error) {
	switch name {
	case "meta_contract":
		return backend.TypeMeta, backend.NewMetaBackend(), nil
	case "sudt":
		return backend.TypeSudt, backend.NewSudtBackend(), nil
	case "polyjuice":
		return backend.TypePolyjuice, backend.NewPolyjuiceBackend(), nil
	case "eth_addr_reg":
		return backend.TypeEthAddrReg, backend.NewEthAddrRegBackend(), nil
	default:
		return 0, nil, fmt.Errorf("nodecfg: unknown backend type %q", name)
	}
}

// BuildRegistry constructs a backend.Registry from cfg's Backends list,
// instantiating and registering each entry's Backend implementation.
func (cfg *Config) BuildRegistry() (*backend.Registry, error) {
	reg := backend.NewRegistry()
	for _, e := range cfg.Backends {
		codeHash, err := common.HexToHash(e.CodeHash)
		if err != nil {
			return nil, fmt.Errorf("nodecfg: backend entry code_hash: %w", err)
		}
		typ, impl, err := backendType(e.Type)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(backend.ForkEntry{
			CodeHash:        codeHash,
			ForkBlockNumber: e.ForkBlockNumber,
			Type:            typ,
			Checksum:        impl.Checksum(),
			Backend:         impl,
		}); err != nil {
			return nil, fmt.Errorf("nodecfg: registering backend %s: %w", e.CodeHash, err)
		}
	}
	return reg, nil
}

// GenesisCodeHash returns the code_hash of the first Backends entry of
// the given type active at block 0, for seeding the matching reserved
// account at genesis. ok is false if no such entry exists.
func (cfg *Config) GenesisCodeHash(typ string) (common.Hash, bool) {
	for _, e := range cfg.Backends {
		if e.Type == typ && e.ForkBlockNumber == 0 {
			h, err := common.HexToHash(e.CodeHash)
			if err != nil {
				return common.Hash{}, false
			}
			return h, true
		}
	}
	return common.Hash{}, false
}

// BlockProducer parses cfg's block_producer_address (a hex string,
// with or without a 0x prefix) as the eth_addr_reg identity run binds new blocks to.
func (cfg *Config) BlockProducer() (common.RegistryAddress, error) {
	addr, err := hex.DecodeString(strings.TrimPrefix(cfg.BlockProducerAddress, "0x"))
	if err != nil {
		return common.RegistryAddress{}, fmt.Errorf("nodecfg: block_producer_address: %w", err)
	}
	return common.RegistryAddress{RegistryID: common.ETHRegistryAccountID, Address: addr}, nil
}
