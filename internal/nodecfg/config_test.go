package nodecfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
)

// writeConfig writes a syntactically valid fork config to a temp file
// and returns its path.
func writeConfig(t *testing.T) string {
	t.Helper()
	content := `
datadir: ./data
max_cycles_per_tx: 70000000
total_cycles_per_block: 7000000000
block_producer_address: "aabbccddeeff00112233445566778899aabbccdd"
backends:
  - code_hash: "0x0101010101010101010101010101010101010101010101010101010101010101"
    fork_block_number: 0
    type: meta_contract
  - code_hash: "0x0202020202020202020202020202020202020202020202020202020202020202"
    fork_block_number: 0
    type: sudt
  - code_hash: "0x0303030303030303030303030303030303030303030303030303030303030303"
    fork_block_number: 0
    type: eth_addr_reg
  - code_hash: "0x0404040404040404040404040404040404040404040404040404040404040404"
    fork_block_number: 0
    type: polyjuice
  - code_hash: "0x0404040404040404040404040404040404040404040404040404040404040404"
    fork_block_number: 500000
    type: polyjuice
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesAndValidates(t *testing.T) {
	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)
	require.Equal(t, uint64(70_000_000), cfg.MaxCyclesPerTx)
	require.Equal(t, uint64(7_000_000_000), cfg.TotalCyclesPerBlock)
	require.Len(t, cfg.Backends, 5)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsZeroCycleBudgets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("datadir: .\nbackends:\n  - code_hash: \"0x01\"\n    type: meta_contract\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestBuildRegistryResolvesEachBackendType(t *testing.T) {
	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)

	reg, err := cfg.BuildRegistry()
	require.NoError(t, err)

	metaHash, err := common.HexToHash("0x0101010101010101010101010101010101010101010101010101010101010101")
	require.NoError(t, err)
	b, typ, err := reg.GetBackend(0, metaHash)
	require.NoError(t, err)
	require.NotNil(t, b)
	require.Equal(t, "meta_contract", typ.String())
}

func TestBuildRegistryRejectsUnknownType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
datadir: .
max_cycles_per_tx: 1
total_cycles_per_block: 1
backends:
  - code_hash: "0x0101010101010101010101010101010101010101010101010101010101010101"
    type: not_a_real_backend
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.BuildRegistry()
	require.Error(t, err)
}

func TestGenesisCodeHashFindsBlockZeroEntry(t *testing.T) {
	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)

	h, ok := cfg.GenesisCodeHash("sudt")
	require.True(t, ok)
	want, err := common.HexToHash("0x0202020202020202020202020202020202020202020202020202020202020202")
	require.NoError(t, err)
	require.Equal(t, want, h)

	_, ok = cfg.GenesisCodeHash("does_not_exist")
	require.False(t, ok)
}

func TestBlockProducerParsesHexAddress(t *testing.T) {
	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)

	addr, err := cfg.BlockProducer()
	require.NoError(t, err)
	require.Equal(t, common.ETHRegistryAccountID, addr.RegistryID)
	require.Len(t, addr.Address, 20)
}
