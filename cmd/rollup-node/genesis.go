package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/godwokenrises/godwoken-sub002/internal/common"
	"github.com/godwokenrises/godwoken-sub002/internal/kv"
	"github.com/godwokenrises/godwoken-sub002/internal/nodecfg"
	"github.com/godwokenrises/godwoken-sub002/internal/rpctypes"
	"github.com/godwokenrises/godwoken-sub002/internal/smt"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// genesisFile is the name genesisInit writes the resulting GlobalState
// under, inside the datadir, for run to pick back up.
const genesisFile = "genesis.json"

func genesisInitAction(c *cli.Context) error {
	cfg, err := nodecfg.Load(c.String("config"))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("rollup-node: creating datadir %s: %w", cfg.DataDir, err)
	}

	store, err := kv.OpenPebbleStore(filepath.Join(cfg.DataDir, "db"))
	if err != nil {
		return fmt.Errorf("rollup-node: opening store: %w", err)
	}
	defer store.Close()

	txn, err := store.BeginTransaction()
	if err != nil {
		return fmt.Errorf("rollup-node: opening genesis transaction: %w", err)
	}

	tree := smt.New()
	seed := state.NewRawState(txn, tree, 0, 0)

	for _, typ := range []string{"meta_contract", "sudt", "eth_addr_reg"} {
		codeHash, ok := cfg.GenesisCodeHash(typ)
		if !ok {
			return fmt.Errorf("rollup-node: fork config has no block-0 %s backend entry", typ)
		}
		id, err := state.CreateAccount(seed, common.Script{CodeHash: codeHash, HashType: common.HashTypeType})
		if err != nil {
			return fmt.Errorf("rollup-node: seeding %s account: %w", typ, err)
		}
		if err := requireReservedID(typ, id); err != nil {
			return err
		}
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("rollup-node: committing genesis: %w", err)
	}

	genesis := common.GlobalState{
		Account: common.AccountMerkleState{Root: seed.RootHash(), AccountCount: seed.GetAccountCount()},
		Block:   common.AccountMerkleState{Root: common.ZeroHash, AccountCount: 0},
		Status:  common.RollupStatusRunning,
	}
	wire := rpctypes.GlobalStateFromDomain(genesis)
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("rollup-node: encoding genesis state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.DataDir, genesisFile), data, 0o644); err != nil {
		return fmt.Errorf("rollup-node: writing %s: %w", genesisFile, err)
	}

	fmt.Fprintf(c.App.Writer, "genesis account root: %s (accounts=%d)\n", seed.RootHash(), seed.GetAccountCount())
	return nil
}

// requireReservedID asserts that the account id just created for a
// reserved genesis backend landed on the fixed id the rest of the node
// hardcodes (internal/common.MetaContractAccountID and friends) —
// accounts are created in a fixed order specifically so this holds.
func requireReservedID(typ string, got uint32) error {
	want := map[string]uint32{
		"meta_contract": common.MetaContractAccountID,
		"sudt":          common.CKBSudtAccountID,
		"eth_addr_reg":  common.ETHRegistryAccountID,
	}[typ]
	if got != want {
		return fmt.Errorf("rollup-node: %s account landed at id=%d, want reserved id=%d", typ, got, want)
	}
	return nil
}

func loadGenesis(dataDir string) (common.GlobalState, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, genesisFile))
	if err != nil {
		return common.GlobalState{}, fmt.Errorf("rollup-node: reading %s (run 'genesis init' first): %w", genesisFile, err)
	}
	var wire rpctypes.GlobalState
	if err := json.Unmarshal(data, &wire); err != nil {
		return common.GlobalState{}, fmt.Errorf("rollup-node: parsing %s: %w", genesisFile, err)
	}
	return wire.ToDomain(), nil
}
