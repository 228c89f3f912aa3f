package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/godwokenrises/godwoken-sub002/internal/chain"
	"github.com/godwokenrises/godwoken-sub002/internal/generator"
	"github.com/godwokenrises/godwoken-sub002/internal/gwlog"
	"github.com/godwokenrises/godwoken-sub002/internal/kv"
	"github.com/godwokenrises/godwoken-sub002/internal/mempool"
	"github.com/godwokenrises/godwoken-sub002/internal/nodecfg"
	"github.com/godwokenrises/godwoken-sub002/internal/producer"
	"github.com/godwokenrises/godwoken-sub002/internal/smt"
	"github.com/godwokenrises/godwoken-sub002/internal/state"
)

// node bundles everything runAction wires together, so shutdown can
// close what startup opened in reverse order.
type node struct {
	log   *zap.Logger
	store *kv.PebbleStore
	txn   kv.Txn

	sync *chain.Synchroniser
	pool *mempool.Pool
}

func runAction(c *cli.Context) error {
	cfg, err := nodecfg.Load(c.String("config"))
	if err != nil {
		return err
	}

	base, err := gwlog.New(c.Bool("debug"))
	if err != nil {
		return fmt.Errorf("rollup-node: building logger: %w", err)
	}
	defer base.Sync()
	log := gwlog.Component(base, "cmd/rollup-node")

	n, err := bootstrap(cfg, log)
	if err != nil {
		return err
	}
	defer n.shutdown()

	log.Info("rollup node ready",
		zap.Uint64("tip", n.sync.Tip()),
		zap.Uint8("status", uint8(n.sync.Status())),
	)

	<-waitForShutdownSignal(c.Context)
	log.Info("shutdown signal received, closing")
	return nil
}

func bootstrap(cfg *nodecfg.Config, log *zap.Logger) (*node, error) {
	genesis, err := loadGenesis(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	store, err := kv.OpenPebbleStore(filepath.Join(cfg.DataDir, "db"))
	if err != nil {
		return nil, fmt.Errorf("rollup-node: opening store: %w", err)
	}

	txn, err := store.BeginTransaction()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("rollup-node: opening transaction: %w", err)
	}

	reg, err := cfg.BuildRegistry()
	if err != nil {
		store.Close()
		return nil, err
	}
	blockProducer, err := cfg.BlockProducer()
	if err != nil {
		store.Close()
		return nil, err
	}

	gen := generator.New(reg)
	prod := producer.New(gen)

	// TODO: internal/state does not yet persist tree leaves into
	// ColumnAccountSMTLeaf/ColumnAccountSMTBranch, so the tree here
	// starts empty and its root does not match the committed
	// genesis.json root, not even on the first run against a datadir.
	// Moot until a block-production trigger
	// (RPC submission or an L1 feed) exists to advance the tip in the
	// first place.
	tree := smt.New()
	s := chain.New(prod, txn, tree, genesis.Account.AccountCount, genesis, cfg.MaxCyclesPerTx)

	// The mempool speculates against a fresh RawState opened on the
	// same txn/tree the synchroniser owns, at the block the chain will
	// next produce.
	backing := state.NewRawState(txn, tree, genesis.Account.AccountCount, s.Tip()+1)
	blockInfo := generator.BlockInfo{Number: s.Tip() + 1, BlockProducer: blockProducer}
	pool := mempool.New(backing, gen, blockInfo, cfg.MaxCyclesPerTx, cfg.TotalCyclesPerBlock)

	return &node{log: log, store: store, txn: txn, sync: s, pool: pool}, nil
}

func (n *node) shutdown() {
	if err := n.txn.Rollback(); err != nil {
		n.log.Warn("rolling back open transaction", zap.Error(err))
	}
	if err := n.store.Close(); err != nil {
		n.log.Warn("closing store", zap.Error(err))
	}
}

// waitForShutdownSignal returns a channel closed the moment ctx is
// cancelled or the process receives SIGINT/SIGTERM, whichever is
// first.
func waitForShutdownSignal(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer close(done)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return done
}
