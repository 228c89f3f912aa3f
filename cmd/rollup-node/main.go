// Command rollup-node is the node's operator-facing entrypoint:
// genesis init seeds a fresh datadir from a fork-configuration file,
// run brings the chain synchroniser and mempool up against it. Talking
// to Layer-1 (submitting or watching rollup-cell transactions) is left
// to a separate, out-of-scope component — run only wires up this
// node's own local state and idles until told to stop.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "rollup-node",
		Usage: "Layer-2 optimistic rollup full node",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the fork-configuration YAML file",
				Value:   "config.yaml",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug-level structured logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "genesis",
				Usage: "genesis-state bootstrap commands",
				Subcommands: []*cli.Command{
					{
						Name:   "init",
						Usage:  "seed a fresh datadir with the genesis account tree",
						Action: genesisInitAction,
					},
				},
			},
			{
				Name:   "run",
				Usage:  "start the node against an already-initialized datadir",
				Action: runAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "rollup-node:", err)
		os.Exit(1)
	}
}
