// Command stateroot rebuilds the canonical state trie from a JSON snapshot
// of accounts and prints the resulting root hash together with per-account
// diagnostic values for comparison against a reference implementation.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/veritas-L2/evm-state-tools/stateroot"
)

func main() {
	app := cli.NewApp()
	app.Name = "stateroot"
	app.Usage = "compute the canonical state root of a world-state snapshot"
	app.ArgsUsage = "<snapshot.json>"
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("usage: stateroot <snapshot.json>", 1)
	}

	data, err := os.ReadFile(ctx.Args().First())
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Error: %v", err), 1)
	}

	snap, err := stateroot.ParseSnapshot(data)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Error: %v", err), 1)
	}

	report, err := stateroot.NewBuilder().Build(snap)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Error: %v", err), 1)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Error: %v", err), 1)
	}
	fmt.Println(string(out))
	return nil
}
