// Command selector prints the 4-byte function selector of a canonical
// function signature.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/veritas-L2/evm-state-tools/selector"
)

func main() {
	app := cli.NewApp()
	app.Name = "selector"
	app.Usage = "calculate an Ethereum function selector from a signature"
	app.ArgsUsage = "'functionName(type1,type2,...)'"
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("usage: selector 'add(uint256,uint256)'", 1)
	}

	signature := ctx.Args().First()
	fmt.Printf("Function: %s\n", signature)
	fmt.Printf("Selector: %s\n", selector.Compute(signature))
	return nil
}
