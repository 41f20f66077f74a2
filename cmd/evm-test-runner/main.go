// Command evm-test-runner executes a VM binary over a directory of EVM
// assembly test cases and compares each run against its expected-result
// document, exiting non-zero when any case fails.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/veritas-L2/evm-state-tools/harness"
)

func main() {
	app := cli.NewApp()
	app.Name = "evm-test-runner"
	app.Usage = "run EVM assembly test cases against a VM executable"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "run, r",
			Value: "build/evm",
			Usage: "VM executable path",
		},
		cli.StringFlag{
			Name:  "mode, m",
			Value: "multipass",
			Usage: "execution mode: multipass, singlepass or interpreter",
		},
		cli.StringFlag{
			Name:  "format",
			Value: "wasm",
			Usage: "input format passed to the VM",
		},
		cli.StringFlag{
			Name:  "test-dir, t",
			Value: "tests/evm_asm",
			Usage: "directory holding *.evm.hex cases",
		},
		cli.StringFlag{
			Name:  "filter",
			Usage: "only run cases whose file name contains the pattern",
		},
		cli.StringFlag{
			Name:  "gas-limit",
			Value: "0xFFFFFFFFFFFF",
			Usage: "gas limit for EVM execution (decimal or 0x-hex)",
		},
		cli.StringSliceFlag{
			Name:  "ignore",
			Usage: "case file name to skip (repeatable)",
		},
		cli.StringFlag{
			Name:  "vm-options",
			Usage: "additional options passed verbatim to the VM",
		},
		cli.BoolFlag{
			Name:  "enable-multipass-lazy",
			Usage: "enable multipass lazy compilation",
		},
		cli.IntFlag{
			Name:  "num-multipass-threads",
			Usage: "number of multipass threads (0 = VM default)",
		},
		cli.BoolFlag{
			Name:  "disable-multipass-multithread",
			Usage: "disable multipass multithreading",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Value: 30 * time.Second,
			Usage: "per-case execution timeout",
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "verbose output",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	mode := ctx.String("mode")
	switch mode {
	case "multipass", "singlepass", "interpreter":
	default:
		return cli.NewExitError(fmt.Sprintf("Error: unknown mode %q", mode), 1)
	}

	gasLimit, err := parseGasLimit(ctx.String("gas-limit"))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Error: invalid gas limit %q", ctx.String("gas-limit")), 1)
	}

	log, err := newLogger(ctx.Bool("verbose"))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Error: %v", err), 1)
	}
	defer log.Sync() //nolint:errcheck

	cfg := harness.Config{
		Runtime:                     ctx.String("run"),
		TestDir:                     ctx.String("test-dir"),
		Mode:                        mode,
		Format:                      ctx.String("format"),
		Filter:                      ctx.String("filter"),
		GasLimit:                    gasLimit,
		Ignore:                      ctx.StringSlice("ignore"),
		ExtraOptions:                strings.Fields(ctx.String("vm-options")),
		EnableMultipassLazy:         ctx.Bool("enable-multipass-lazy"),
		NumMultipassThreads:         ctx.Int("num-multipass-threads"),
		DisableMultipassMultithread: ctx.Bool("disable-multipass-multithread"),
		CaseTimeout:                 ctx.Duration("timeout"),
		Verbose:                     ctx.Bool("verbose"),
	}

	runner, err := harness.New(cfg, log)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Error: %v", err), 1)
	}

	stats, err := runner.Run(context.Background())
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Error: %v", err), 1)
	}
	if stats.Failed > 0 {
		return cli.NewExitError(fmt.Sprintf("%d test case(s) failed", stats.Failed), 1)
	}
	return nil
}

// parseGasLimit reads a decimal number or, with a 0x prefix, a hex one.
func parseGasLimit(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
