package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/trufflesuite/ganache-sub010/ganache"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a YAML config file, flags override its values",
	}
	forkURLFlag = cli.StringFlag{
		Name:  "fork-url",
		Usage: "JSON-RPC URL of the chain to fork, optionally suffixed with @<block>",
	}
	forkBlockFlag = cli.Uint64Flag{
		Name:  "fork-block",
		Usage: "block number to fork at, the remote head if unset",
	}
	chainIDFlag = cli.Uint64Flag{
		Name:  "chain-id",
		Value: ganache.DefaultChainID,
		Usage: "chain id used for tx signing",
	}
	gasLimitFlag = cli.Uint64Flag{
		Name:  "gas-limit",
		Value: ganache.InitialGasLimit,
		Usage: "block gas limit",
	}
	modeFlag = cli.StringFlag{
		Name:  "mode",
		Value: "instant",
		Usage: "block production mode (instant|interval|manual)",
	}
	blockTimeFlag = cli.DurationFlag{
		Name:  "block-time",
		Usage: "block interval of interval mode",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for the chain database, used with --persist",
	}
	persistFlag = cli.BoolFlag{
		Name:  "persist",
		Usage: "keep chain data on disk instead of in memory",
	}
	accountsFlag = cli.IntFlag{
		Name:  "accounts",
		Value: 10,
		Usage: "number of funded dev accounts",
	}
	balanceFlag = cli.StringFlag{
		Name:  "balance",
		Value: "1000",
		Usage: "balance of each dev account in ether",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	metricsFlag = cli.BoolFlag{
		Name:  "metrics",
		Usage: "enable prometheus metrics",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
	revertGasPolicyFlag = cli.StringFlag{
		Name:  "revert-gas-policy",
		Value: "gas-used",
		Usage: "gas charged for reverted txs (gas-used|gas-limit|none)",
	}
	minPriorityFeeFlag = cli.Uint64Flag{
		Name:  "min-priority-fee",
		Usage: "minimum priority fee per gas in wei accepted by the pool",
	}
)
