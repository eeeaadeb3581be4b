package main

import (
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/trufflesuite/ganache-sub010/genesis"
	"github.com/trufflesuite/ganache-sub010/node"
	"github.com/trufflesuite/ganache-sub010/packer"
	"github.com/trufflesuite/ganache-sub010/solo"
	"github.com/trufflesuite/ganache-sub010/txpool"
)

type config struct {
	ForkURL         string        `yaml:"fork-url"`
	ForkBlock       uint64        `yaml:"fork-block"`
	ChainID         uint64        `yaml:"chain-id"`
	GasLimit        uint64        `yaml:"gas-limit"`
	Mode            string        `yaml:"mode"`
	BlockTime       time.Duration `yaml:"block-time"`
	DataDir         string        `yaml:"data-dir"`
	Persist         bool          `yaml:"persist"`
	Accounts        int           `yaml:"accounts"`
	Balance         string        `yaml:"balance"`
	Verbosity       int           `yaml:"verbosity"`
	JSONLogs        bool          `yaml:"json-logs"`
	Metrics         bool          `yaml:"metrics"`
	MetricsAddr     string        `yaml:"metrics-addr"`
	RevertGasPolicy string        `yaml:"revert-gas-policy"`
	MinPriorityFee  uint64        `yaml:"min-priority-fee"`
}

// loadConfig starts from flag defaults, applies the config file if any,
// then the flags set on the command line.
func loadConfig(ctx *cli.Context) (*config, error) {
	cfg := &config{
		ChainID:         ctx.Uint64(chainIDFlag.Name),
		GasLimit:        ctx.Uint64(gasLimitFlag.Name),
		Mode:            ctx.String(modeFlag.Name),
		BlockTime:       ctx.Duration(blockTimeFlag.Name),
		DataDir:         ctx.String(dataDirFlag.Name),
		Accounts:        ctx.Int(accountsFlag.Name),
		Balance:         ctx.String(balanceFlag.Name),
		Verbosity:       ctx.Int(verbosityFlag.Name),
		MetricsAddr:     ctx.String(metricsAddrFlag.Name),
		RevertGasPolicy: ctx.String(revertGasPolicyFlag.Name),
	}

	if path := ctx.String(configFlag.Name); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}

	if ctx.IsSet(forkURLFlag.Name) {
		cfg.ForkURL = ctx.String(forkURLFlag.Name)
	}
	if ctx.IsSet(forkBlockFlag.Name) {
		cfg.ForkBlock = ctx.Uint64(forkBlockFlag.Name)
	}
	if ctx.IsSet(chainIDFlag.Name) {
		cfg.ChainID = ctx.Uint64(chainIDFlag.Name)
	}
	if ctx.IsSet(gasLimitFlag.Name) {
		cfg.GasLimit = ctx.Uint64(gasLimitFlag.Name)
	}
	if ctx.IsSet(modeFlag.Name) {
		cfg.Mode = ctx.String(modeFlag.Name)
	}
	if ctx.IsSet(blockTimeFlag.Name) {
		cfg.BlockTime = ctx.Duration(blockTimeFlag.Name)
	}
	if ctx.IsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(persistFlag.Name) {
		cfg.Persist = ctx.Bool(persistFlag.Name)
	}
	if ctx.IsSet(accountsFlag.Name) {
		cfg.Accounts = ctx.Int(accountsFlag.Name)
	}
	if ctx.IsSet(balanceFlag.Name) {
		cfg.Balance = ctx.String(balanceFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	if ctx.IsSet(jsonLogsFlag.Name) {
		cfg.JSONLogs = ctx.Bool(jsonLogsFlag.Name)
	}
	if ctx.IsSet(metricsFlag.Name) {
		cfg.Metrics = ctx.Bool(metricsFlag.Name)
	}
	if ctx.IsSet(metricsAddrFlag.Name) {
		cfg.MetricsAddr = ctx.String(metricsAddrFlag.Name)
	}
	if ctx.IsSet(revertGasPolicyFlag.Name) {
		cfg.RevertGasPolicy = ctx.String(revertGasPolicyFlag.Name)
	}
	if ctx.IsSet(minPriorityFeeFlag.Name) {
		cfg.MinPriorityFee = ctx.Uint64(minPriorityFeeFlag.Name)
	}
	return cfg, nil
}

// parseForkURL splits an optional @<block> suffix off url.
func parseForkURL(url string) (string, uint64) {
	i := strings.LastIndex(url, "@")
	if i < 0 {
		return url, 0
	}
	num, err := strconv.ParseUint(url[i+1:], 10, 64)
	if err != nil {
		// user info, not a block number
		return url, 0
	}
	return url[:i], num
}

// parseEther parses a decimal ether amount into wei.
func parseEther(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok || r.Sign() < 0 {
		return nil, errors.Errorf("invalid balance %q", s)
	}
	r.Mul(r, new(big.Rat).SetInt(big.NewInt(1e18)))
	if !r.IsInt() {
		return nil, errors.Errorf("balance %q has more than 18 decimals", s)
	}
	return new(big.Int).Set(r.Num()), nil
}

func (cfg *config) nodeOptions() (node.Options, error) {
	var options node.Options

	mode, err := solo.ParseMode(cfg.Mode)
	if err != nil {
		return options, err
	}
	policy, err := packer.ParseRevertGasPolicy(cfg.RevertGasPolicy)
	if err != nil {
		return options, err
	}
	balance, err := parseEther(cfg.Balance)
	if err != nil {
		return options, err
	}
	if cfg.Accounts < 0 {
		return options, errors.New("negative number of accounts")
	}

	poolOptions := txpool.DefaultOptions()
	poolOptions.MinPriorityFee = new(big.Int).SetUint64(cfg.MinPriorityFee)

	options = node.Options{
		ChainID:         cfg.ChainID,
		GasLimit:        cfg.GasLimit,
		Accounts:        genesis.DevAccounts(cfg.Accounts),
		Balance:         balance,
		Mode:            mode,
		BlockInterval:   cfg.BlockTime,
		RevertGasPolicy: policy,
		TxPool:          poolOptions,
	}
	if cfg.Persist {
		options.DataDir = cfg.DataDir
	}
	if cfg.ForkURL != "" {
		url, height := parseForkURL(cfg.ForkURL)
		if cfg.ForkBlock != 0 {
			height = cfg.ForkBlock
		}
		options.Fork = &node.ForkOptions{URL: url, Height: height}
	}
	return options, nil
}
