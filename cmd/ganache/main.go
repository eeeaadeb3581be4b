package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/trufflesuite/ganache-sub010/log"
	"github.com/trufflesuite/ganache-sub010/metrics"
	"github.com/trufflesuite/ganache-sub010/node"
)

var (
	version   string
	gitCommit string
	gitTag    string
	logger    = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "Ganache",
		Usage:   "Local chain simulator with lazy forking of a remote chain",
		Flags: []cli.Flag{
			configFlag,
			forkURLFlag,
			forkBlockFlag,
			chainIDFlag,
			gasLimitFlag,
			modeFlag,
			blockTimeFlag,
			dataDirFlag,
			persistFlag,
			accountsFlag,
			balanceFlag,
			verbosityFlag,
			jsonLogsFlag,
			metricsFlag,
			metricsAddrFlag,
			revertGasPolicyFlag,
			minPriorityFeeFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { logger.Info("exited") }()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	log.Init(os.Stderr, cfg.Verbosity, cfg.JSONLogs)

	options, err := cfg.nodeOptions()
	if err != nil {
		return err
	}

	if cfg.Metrics {
		metrics.InitializePrometheusMetrics()
		srv, err := startMetricsServer(cfg.MetricsAddr)
		if err != nil {
			return err
		}
		defer func() { logger.Info("stopping metrics server..."); srv.Shutdown(context.Background()) }()
	}

	n, err := node.New(exitSignal, options)
	if err != nil {
		return errors.Wrap(err, "start node")
	}
	defer func() { logger.Info("closing node..."); n.Close() }()

	printStartupMessage(n, cfg, options)

	<-exitSignal.Done()
	return nil
}
