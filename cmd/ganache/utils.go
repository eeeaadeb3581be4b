package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/trufflesuite/ganache-sub010/metrics"
	"github.com/trufflesuite/ganache-sub010/node"
)

func defaultDataDir() string {
	if home := homeDir(); home != "" {
		return filepath.Join(home, ".ganache")
	}
	return ""
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func startMetricsServer(addr string) (*http.Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen metrics addr [%v]", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", "err", err)
		}
	}()
	logger.Info("metrics server started", "url", "http://"+listener.Addr().String()+"/metrics")
	return srv, nil
}

func printStartupMessage(n *node.Node, cfg *config, options node.Options) {
	best := n.Repository().BestBlockSummary().Header
	dataDir := "Memory"
	if options.DataDir != "" {
		dataDir = options.DataDir
	}
	forked := "no"
	if fc := n.Fork(); fc != nil {
		forked = fmt.Sprintf("%v @ %v", options.Fork.URL, fc.Height())
	}

	fmt.Printf(`Starting %v
    Chain ID    [ %v ]
    Best block  [ %v #%v ]
    Fork        [ %v ]
    Mode        [ %v ]
    Gas limit   [ %v ]
    Data dir    [ %v ]
`,
		fullVersion(),
		n.ChainID(),
		best.Hash(), best.Number(),
		forked,
		cfg.Mode,
		best.GasLimit(),
		dataDir)

	if len(options.Accounts) == 0 {
		return
	}
	fmt.Printf("\nAvailable accounts (%v ETH each)\n", cfg.Balance)
	for i, acc := range options.Accounts {
		fmt.Printf("(%d) %v %v\n", i, acc.Address, hexutil.Encode(crypto.FromECDSA(acc.PrivateKey)))
	}
}
