// Package node wires storage, the fork cache, the chain, the pool and the
// block producer into one chain engine handle.
package node

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trufflesuite/ganache-sub010/chain"
	"github.com/trufflesuite/ganache-sub010/fork"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/genesis"
	"github.com/trufflesuite/ganache-sub010/log"
	"github.com/trufflesuite/ganache-sub010/lvldb"
	"github.com/trufflesuite/ganache-sub010/packer"
	"github.com/trufflesuite/ganache-sub010/remote"
	"github.com/trufflesuite/ganache-sub010/runtime"
	"github.com/trufflesuite/ganache-sub010/solo"
	"github.com/trufflesuite/ganache-sub010/state"
	"github.com/trufflesuite/ganache-sub010/txpool"
)

var logger = log.WithContext("pkg", "node")

// DefaultGenesisTimestamp is the timestamp of a fresh chain's genesis, fixed
// so that a persisted chain reopens with the same genesis.
const DefaultGenesisTimestamp uint64 = 1526400000

// ForkOptions options for forking a remote chain.
type ForkOptions struct {
	URL string
	// pinned height, the remote head if zero
	Height uint64
	// used instead of dialing URL if set
	Remote fork.Remote
	Cache  fork.Options
}

// Options for Node.
type Options struct {
	// on-disk store directory, memory if empty
	DataDir          string
	ChainID          uint64
	GasLimit         uint64
	GenesisTimestamp uint64
	Beneficiary      ganache.Address
	Accounts         []genesis.DevAccount
	Balance          *big.Int
	Mode             solo.Mode
	BlockInterval    time.Duration
	RevertGasPolicy  packer.RevertGasPolicy
	TxPool           txpool.Options
	Fork             *ForkOptions
	// value transfer engine if nil
	Engine runtime.Engine
}

// Node is the chain engine handle.
type Node struct {
	options Options
	db      *lvldb.LevelDB
	client  *remote.Client
	fc      *fork.Cache
	repo    *chain.Repository
	stater  *state.Stater
	txPool  *txpool.TxPool
	solo    *solo.Solo

	cancel context.CancelFunc
	group  *errgroup.Group

	snapshotsMu sync.Mutex
	snapshots   []uint64 // block number by snapshot id - 1
	closeOnce   sync.Once
}

// New opens the store, dials the fork if any, builds or reopens the chain
// and starts block production. Call Close to release everything.
func New(ctx context.Context, options Options) (_ *Node, err error) {
	if options.ChainID == 0 {
		options.ChainID = ganache.DefaultChainID
	}
	if options.Balance == nil {
		options.Balance = genesis.DefaultDevBalance
	}
	if options.TxPool == (txpool.Options{}) {
		options.TxPool = txpool.DefaultOptions()
	}
	options.TxPool.ChainID = options.ChainID
	if options.Engine == nil {
		options.Engine = runtime.TransferEngine{}
	}

	n := &Node{options: options}
	defer func() {
		if err != nil {
			n.release()
		}
	}()

	if options.DataDir == "" {
		n.db, err = lvldb.NewMem()
	} else {
		n.db, err = lvldb.New(options.DataDir, lvldb.Options{})
	}
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}

	gene := new(genesis.Builder)
	if options.Fork != nil {
		header, err := n.openFork(ctx, options.Fork)
		if err != nil {
			return nil, err
		}
		gene = genesis.NewForkBuilder(header)
	} else {
		ts := options.GenesisTimestamp
		if ts == 0 {
			ts = DefaultGenesisTimestamp
		}
		gene.Timestamp(ts).GasLimit(options.GasLimit)
	}
	gene.AllocDevAccounts(options.Accounts, options.Balance)

	n.stater = state.NewStater(n.db, n.fc)
	genesisBlock, err := gene.Build(n.stater)
	if err != nil {
		return nil, errors.Wrap(err, "build genesis")
	}
	if n.repo, err = chain.NewRepository(n.db, genesisBlock); err != nil {
		return nil, errors.Wrap(err, "open chain")
	}

	n.txPool = txpool.New(n.repo, n.stater, options.TxPool)
	pk := packer.New(n.repo, n.stater, options.Engine, packer.Options{
		ChainID:         options.ChainID,
		Beneficiary:     options.Beneficiary,
		GasLimit:        options.GasLimit,
		RevertGasPolicy: options.RevertGasPolicy,
	})
	n.solo = solo.New(n.repo, pk, n.txPool, solo.Options{
		Mode:          options.Mode,
		BlockInterval: options.BlockInterval,
	})

	var runCtx context.Context
	runCtx, n.cancel = context.WithCancel(context.Background())
	n.group, runCtx = errgroup.WithContext(runCtx)
	n.group.Go(func() error { return n.solo.Run(runCtx) })

	best := n.repo.BestBlockSummary().Header
	logger.Info("node started",
		"chainID", options.ChainID,
		"genesis", genesisBlock.Header().Hash(),
		"best", best.Number(),
		"forked", n.fc != nil,
		"mode", options.Mode)
	return n, nil
}

func (n *Node) openFork(ctx context.Context, options *ForkOptions) (*fork.Header, error) {
	rmt := options.Remote
	if rmt == nil {
		client, err := remote.Dial(ctx, options.URL)
		if err != nil {
			return nil, err
		}
		n.client = client
		rmt = client
	}

	height := options.Height
	if height == 0 {
		headReader, ok := rmt.(interface {
			BlockNumber(ctx context.Context) (uint64, error)
		})
		if !ok {
			return nil, errors.New("fork height required")
		}
		head, err := headReader.BlockNumber(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "query remote head")
		}
		height = head
	}

	cacheOptions := options.Cache
	if cacheOptions == (fork.Options{}) {
		cacheOptions = fork.DefaultOptions()
	}
	n.fc = fork.New(rmt, height, n.db, cacheOptions)

	header, err := n.fc.Header(ctx, height)
	if err != nil {
		return nil, errors.Wrap(err, "fetch fork block")
	}
	logger.Info("forking remote chain", "number", header.Number, "hash", header.Hash)
	return header, nil
}

// Repository returns the chain.
func (n *Node) Repository() *chain.Repository { return n.repo }

// TxPool returns the pending tx pool.
func (n *Node) TxPool() *txpool.TxPool { return n.txPool }

// Fork returns the fork cache, nil if not forked.
func (n *Node) Fork() *fork.Cache { return n.fc }

// ChainID returns the chain id.
func (n *Node) ChainID() uint64 { return n.options.ChainID }

// Close stops block production and releases all resources.
func (n *Node) Close() error {
	var err error
	n.closeOnce.Do(func() {
		if n.cancel != nil {
			n.cancel()
			err = n.group.Wait()
		}
		n.release()
		logger.Info("node stopped")
	})
	return err
}

func (n *Node) release() {
	if n.txPool != nil {
		n.txPool.Close()
	}
	if n.fc != nil {
		n.fc.Close()
	}
	if n.client != nil {
		n.client.Close()
	}
	if n.repo != nil {
		n.repo.Close()
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			logger.Warn("failed to close store", "err", err)
		}
	}
}
