// Package solo produces blocks for a single node chain.
package solo

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/trufflesuite/ganache-sub010/block"
	"github.com/trufflesuite/ganache-sub010/chain"
	"github.com/trufflesuite/ganache-sub010/co"
	"github.com/trufflesuite/ganache-sub010/log"
	"github.com/trufflesuite/ganache-sub010/packer"
	"github.com/trufflesuite/ganache-sub010/tx"
	"github.com/trufflesuite/ganache-sub010/txpool"
)

var logger = log.WithContext("pkg", "solo")

// Options options for block production.
type Options struct {
	Mode          Mode
	BlockInterval time.Duration
}

// TxPool is what the producer needs from the pool.
type TxPool interface {
	Drain(maxGas uint64, baseFee *big.Int) tx.Transactions
	Restore(txs tx.Transactions)
	Wash() error
	SubscribeTxEvent(ch chan *txpool.TxEvent) event.Subscription
}

// Solo mode is the standalone block producer.
// At most one production cycle runs at a time.
type Solo struct {
	repo    *chain.Repository
	packer  *packer.Packer
	txPool  TxPool
	options Options

	mu        sync.Mutex // held through a production cycle
	producing atomic.Bool
	trigger   chan struct{}
	now       func() uint64
}

// New returns Solo instance
func New(repo *chain.Repository, packer *packer.Packer, txPool TxPool, options Options) *Solo {
	if options.BlockInterval <= 0 {
		options.BlockInterval = time.Second
	}
	return &Solo{
		repo:    repo,
		packer:  packer,
		txPool:  txPool,
		options: options,
		trigger: make(chan struct{}, 1),
		now:     func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// Producing returns whether a production cycle is running.
func (s *Solo) Producing() bool {
	return s.producing.Load()
}

// Trigger requests a production cycle. Triggers arriving while one is pending
// or running are coalesced into a single follow-up cycle.
func (s *Solo) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run runs the production loop until ctx is done.
func (s *Solo) Run(ctx context.Context) error {
	var goes co.Goes
	defer goes.Wait()

	logger.Info("prepared to pack block", "mode", s.options.Mode, "interval", s.options.BlockInterval)

	switch s.options.Mode {
	case ModeInstant:
		// subscribe before returning control so no executable tx is missed
		ch := make(chan *txpool.TxEvent, 64)
		sub := s.txPool.SubscribeTxEvent(ch)
		defer sub.Unsubscribe()
		goes.GoCtx(ctx, func(ctx context.Context) { s.watchPool(ctx, ch, sub) })
		// pick up txs that arrived before the subscription
		s.Trigger()
	case ModeInterval:
		goes.GoCtx(ctx, s.tick)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping block production")
			return nil
		case <-s.trigger:
			// instant mode only packs non empty blocks, and keeps going while the pool has executables
			skipEmpty := s.options.Mode == ModeInstant
			blk, err := s.produce(ctx, skipEmpty, s.options.Mode.String())
			if err != nil {
				logger.Error("failed to pack block", "err", err)
				continue
			}
			if skipEmpty && blk != nil {
				s.Trigger()
			}
		}
	}
}

func (s *Solo) watchPool(ctx context.Context, ch <-chan *txpool.TxEvent, sub event.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			if ev.Executable != nil && *ev.Executable {
				s.Trigger()
			}
		case <-sub.Err():
			return
		}
	}
}

func (s *Solo) tick(ctx context.Context) {
	ticker := time.NewTicker(s.options.BlockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Trigger()
		}
	}
}

// Suspend runs fn while no production cycle can start.
func (s *Solo) Suspend(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// Produce runs one production cycle right now, packing an empty block if the pool has no executables.
func (s *Solo) Produce(ctx context.Context) (*block.Block, error) {
	return s.produce(ctx, false, "request")
}

func (s *Solo) produce(ctx context.Context, skipEmpty bool, trigger string) (blk *block.Block, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.producing.Store(true)
	defer s.producing.Store(false)

	startTime := mclock.Now()
	parent := s.repo.BestBlockSummary().Header
	flow, err := s.packer.Schedule(parent, s.now())
	if err != nil {
		return nil, err
	}

	drained := s.txPool.Drain(flow.GasLimit(), flow.BaseFee())
	if len(drained) == 0 && skipEmpty {
		flow.Abort()
		return nil, nil
	}
	defer func() {
		if err != nil {
			flow.Abort()
			s.txPool.Restore(drained)
			metricCyclesAborted().Add(1)
		}
	}()

	var leftover tx.Transactions
	for _, trx := range drained {
		if err := flow.Adopt(trx); err != nil {
			switch {
			case packer.IsGasLimitReached(err), packer.IsTxNotAdoptableNow(err):
				leftover = append(leftover, trx)
			case packer.IsBadTx(err), packer.IsKnownTx(err):
				logger.Debug("tx dropped", "hash", trx.Hash(), "err", err)
			default:
				return nil, errors.Wrap(err, "adopt tx")
			}
		}
	}

	newBlock, stage, receipts, err := flow.Pack()
	if err != nil {
		return nil, errors.Wrap(err, "pack")
	}
	if _, err := stage.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit state")
	}
	if err := s.repo.AddBlock(newBlock, receipts); err != nil {
		return nil, errors.Wrap(err, "add block")
	}

	if len(leftover) > 0 {
		s.txPool.Restore(leftover)
	}
	if err := s.txPool.Wash(); err != nil {
		logger.Warn("failed to wash tx pool", "err", err)
	}

	elapsed := mclock.Now() - startTime
	metricBlocksProduced().AddWithLabel(1, map[string]string{"trigger": trigger})
	metricProduceDuration().Observe(time.Duration(elapsed).Milliseconds())
	logger.Info("📦 new block packed",
		"number", newBlock.Header().Number(),
		"txs", len(receipts),
		"mgas", float64(newBlock.Header().GasUsed())/1000/1000,
		"et", common.PrettyDuration(elapsed),
		"hash", newBlock.Header().Hash().AbbrevString(),
	)
	return newBlock, nil
}
