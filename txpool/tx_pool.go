// Copyright (c) 2018 The VeChainThor developers

// Package txpool holds submitted txs until they are packed into a block.
package txpool

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/ethereum/go-ethereum/event"

	"github.com/trufflesuite/ganache-sub010/chain"
	"github.com/trufflesuite/ganache-sub010/co"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/log"
	"github.com/trufflesuite/ganache-sub010/state"
	"github.com/trufflesuite/ganache-sub010/tx"
)

const (
	// max size of tx allowed
	MaxTxSize = 128 * 1024
)

var logger = log.WithContext("pkg", "txpool")

// Options options for tx pool.
type Options struct {
	ChainID         uint64
	Limit           int
	LimitPerAccount int
	// percentage both fee fields of a replacement must exceed the replaced tx by
	PriceBump      uint64
	MinPriorityFee *big.Int
}

// DefaultOptions returns options suitable for a dev chain.
func DefaultOptions() Options {
	return Options{
		ChainID:         ganache.DefaultChainID,
		Limit:           10000,
		LimitPerAccount: 256,
		PriceBump:       10,
		MinPriorityFee:  new(big.Int),
	}
}

// HeadReader provides the committed head the pool validates against.
type HeadReader interface {
	BestBlockSummary() *chain.BlockSummary
	NewTicker() co.Waiter
}

// TxEvent will be posted when tx is added or status changed.
type TxEvent struct {
	Tx         *tx.Transaction
	Executable *bool
}

// TxPool maintains unprocessed transactions.
type TxPool struct {
	options Options
	head    HeadReader
	stater  *state.Stater
	all     *txObjectMap

	ctx    context.Context
	cancel func()
	txFeed event.Feed
	scope  event.SubscriptionScope
	goes   co.Goes
}

// New create a new TxPool instance.
// Close is required to be called at end.
func New(head HeadReader, stater *state.Stater, options Options) *TxPool {
	if options.MinPriorityFee == nil {
		options.MinPriorityFee = new(big.Int)
	}
	ctx, cancel := context.WithCancel(context.Background())
	pool := &TxPool{
		options: options,
		head:    head,
		stater:  stater,
		all:     newTxObjectMap(),
		ctx:     ctx,
		cancel:  cancel,
	}
	ticker := head.NewTicker()
	pool.goes.Go(func() { pool.housekeeping(ticker) })
	return pool
}

func (p *TxPool) housekeeping(ticker co.Waiter) {
	logger.Debug("enter housekeeping")
	defer logger.Debug("leave housekeeping")

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C():
			// a production cycle may still hold drained txs, keep them restorable
			if err := p.wash(false); err != nil {
				logger.Warn("wash failed", "err", err)
			}
		}
	}
}

// Close cleanup inner go routines.
func (p *TxPool) Close() {
	p.cancel()
	p.scope.Close()
	p.goes.Wait()
	logger.Debug("closed")
}

// SubscribeTxEvent receivers will receive a tx
func (p *TxPool) SubscribeTxEvent(ch chan *TxEvent) event.Subscription {
	return p.scope.Track(p.txFeed.Subscribe(ch))
}

func (p *TxPool) headState() (*chain.BlockSummary, *state.State) {
	summary := p.head.BestBlockSummary()
	return summary, p.stater.NewState(summary.Header.StateRoot())
}

// Add adds a new tx into pool.
// It's not assumed as an error if the tx to be added is already in the pool.
func (p *TxPool) Add(newTx *tx.Transaction) (err error) {
	defer func() {
		if err != nil {
			reason := "rejected"
			if IsBadTx(err) {
				reason = "bad"
			}
			metricBadTxCounter().AddWithLabel(1, map[string]string{"reason": reason})
		}
	}()

	if p.all.ContainsHash(newTx.Hash()) {
		// tx already in the pool
		return nil
	}
	if err := p.validateTxBasics(newTx); err != nil {
		return err
	}
	txObj, err := resolveTx(newTx)
	if err != nil {
		return badTxError{err.Error()}
	}

	headSummary, st := p.headState()
	committed, err := p.validateTxState(txObj, headSummary, st)
	if err != nil {
		return err
	}

	replaced, err := p.all.Add(txObj, committed, &p.options)
	if err != nil {
		return txRejectedError{err}
	}
	if replaced != nil {
		logger.Debug("tx replaced", "prev", replaced.Hash(), "new", newTx.Hash())
		metricTxPoolGauge().AddWithLabel(-1, map[string]string{"source": "replaced", "type": txTypeString(replaced.Type())})
	}
	metricTxPoolGauge().AddWithLabel(1, map[string]string{"source": "local", "type": txTypeString(newTx.Type())})

	executable := txObj.executable
	p.goes.Go(func() {
		p.txFeed.Send(&TxEvent{newTx, &executable})
	})
	logger.Trace("tx added", "hash", newTx.Hash(), "sender", txObj.sender, "nonce", newTx.Nonce(), "executable", executable)
	return nil
}

// Get get pooled tx by hash.
func (p *TxPool) Get(txHash ganache.Bytes32) *tx.Transaction {
	if txObj := p.all.Get(txHash); txObj != nil {
		return txObj.Transaction
	}
	return nil
}

// Remove removes tx from pool by its hash. Later txs of the same sender become queued.
func (p *TxPool) Remove(txHash ganache.Bytes32) bool {
	removed := p.all.Get(txHash)
	if removed == nil {
		return false
	}
	if p.all.RemoveByHash(txHash) {
		metricTxPoolGauge().AddWithLabel(-1, map[string]string{"source": "n/a", "type": txTypeString(removed.Type())})
		logger.Debug("tx removed", "hash", txHash)
		return true
	}
	return false
}

// Executables returns executable txs in the order they would be packed under baseFee.
func (p *TxPool) Executables(baseFee *big.Int) tx.Transactions {
	executables := p.all.Executables(baseFee)
	metricExecutables().Set(int64(len(executables)))
	return executables
}

// Drain removes executable txs in selection order until maxGas is exhausted.
// Queued txs, and txs whose fee cap is below baseFee, stay in the pool.
func (p *TxPool) Drain(maxGas uint64, baseFee *big.Int) tx.Transactions {
	txs := p.all.Drain(maxGas, baseFee)
	for _, trx := range txs {
		metricTxPoolGauge().AddWithLabel(-1, map[string]string{"source": "drained", "type": txTypeString(trx.Type())})
	}
	if len(txs) > 0 {
		logger.Debug("txs drained", "count", len(txs), "left", p.all.Len())
	}
	return txs
}

// Restore puts back txs drained by an aborted production cycle.
func (p *TxPool) Restore(txs tx.Transactions) {
	n := p.all.Restore(txs)
	metricTxPoolGauge().AddWithLabel(int64(n), map[string]string{"source": "restored", "type": "n/a"})
	logger.Debug("txs restored", "count", n)
}

// Dump dumps all txs in the pool, in insertion order.
func (p *TxPool) Dump() tx.Transactions {
	return p.all.ToTxs()
}

// Len returns the count of pooled txs.
func (p *TxPool) Len() int {
	return p.all.Len()
}

// Wash drops txs settled by the head block and recomputes which txs are executable.
// It should be called once a production cycle has restored its leftovers, as it
// forgets every drained tx. Head changes trigger a lighter wash on their own.
func (p *TxPool) Wash() error {
	return p.wash(true)
}

func (p *TxPool) wash(settle bool) error {
	startTime := mclock.Now()
	headSummary, st := p.headState()

	senders := p.all.Senders()
	bases := make(map[ganache.Address]uint64, len(senders))
	for _, sender := range senders {
		nonce, err := st.GetNonce(sender)
		if err != nil {
			return err
		}
		bases[sender] = nonce
	}

	removed, promoted := p.all.Wash(bases, headSummary.Header.GasLimit(), p.options.Limit, settle)
	for _, txObj := range removed {
		metricTxPoolGauge().AddWithLabel(-1, map[string]string{"source": "washed", "type": txTypeString(txObj.Type())})
		logger.Trace("tx washed out", "hash", txObj.Hash())
	}
	if len(promoted) > 0 {
		p.goes.Go(func() {
			executable := true
			for _, txObj := range promoted {
				p.txFeed.Send(&TxEvent{txObj.Transaction, &executable})
			}
		})
	}
	logger.Trace("wash done",
		"len", p.all.Len(),
		"removed", len(removed),
		"promoted", len(promoted),
		"elapsed", common.PrettyDuration(mclock.Now()-startTime))
	return nil
}
