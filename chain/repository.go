// Copyright (c) 2018 The VeChainThor developers

// Package chain is the append-only block repository.
package chain

import (
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/trufflesuite/ganache-sub010/block"
	"github.com/trufflesuite/ganache-sub010/co"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/kv"
	"github.com/trufflesuite/ganache-sub010/log"
	"github.com/trufflesuite/ganache-sub010/tx"
)

var (
	logger      = log.WithContext("pkg", "chain")
	errNotFound = errors.New("not found")
)

// NewBlockEvent is sent to subscribers when a block becomes the best block.
type NewBlockEvent struct {
	Block    *block.Block
	Receipts tx.Receipts
}

// Repository stores block headers, txs and receipts.
// Blocks are indexed by hash and by number.
//
// It's thread-safe. Reads never lock, sealed records are immutable.
type Repository struct {
	store     kv.Store
	hdrStore  kv.Store
	numStore  kv.Store
	bodyStore kv.Store
	txIndexer kv.Store
	propStore kv.Store

	genesis *block.Block

	writeLock   sync.Mutex
	bestSummary atomic.Pointer[BlockSummary]
	tick        co.Signal
	feed        event.Feed
	scope       event.SubscriptionScope

	caches struct {
		summaries *cache
		txs       *cache
		receipts  *cache
	}
}

// NewRepository create an instance of repository.
// The genesis block may have a non-zero number, when the chain continues a fork.
func NewRepository(store kv.Store, genesis *block.Block) (*Repository, error) {
	if len(genesis.Transactions()) != 0 {
		return nil, errors.New("genesis block should not have transactions")
	}

	repo := &Repository{
		store:     store,
		hdrStore:  hdrBucket.NewStore(store),
		numStore:  numBucket.NewStore(store),
		bodyStore: bodyBucket.NewStore(store),
		txIndexer: txIndexBucket.NewStore(store),
		propStore: propBucket.NewStore(store),
		genesis:   genesis,
	}
	repo.caches.summaries = newCache("summaries", 512)
	repo.caches.txs = newCache("txs", 2048)
	repo.caches.receipts = newCache("receipts", 2048)

	genesisHash := genesis.Header().Hash()
	if val, err := repo.propStore.Get(bestBlockHashKey); err != nil {
		if !repo.propStore.IsNotFound(err) {
			return nil, err
		}
		if err := repo.saveBlock(genesis, nil); err != nil {
			return nil, err
		}
	} else {
		existing, err := repo.GetBlockHash(genesis.Header().Number())
		if err != nil {
			return nil, errors.Wrap(err, "get existing genesis hash")
		}
		if existing != genesisHash {
			return nil, errors.New("genesis mismatch")
		}
		summary, err := repo.GetBlockSummary(ganache.BytesToBytes32(val))
		if err != nil {
			return nil, errors.Wrap(err, "get best block")
		}
		repo.bestSummary.Store(summary)
		metricBestBlockNum().Set(int64(summary.Header.Number()))
	}
	return repo, nil
}

// GenesisBlock returns genesis block.
func (r *Repository) GenesisBlock() *block.Block {
	return r.genesis
}

// BestBlockSummary returns the summary of the best block, which is the newest block of the chain.
func (r *Repository) BestBlockSummary() *BlockSummary {
	return r.bestSummary.Load()
}

// BestBlock returns the newest block of the chain.
func (r *Repository) BestBlock() (*block.Block, error) {
	return r.GetBlock(r.BestBlockSummary().Header.Hash())
}

// IsNotFound returns if the error means not found.
func (r *Repository) IsNotFound(err error) bool {
	return errors.Is(err, errNotFound) || r.store.IsNotFound(errors.Cause(err))
}

func (r *Repository) saveBlock(blk *block.Block, receipts tx.Receipts) error {
	var (
		header        = blk.Header()
		hash          = header.Hash()
		txs           = blk.Transactions()
		bulk          = r.store.Bulk()
		hdrPutter     = hdrBucket.NewPutter(bulk)
		numPutter     = numBucket.NewPutter(bulk)
		bodyPutter    = bodyBucket.NewPutter(bulk)
		txIndexPutter = txIndexBucket.NewPutter(bulk)
		propPutter    = propBucket.NewPutter(bulk)
		txHashes      = make([]ganache.Bytes32, 0, len(txs))
	)

	for i, trx := range txs {
		txHash := trx.Hash()
		txHashes = append(txHashes, txHash)
		if err := saveRLP(txIndexPutter, txHash[:], &TxMeta{
			BlockHash:   hash,
			BlockNumber: header.Number(),
			Index:       uint64(i),
		}); err != nil {
			return err
		}
	}
	if err := saveSnappyRLP(bodyPutter, bodyKey(hash, txsInfix), txs); err != nil {
		return err
	}
	if err := saveSnappyRLP(bodyPutter, bodyKey(hash, receiptsInfix), receipts); err != nil {
		return err
	}

	size, err := blockSize(blk)
	if err != nil {
		return err
	}
	summary := BlockSummary{header, txHashes, size}
	if err := saveBlockSummary(hdrPutter, &summary); err != nil {
		return err
	}
	if err := numPutter.Put(numberKey(header.Number()), hash[:]); err != nil {
		return err
	}
	if err := propPutter.Put(bestBlockHashKey, hash[:]); err != nil {
		return err
	}
	if err := bulk.Write(); err != nil {
		return err
	}

	r.caches.summaries.Add(hash, &summary)
	r.caches.txs.Add(hash, txs)
	r.caches.receipts.Add(hash, receipts)
	r.bestSummary.Store(&summary)
	metricBestBlockNum().Set(int64(header.Number()))
	return nil
}

// AddBlock appends a new block with its receipts onto the best block.
func (r *Repository) AddBlock(newBlock *block.Block, receipts tx.Receipts) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	header := newBlock.Header()
	best := r.BestBlockSummary().Header
	if header.ParentHash() != best.Hash() {
		return errors.New("parent is not the best block")
	}
	if header.Number() != best.Number()+1 {
		return errors.Errorf("block number %d does not follow %d", header.Number(), best.Number())
	}
	if n := len(newBlock.Transactions()); n != len(receipts) {
		return errors.Errorf("%d txs but %d receipts", n, len(receipts))
	}

	if err := r.saveBlock(newBlock, receipts); err != nil {
		return err
	}
	metricBlockTxsCount().Observe(int64(len(receipts)))
	logger.Debug("block added", "number", header.Number(), "hash", header.Hash(), "txs", len(receipts))

	r.tick.Broadcast()
	r.feed.Send(&NewBlockEvent{Block: newBlock, Receipts: receipts})
	return nil
}

// Rewind drops blocks above the given number, making that block the best.
// Dropped blocks are no longer reachable by number, nor their txs by hash.
func (r *Repository) Rewind(number uint64) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	best := r.BestBlockSummary()
	if number > best.Header.Number() {
		return errors.Errorf("rewind to %d beyond best %d", number, best.Header.Number())
	}
	if number < r.genesis.Header().Number() {
		return errors.Errorf("rewind to %d below genesis", number)
	}
	target, err := r.GetBlockHash(number)
	if err != nil {
		return err
	}
	targetSummary, err := r.GetBlockSummary(target)
	if err != nil {
		return err
	}

	var (
		bulk          = r.store.Bulk()
		numPutter     = numBucket.NewPutter(bulk)
		txIndexPutter = txIndexBucket.NewPutter(bulk)
		propPutter    = propBucket.NewPutter(bulk)
	)
	for n := best.Header.Number(); n > number; n-- {
		hash, err := r.GetBlockHash(n)
		if err != nil {
			return err
		}
		summary, err := r.GetBlockSummary(hash)
		if err != nil {
			return err
		}
		for _, txHash := range summary.TxHashes {
			if err := txIndexPutter.Delete(txHash[:]); err != nil {
				return err
			}
		}
		if err := numPutter.Delete(numberKey(n)); err != nil {
			return err
		}
	}
	if err := propPutter.Put(bestBlockHashKey, target[:]); err != nil {
		return err
	}
	if err := bulk.Write(); err != nil {
		return err
	}

	r.bestSummary.Store(targetSummary)
	metricBestBlockNum().Set(int64(number))
	logger.Debug("chain rewound", "from", best.Header.Number(), "to", number)
	r.tick.Broadcast()
	return nil
}

// NewTicker create a signal Waiter to receive event that the best block changed.
func (r *Repository) NewTicker() co.Waiter {
	return r.tick.NewWaiter()
}

// SubscribeNewBlock subscribes to blocks added as best.
func (r *Repository) SubscribeNewBlock(ch chan<- *NewBlockEvent) event.Subscription {
	return r.scope.Track(r.feed.Subscribe(ch))
}

// Close closes all subscriptions.
func (r *Repository) Close() {
	r.scope.Close()
}

// GetBlockHash returns the hash of the block with the given number.
func (r *Repository) GetBlockHash(num uint64) (ganache.Bytes32, error) {
	data, err := r.numStore.Get(numberKey(num))
	if err != nil {
		return ganache.Bytes32{}, err
	}
	return ganache.BytesToBytes32(data), nil
}

// GetBlockSummary get block summary by block hash.
func (r *Repository) GetBlockSummary(hash ganache.Bytes32) (*BlockSummary, error) {
	summary, err := r.caches.summaries.GetOrLoad(hash, func() (any, error) {
		return loadBlockSummary(r.hdrStore, hash)
	})
	if err != nil {
		return nil, err
	}
	return summary.(*BlockSummary), nil
}

// GetBlockHeader get block header by block hash.
func (r *Repository) GetBlockHeader(hash ganache.Bytes32) (*block.Header, error) {
	summary, err := r.GetBlockSummary(hash)
	if err != nil {
		return nil, err
	}
	return summary.Header, nil
}

// GetBlockTransactions get all transactions of the block.
func (r *Repository) GetBlockTransactions(hash ganache.Bytes32) (tx.Transactions, error) {
	txs, err := r.caches.txs.GetOrLoad(hash, func() (any, error) {
		return loadTransactions(r.bodyStore, hash)
	})
	if err != nil {
		return nil, err
	}
	return txs.(tx.Transactions), nil
}

// GetBlock get block by hash.
func (r *Repository) GetBlock(hash ganache.Bytes32) (*block.Block, error) {
	summary, err := r.GetBlockSummary(hash)
	if err != nil {
		return nil, err
	}
	txs, err := r.GetBlockTransactions(hash)
	if err != nil {
		return nil, err
	}
	return block.New(summary.Header, txs), nil
}

// GetBlockByNumber get the block of the given number.
func (r *Repository) GetBlockByNumber(num uint64) (*block.Block, error) {
	hash, err := r.GetBlockHash(num)
	if err != nil {
		return nil, err
	}
	return r.GetBlock(hash)
}

// GetBlockReceipts get all tx receipts in the block for given block hash.
func (r *Repository) GetBlockReceipts(hash ganache.Bytes32) (tx.Receipts, error) {
	receipts, err := r.caches.receipts.GetOrLoad(hash, func() (any, error) {
		return loadReceipts(r.bodyStore, hash)
	})
	if err != nil {
		return nil, err
	}
	return receipts.(tx.Receipts), nil
}

// GetTransactionMeta returns the location of the tx in the chain.
func (r *Repository) GetTransactionMeta(txHash ganache.Bytes32) (*TxMeta, error) {
	var meta TxMeta
	if err := loadRLP(r.txIndexer, txHash[:], &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// GetTransaction returns the tx with its location.
func (r *Repository) GetTransaction(txHash ganache.Bytes32) (*tx.Transaction, *TxMeta, error) {
	meta, err := r.GetTransactionMeta(txHash)
	if err != nil {
		return nil, nil, err
	}
	txs, err := r.GetBlockTransactions(meta.BlockHash)
	if err != nil {
		return nil, nil, err
	}
	if meta.Index >= uint64(len(txs)) {
		return nil, nil, errNotFound
	}
	return txs[meta.Index], meta, nil
}

// GetReceipt returns the receipt of the tx with the tx location.
func (r *Repository) GetReceipt(txHash ganache.Bytes32) (*tx.Receipt, *TxMeta, error) {
	meta, err := r.GetTransactionMeta(txHash)
	if err != nil {
		return nil, nil, err
	}
	receipts, err := r.GetBlockReceipts(meta.BlockHash)
	if err != nil {
		return nil, nil, err
	}
	if meta.Index >= uint64(len(receipts)) {
		return nil, nil, errNotFound
	}
	return receipts[meta.Index], meta, nil
}

func blockSize(blk *block.Block) (uint64, error) {
	data, err := rlp.EncodeToBytes(blk)
	if err != nil {
		return 0, err
	}
	return uint64(len(data)), nil
}
