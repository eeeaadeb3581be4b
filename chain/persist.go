// Copyright (c) 2018 The VeChainThor developers

package chain

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"

	"github.com/trufflesuite/ganache-sub010/block"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/kv"
	"github.com/trufflesuite/ganache-sub010/tx"
)

const (
	hdrBucket     = kv.Bucket("h") // block hash => block summary
	numBucket     = kv.Bucket("n") // block number => canonical block hash
	bodyBucket    = kv.Bucket("b") // block hash | infix => snappy compressed txs or receipts
	txIndexBucket = kv.Bucket("x") // tx hash => tx location
	propBucket    = kv.Bucket("p") // for property-named values such as best block

	txsInfix      = byte(0)
	receiptsInfix = byte(1)
)

var bestBlockHashKey = []byte("best-block-hash")

// BlockSummary presents block summary.
type BlockSummary struct {
	Header   *block.Header
	TxHashes []ganache.Bytes32
	Size     uint64
}

// TxMeta locates a transaction in the chain.
type TxMeta struct {
	BlockHash   ganache.Bytes32
	BlockNumber uint64
	Index       uint64
}

func numberKey(num uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, num)
}

func bodyKey(hash ganache.Bytes32, infix byte) []byte {
	return append(hash.Bytes(), infix)
}

func saveRLP(w kv.Putter, key []byte, val any) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return err
	}
	return w.Put(key, data)
}

func loadRLP(r kv.Getter, key []byte, val any) error {
	data, err := r.Get(key)
	if err != nil {
		return err
	}
	return rlp.DecodeBytes(data, val)
}

// saveSnappyRLP saves the rlp encoding of val, compressed.
func saveSnappyRLP(w kv.Putter, key []byte, val any) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return err
	}
	return w.Put(key, snappy.Encode(nil, data))
}

func loadSnappyRLP(r kv.Getter, key []byte, val any) error {
	data, err := r.Get(key)
	if err != nil {
		return err
	}
	if data, err = snappy.Decode(nil, data); err != nil {
		return err
	}
	return rlp.DecodeBytes(data, val)
}

func saveBlockSummary(w kv.Putter, summary *BlockSummary) error {
	return saveRLP(w, summary.Header.Hash().Bytes(), summary)
}

func loadBlockSummary(r kv.Getter, hash ganache.Bytes32) (*BlockSummary, error) {
	var summary BlockSummary
	if err := loadRLP(r, hash[:], &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func loadTransactions(r kv.Getter, hash ganache.Bytes32) (tx.Transactions, error) {
	var txs tx.Transactions
	if err := loadSnappyRLP(r, bodyKey(hash, txsInfix), &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func loadReceipts(r kv.Getter, hash ganache.Bytes32) (tx.Receipts, error) {
	var receipts tx.Receipts
	if err := loadSnappyRLP(r, bodyKey(hash, receiptsInfix), &receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}
