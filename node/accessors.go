package node

import (
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/trufflesuite/ganache-sub010/block"
	"github.com/trufflesuite/ganache-sub010/chain"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/state"
	"github.com/trufflesuite/ganache-sub010/tx"
)

// BlockInfo describes a block of the local chain, or a remote block below the fork point.
type BlockInfo struct {
	Number      uint64
	Hash        ganache.Bytes32
	ParentHash  ganache.Bytes32
	Timestamp   uint64
	Beneficiary ganache.Address
	GasLimit    uint64
	GasUsed     uint64
	BaseFee     *big.Int
	StateRoot   ganache.Bytes32
	TxHashes    []ganache.Bytes32
	// the block was fetched from the forked chain
	Remote bool
}

func newBlockInfo(blk *block.Block) *BlockInfo {
	h := blk.Header()
	info := &BlockInfo{
		Number:      h.Number(),
		Hash:        h.Hash(),
		ParentHash:  h.ParentHash(),
		Timestamp:   h.Timestamp(),
		Beneficiary: h.Beneficiary(),
		GasLimit:    h.GasLimit(),
		GasUsed:     h.GasUsed(),
		BaseFee:     h.BaseFee(),
		StateRoot:   h.StateRoot(),
	}
	for _, trx := range blk.Transactions() {
		info.TxHashes = append(info.TxHashes, trx.Hash())
	}
	return info
}

// State returns the state at the best block.
func (n *Node) State() *state.State {
	return n.stater.NewState(n.repo.BestBlockSummary().Header.StateRoot())
}

// StateAt returns the state after the local block of the given number.
func (n *Node) StateAt(number uint64) (*state.State, error) {
	hash, err := n.repo.GetBlockHash(number)
	if err != nil {
		if n.repo.IsNotFound(err) {
			return nil, errors.Errorf("no local state at block %d", number)
		}
		return nil, err
	}
	header, err := n.repo.GetBlockHeader(hash)
	if err != nil {
		return nil, err
	}
	return n.stater.NewState(header.StateRoot()), nil
}

// Balance returns the balance of addr at the best block.
func (n *Node) Balance(addr ganache.Address) (*big.Int, error) {
	return n.State().GetBalance(addr)
}

// Nonce returns the nonce of addr at the best block.
func (n *Node) Nonce(addr ganache.Address) (uint64, error) {
	return n.State().GetNonce(addr)
}

// Code returns the code of addr at the best block.
func (n *Node) Code(addr ganache.Address) ([]byte, error) {
	return n.State().GetCode(addr)
}

// Storage returns the storage value of addr at key at the best block.
func (n *Node) Storage(addr ganache.Address, key ganache.Bytes32) (ganache.Bytes32, error) {
	return n.State().GetStorage(addr, key)
}

// BestBlock returns the best block.
func (n *Node) BestBlock() (*BlockInfo, error) {
	blk, err := n.repo.BestBlock()
	if err != nil {
		return nil, err
	}
	return newBlockInfo(blk), nil
}

// BlockByNumber returns the block of the given number, nil if absent.
// In forked mode, numbers below the local genesis resolve to remote headers.
func (n *Node) BlockByNumber(ctx context.Context, number uint64) (*BlockInfo, error) {
	if number < n.repo.GenesisBlock().Header().Number() {
		h, err := n.fc.Header(ctx, number)
		if err != nil {
			return nil, err
		}
		return &BlockInfo{
			Number:      h.Number,
			Hash:        h.Hash,
			ParentHash:  h.ParentHash,
			Timestamp:   h.Timestamp,
			Beneficiary: h.Beneficiary,
			GasLimit:    h.GasLimit,
			GasUsed:     h.GasUsed,
			BaseFee:     h.BaseFee,
			StateRoot:   h.StateRoot,
			Remote:      true,
		}, nil
	}

	blk, err := n.repo.GetBlockByNumber(number)
	if err != nil {
		if n.repo.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return newBlockInfo(blk), nil
}

// BlockByHash returns the local block of the given hash, nil if absent or rewound.
func (n *Node) BlockByHash(hash ganache.Bytes32) (*BlockInfo, error) {
	blk, err := n.repo.GetBlock(hash)
	if err != nil {
		if n.repo.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	canonical, err := n.repo.GetBlockHash(blk.Header().Number())
	if err != nil {
		if n.repo.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if canonical != hash {
		return nil, nil
	}
	return newBlockInfo(blk), nil
}

// Transaction returns a sealed tx with its location, or a pending one with nil location.
// Both are nil if the tx is unknown.
func (n *Node) Transaction(txHash ganache.Bytes32) (*tx.Transaction, *chain.TxMeta, error) {
	trx, meta, err := n.repo.GetTransaction(txHash)
	if err != nil {
		if n.repo.IsNotFound(err) {
			return n.txPool.Get(txHash), nil, nil
		}
		return nil, nil, err
	}
	return trx, meta, nil
}

// Receipt returns the receipt of a sealed tx, nil if the tx is not sealed.
func (n *Node) Receipt(txHash ganache.Bytes32) (*tx.Receipt, *chain.TxMeta, error) {
	receipt, meta, err := n.repo.GetReceipt(txHash)
	if err != nil {
		if n.repo.IsNotFound(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return receipt, meta, nil
}

// SubmitTransaction validates trx and adds it to the pool.
func (n *Node) SubmitTransaction(trx *tx.Transaction) (ganache.Bytes32, error) {
	if err := n.txPool.Add(trx); err != nil {
		return ganache.Bytes32{}, err
	}
	return trx.Hash(), nil
}

// RequestBlockProduction produces one block right away, with whatever
// executable txs the pool holds.
func (n *Node) RequestBlockProduction(ctx context.Context) (*BlockInfo, error) {
	blk, err := n.solo.Produce(ctx)
	if err != nil {
		return nil, err
	}
	return newBlockInfo(blk), nil
}
