// Copyright (c) 2018 The VeChainThor developers

package packer

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/trufflesuite/ganache-sub010/block"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/runtime"
	"github.com/trufflesuite/ganache-sub010/state"
	"github.com/trufflesuite/ganache-sub010/tx"
)

// Flow the flow of packing a new block.
// The whole block runs inside one checkpoint, each tx inside a nested one.
type Flow struct {
	packer       *Packer
	parentHeader *block.Header
	state        *state.State
	blockCtx     *runtime.BlockContext
	checkpoint   int
	closed       bool
	processedTxs map[ganache.Bytes32]bool // tx hash -> reverted
	gasUsed      uint64
	txs          tx.Transactions
	receipts     tx.Receipts
}

func newFlow(packer *Packer, parentHeader *block.Header, st *state.State, blockCtx *runtime.BlockContext) *Flow {
	return &Flow{
		packer:       packer,
		parentHeader: parentHeader,
		state:        st,
		blockCtx:     blockCtx,
		checkpoint:   st.NewCheckpoint(),
		processedTxs: make(map[ganache.Bytes32]bool),
	}
}

// ParentHeader returns parent block header.
func (f *Flow) ParentHeader() *block.Header {
	return f.parentHeader
}

// When the timestamp of the block.
func (f *Flow) When() uint64 {
	return f.blockCtx.Time
}

// Number of the block.
func (f *Flow) Number() uint64 {
	return f.blockCtx.Number
}

// BaseFee of the block.
func (f *Flow) BaseFee() *big.Int {
	return new(big.Int).Set(f.blockCtx.BaseFee)
}

// GasLimit of the block.
func (f *Flow) GasLimit() uint64 {
	return f.blockCtx.GasLimit
}

// GasUsed by adopted txs.
func (f *Flow) GasUsed() uint64 {
	return f.gasUsed
}

// Adopt try to execute the given transaction.
// If the tx is valid and can be executed on current state (regardless of revert),
// it will be adopted by the new block. A fatal error means the block must be aborted.
func (f *Flow) Adopt(trx *tx.Transaction) error {
	if f.closed {
		return errFlowClosed
	}
	switch {
	case trx.ChainID() != f.blockCtx.ChainID:
		return badTxError{"chain id mismatch"}
	case f.gasUsed+trx.Gas() > f.blockCtx.GasLimit:
		return errGasLimitReached
	case trx.MaxFeePerGas().Cmp(f.blockCtx.BaseFee) < 0:
		return errTxNotAdoptableNow
	}
	if _, found := f.processedTxs[trx.Hash()]; found {
		return errKnownTx
	}

	sender, err := trx.Origin()
	if err != nil {
		return badTxError{err.Error()}
	}
	nonce, err := f.state.GetNonce(sender)
	if err != nil {
		return err
	}
	switch {
	case trx.Nonce() < nonce:
		return badTxError{"nonce too low"}
	case trx.Nonce() > nonce:
		return errTxNotAdoptableNow
	}
	balance, err := f.state.GetBalance(sender)
	if err != nil {
		return err
	}
	if balance.Cmp(trx.Cost()) < 0 {
		return badTxError{"insufficient funds for gas * price + value"}
	}

	checkpoint := f.state.NewCheckpoint()
	result, err := f.packer.engine.ApplyTransaction(f.state, f.blockCtx, trx, sender)
	if err != nil {
		f.state.RevertTo(checkpoint)
		return fatalError{err}
	}
	if result.GasUsed > trx.Gas() {
		f.state.RevertTo(checkpoint)
		return fatalError{errors.Errorf("engine used %d gas over limit %d", result.GasUsed, trx.Gas())}
	}
	if result.Reverted {
		// keep nothing but the accounting
		f.state.RevertTo(checkpoint)
		checkpoint = f.state.NewCheckpoint()
	}

	gasUsed, charged := f.packer.options.RevertGasPolicy.gas(result.Reverted, result.GasUsed, trx.Gas())
	price := trx.EffectiveGasPrice(f.blockCtx.BaseFee)
	if err := f.charge(trx, sender, charged, price); err != nil {
		f.state.RevertTo(checkpoint)
		return fatalError{err}
	}
	f.state.Commit(checkpoint)

	receipt := &tx.Receipt{
		TxHash:            trx.Hash(),
		Status:            tx.ReceiptStatusSuccessful,
		GasUsed:           gasUsed,
		EffectiveGasPrice: price,
		Output:            result.ReturnData,
		Logs:              result.Logs,
	}
	if result.Reverted {
		receipt.Status = tx.ReceiptStatusFailed
		receipt.Logs = nil
	} else {
		receipt.ContractAddress = result.ContractAddress
	}
	if receipt.Logs == nil {
		receipt.Logs = []*tx.Log{}
	}

	f.processedTxs[trx.Hash()] = result.Reverted
	f.gasUsed += gasUsed
	f.receipts = append(f.receipts, receipt)
	f.txs = append(f.txs, trx)

	status := "success"
	if result.Reverted {
		status = "reverted"
	}
	metricTransactionTypeCounter().AddWithLabel(1, map[string]string{"type": txType(trx), "status": status})
	logger.Trace("tx adopted", "hash", trx.Hash(), "gasUsed", gasUsed, "reverted", result.Reverted)
	return nil
}

// charge bumps the sender nonce, takes gas * price from the sender and pays the tip to the beneficiary.
// The base fee part is burnt.
func (f *Flow) charge(trx *tx.Transaction, sender ganache.Address, gas uint64, price *big.Int) error {
	if err := f.state.SetNonce(sender, trx.Nonce()+1); err != nil {
		return err
	}
	if gas == 0 {
		return nil
	}
	gasBig := new(big.Int).SetUint64(gas)
	if err := f.state.SubBalance(sender, new(big.Int).Mul(gasBig, price)); err != nil {
		return err
	}
	tip := trx.EffectivePriorityFee(f.blockCtx.BaseFee)
	if tip.Sign() <= 0 {
		return nil
	}
	return f.state.AddBalance(f.blockCtx.Beneficiary, tip.Mul(tip, gasBig))
}

// Pack commits the block checkpoint and builds the new block.
// The returned stage is to be committed before the block is added to the chain.
func (f *Flow) Pack() (*block.Block, *state.Stage, tx.Receipts, error) {
	if f.closed {
		return nil, nil, nil, errFlowClosed
	}
	f.closed = true
	f.state.Commit(f.checkpoint)

	stage, err := f.state.Stage()
	if err != nil {
		return nil, nil, nil, err
	}

	builder := new(block.Builder).
		ParentHash(f.parentHeader.Hash()).
		Number(f.blockCtx.Number).
		Timestamp(f.blockCtx.Time).
		Beneficiary(f.blockCtx.Beneficiary).
		GasLimit(f.blockCtx.GasLimit).
		GasUsed(f.gasUsed).
		BaseFee(f.blockCtx.BaseFee).
		ReceiptsRoot(f.receipts.RootHash()).
		StateRoot(stage.Hash())
	for _, trx := range f.txs {
		builder.Transaction(trx)
	}
	metricBlockGasUsed().Observe(int64(f.gasUsed))
	return builder.Build(), stage, f.receipts, nil
}

// Abort discards every change of the flow.
func (f *Flow) Abort() {
	if f.closed {
		return
	}
	f.closed = true
	f.state.RevertTo(f.checkpoint)
	logger.Debug("flow aborted", "number", f.blockCtx.Number, "adopted", len(f.txs))
}

func txType(trx *tx.Transaction) string {
	if trx.Type() == tx.TypeDynamicFee {
		return "DynamicFee"
	}
	return "Legacy"
}
