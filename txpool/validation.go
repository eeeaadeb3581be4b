// Copyright (c) 2024 The VeChainThor developers

package txpool

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trufflesuite/ganache-sub010/chain"
	"github.com/trufflesuite/ganache-sub010/state"
	"github.com/trufflesuite/ganache-sub010/tx"
)

// validateTxBasics runs static validation on a transaction.
func (p *TxPool) validateTxBasics(trx *tx.Transaction) error {
	if trx.ChainID() != p.options.ChainID {
		return badTxError{fmt.Sprintf("chain id mismatch, want %d got %d", p.options.ChainID, trx.ChainID())}
	}
	if trx.Size() > MaxTxSize {
		return txRejectedError{errors.New("size too large")}
	}
	if err := trx.TestFeatures(); err != nil {
		return badTxError{err.Error()}
	}
	intrinsic, err := trx.IntrinsicGas()
	if err != nil {
		return badTxError{err.Error()}
	}
	if trx.Gas() < intrinsic {
		return badTxError{"intrinsic gas exceeds provided gas"}
	}
	return nil
}

// validateTxState checks the tx against the committed state of the head block.
// It returns the committed nonce of the sender.
func (p *TxPool) validateTxState(txObj *txObject, head *chain.BlockSummary, st *state.State) (uint64, error) {
	if txObj.Gas() > head.Header.GasLimit() {
		return 0, txRejectedError{errors.New("gas exceeds block gas limit")}
	}
	if txObj.MaxPriorityFeePerGas().Cmp(p.options.MinPriorityFee) < 0 {
		return 0, txRejectedError{errTipTooLow}
	}

	nonce, err := st.GetNonce(txObj.sender)
	if err != nil {
		return 0, err
	}
	if txObj.Nonce() < nonce {
		return 0, txRejectedError{errNonceTooLow}
	}
	balance, err := st.GetBalance(txObj.sender)
	if err != nil {
		return 0, err
	}
	if balance.Cmp(txObj.Cost()) < 0 {
		return 0, txRejectedError{errInsufficientFunds}
	}
	return nonce, nil
}
