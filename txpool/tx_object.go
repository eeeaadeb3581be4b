// Copyright (c) 2018 The VeChainThor developers

package txpool

import (
	"math/big"
	"time"

	"github.com/holiman/uint256"

	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/tx"
)

type txObject struct {
	*tx.Transaction
	sender ganache.Address

	seq       uint64 // insertion sequence, breaks fee ties
	timeAdded int64

	executable bool // don't touch this value, will be updated by the pool
}

func resolveTx(trx *tx.Transaction) (*txObject, error) {
	sender, err := trx.Origin()
	if err != nil {
		return nil, err
	}
	return &txObject{
		Transaction: trx,
		sender:      sender,
		timeAdded:   time.Now().UnixNano(),
	}, nil
}

func (o *txObject) Sender() ganache.Address {
	return o.sender
}

// priorityFee returns the tip per gas paid under baseFee.
// ok is false if the fee cap does not cover the base fee.
func (o *txObject) priorityFee(baseFee *big.Int) (fee *uint256.Int, ok bool) {
	tip := o.EffectivePriorityFee(baseFee)
	if tip.Sign() < 0 {
		return nil, false
	}
	fee, overflow := uint256.FromBig(tip)
	if overflow {
		return nil, false
	}
	return fee, true
}

// bumped returns whether price is at least old increased by bump percent, and strictly above old.
func bumped(price, old *big.Int, bump uint64) bool {
	p, overflow := uint256.FromBig(price)
	if overflow {
		return true
	}
	o, _ := uint256.FromBig(old)
	if !p.Gt(o) {
		return false
	}
	threshold, overflow := new(uint256.Int).MulOverflow(o, uint256.NewInt(100+bump))
	if overflow {
		return false
	}
	threshold.Div(threshold, uint256.NewInt(100))
	return !p.Lt(threshold)
}
