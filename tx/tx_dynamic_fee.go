// Copyright (c) 2024 The VeChainThor developers

package tx

import (
	"math/big"

	"github.com/trufflesuite/ganache-sub010/ganache"
)

// DynamicFeeTransaction is a tx paying the block base fee plus a tip.
type DynamicFeeTransaction struct {
	ChainID              uint64
	Nonce                uint64
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	Gas                  uint64
	To                   *ganache.Address `rlp:"nil"`
	Value                *big.Int
	Data                 []byte
	Signature            []byte
}

func (t *DynamicFeeTransaction) txType() byte {
	return TypeDynamicFee
}

func (t *DynamicFeeTransaction) copy() TxData {
	cpy := &DynamicFeeTransaction{
		ChainID:              t.ChainID,
		Nonce:                t.Nonce,
		MaxPriorityFeePerGas: new(big.Int),
		MaxFeePerGas:         new(big.Int),
		Gas:                  t.Gas,
		To:                   copyAddress(t.To),
		Value:                new(big.Int),
		Data:                 t.Data,
		Signature:            t.Signature,
	}
	if t.MaxPriorityFeePerGas != nil {
		cpy.MaxPriorityFeePerGas.Set(t.MaxPriorityFeePerGas)
	}
	if t.MaxFeePerGas != nil {
		cpy.MaxFeePerGas.Set(t.MaxFeePerGas)
	}
	if t.Value != nil {
		cpy.Value.Set(t.Value)
	}
	return cpy
}

func (t *DynamicFeeTransaction) chainID() uint64      { return t.ChainID }
func (t *DynamicFeeTransaction) nonce() uint64        { return t.Nonce }
func (t *DynamicFeeTransaction) gas() uint64          { return t.Gas }
func (t *DynamicFeeTransaction) to() *ganache.Address { return t.To }
func (t *DynamicFeeTransaction) value() *big.Int      { return orZero(t.Value) }
func (t *DynamicFeeTransaction) data() []byte         { return t.Data }
func (t *DynamicFeeTransaction) maxFeePerGas() *big.Int {
	return orZero(t.MaxFeePerGas)
}

func (t *DynamicFeeTransaction) maxPriorityFeePerGas() *big.Int {
	return orZero(t.MaxPriorityFeePerGas)
}
func (t *DynamicFeeTransaction) signature() []byte       { return t.Signature }
func (t *DynamicFeeTransaction) setSignature(sig []byte) { t.Signature = sig }
