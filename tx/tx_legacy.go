// Copyright (c) 2024 The VeChainThor developers

package tx

import (
	"math/big"

	"github.com/trufflesuite/ganache-sub010/ganache"
)

// LegacyTransaction is a tx with a single gas price.
type LegacyTransaction struct {
	ChainID   uint64
	Nonce     uint64
	GasPrice  *big.Int
	Gas       uint64
	To        *ganache.Address `rlp:"nil"`
	Value     *big.Int
	Data      []byte
	Signature []byte
}

func (t *LegacyTransaction) txType() byte {
	return TypeLegacy
}

func (t *LegacyTransaction) copy() TxData {
	cpy := &LegacyTransaction{
		ChainID:   t.ChainID,
		Nonce:     t.Nonce,
		GasPrice:  new(big.Int),
		Gas:       t.Gas,
		To:        copyAddress(t.To),
		Value:     new(big.Int),
		Data:      t.Data,
		Signature: t.Signature,
	}
	if t.GasPrice != nil {
		cpy.GasPrice.Set(t.GasPrice)
	}
	if t.Value != nil {
		cpy.Value.Set(t.Value)
	}
	return cpy
}

func (t *LegacyTransaction) chainID() uint64                { return t.ChainID }
func (t *LegacyTransaction) nonce() uint64                  { return t.Nonce }
func (t *LegacyTransaction) gas() uint64                    { return t.Gas }
func (t *LegacyTransaction) to() *ganache.Address           { return t.To }
func (t *LegacyTransaction) value() *big.Int                { return orZero(t.Value) }
func (t *LegacyTransaction) data() []byte                   { return t.Data }
func (t *LegacyTransaction) maxFeePerGas() *big.Int         { return orZero(t.GasPrice) }
func (t *LegacyTransaction) maxPriorityFeePerGas() *big.Int { return orZero(t.GasPrice) }
func (t *LegacyTransaction) signature() []byte              { return t.Signature }
func (t *LegacyTransaction) setSignature(sig []byte)        { t.Signature = sig }

var zero = new(big.Int)

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return zero
	}
	return v
}

func copyAddress(addr *ganache.Address) *ganache.Address {
	if addr == nil {
		return nil
	}
	cpy := *addr
	return &cpy
}
