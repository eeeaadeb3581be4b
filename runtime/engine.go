// Package runtime defines how a transaction is applied to the world state.
package runtime

import (
	"math/big"

	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/state"
	"github.com/trufflesuite/ganache-sub010/tx"
)

// BlockContext is the environment of the block a tx is executed in.
type BlockContext struct {
	Number      uint64
	Time        uint64
	Beneficiary ganache.Address
	GasLimit    uint64
	BaseFee     *big.Int
	ChainID     uint64
	// GetHash returns the hash of an ancestor block.
	GetHash func(num uint64) ganache.Bytes32
}

// Result is the outcome of a tx which ran to completion.
type Result struct {
	Reverted        bool
	GasUsed         uint64
	Logs            []*tx.Log
	ReturnData      []byte
	ContractAddress *ganache.Address
}

// Engine applies the message level effects of a tx: value transfer, code
// execution and storage writes. Nonce, fee charge and tip payment are left
// to the caller.
//
// A reverted execution is not an error. A returned error means the engine
// could not interpret the tx at all, and the whole block must be abandoned.
// Implementations must be deterministic.
type Engine interface {
	ApplyTransaction(st *state.State, blockCtx *BlockContext, trx *tx.Transaction, sender ganache.Address) (*Result, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(st *state.State, blockCtx *BlockContext, trx *tx.Transaction, sender ganache.Address) (*Result, error)

// ApplyTransaction implements Engine.
func (f EngineFunc) ApplyTransaction(st *state.State, blockCtx *BlockContext, trx *tx.Transaction, sender ganache.Address) (*Result, error) {
	return f(st, blockCtx, trx, sender)
}
