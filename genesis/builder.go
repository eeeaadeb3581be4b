// Copyright (c) 2018 The VeChainThor developers

// Package genesis builds the first block of a local chain.
package genesis

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/trufflesuite/ganache-sub010/block"
	"github.com/trufflesuite/ganache-sub010/fork"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/state"
	"github.com/trufflesuite/ganache-sub010/tx"
)

// Builder helper to build genesis block.
type Builder struct {
	number      uint64
	parentHash  ganache.Bytes32
	timestamp   uint64
	gasLimit    uint64
	gasUsed     uint64
	baseFee     *big.Int
	beneficiary ganache.Address

	stateProcs []func(state *state.State) error
}

// NewForkBuilder returns a builder whose block stands in for the remote block
// at the pinned height. The local block keeps the remote header fields that
// drive the fee market and block numbering, but carries the local state root.
func NewForkBuilder(remote *fork.Header) *Builder {
	return new(Builder).
		Number(remote.Number).
		ParentHash(remote.ParentHash).
		Timestamp(remote.Timestamp).
		GasLimit(remote.GasLimit).
		GasUsed(remote.GasUsed).
		BaseFee(remote.BaseFee).
		Beneficiary(remote.Beneficiary)
}

// Number set block number, zero for a fresh chain.
func (b *Builder) Number(n uint64) *Builder {
	b.number = n
	return b
}

// ParentHash set parent hash.
func (b *Builder) ParentHash(hash ganache.Bytes32) *Builder {
	b.parentHash = hash
	return b
}

// Timestamp set timestamp.
func (b *Builder) Timestamp(t uint64) *Builder {
	b.timestamp = t
	return b
}

// GasLimit set gas limit.
func (b *Builder) GasLimit(limit uint64) *Builder {
	b.gasLimit = limit
	return b
}

// GasUsed set gas used.
func (b *Builder) GasUsed(used uint64) *Builder {
	b.gasUsed = used
	return b
}

// BaseFee set base fee.
func (b *Builder) BaseFee(fee *big.Int) *Builder {
	if fee != nil {
		b.baseFee = new(big.Int).Set(fee)
	}
	return b
}

// Beneficiary set beneficiary.
func (b *Builder) Beneficiary(addr ganache.Address) *Builder {
	b.beneficiary = addr
	return b
}

// State add a state process
func (b *Builder) State(proc func(state *state.State) error) *Builder {
	b.stateProcs = append(b.stateProcs, proc)
	return b
}

// Alloc sets the balance of addr, replacing any forked balance.
func (b *Builder) Alloc(addr ganache.Address, balance *big.Int) *Builder {
	bal := new(big.Int).Set(balance)
	return b.State(func(st *state.State) error {
		return st.SetBalance(addr, bal)
	})
}

// Build builds the genesis block and commits its state through stater.
func (b *Builder) Build(stater *state.Stater) (*block.Block, error) {
	st := stater.NewState(ganache.Bytes32{})
	for _, proc := range b.stateProcs {
		if err := proc(st); err != nil {
			return nil, errors.Wrap(err, "state process")
		}
	}

	stage, err := st.Stage()
	if err != nil {
		return nil, errors.Wrap(err, "stage state")
	}
	stateRoot, err := stage.Commit()
	if err != nil {
		return nil, errors.Wrap(err, "commit state")
	}

	baseFee := b.baseFee
	if baseFee == nil {
		baseFee = new(big.Int).SetUint64(ganache.InitialBaseFee)
	}
	gasLimit := b.gasLimit
	if gasLimit == 0 {
		gasLimit = ganache.InitialGasLimit
	}

	return new(block.Builder).
		ParentHash(b.parentHash).
		Number(b.number).
		Timestamp(b.timestamp).
		Beneficiary(b.beneficiary).
		GasLimit(gasLimit).
		GasUsed(b.gasUsed).
		BaseFee(baseFee).
		StateRoot(stateRoot).
		ReceiptsRoot(tx.Receipts(nil).RootHash()).
		Build(), nil
}
