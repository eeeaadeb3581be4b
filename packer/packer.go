// Package packer assembles blocks by executing txs on top of a parent block.
package packer

import (
	"github.com/trufflesuite/ganache-sub010/block"
	"github.com/trufflesuite/ganache-sub010/chain"
	"github.com/trufflesuite/ganache-sub010/consensus"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/log"
	"github.com/trufflesuite/ganache-sub010/runtime"
	"github.com/trufflesuite/ganache-sub010/state"
)

var logger = log.WithContext("pkg", "packer")

// Options options for packer.
type Options struct {
	ChainID     uint64
	Beneficiary ganache.Address
	// gas limit of new blocks, the parent's if zero
	GasLimit        uint64
	RevertGasPolicy RevertGasPolicy
	BaseFee         consensus.Params
}

// Packer to pack txs and build new blocks.
type Packer struct {
	repo    *chain.Repository
	stater  *state.Stater
	engine  runtime.Engine
	options Options
}

// New create a new Packer instance.
func New(repo *chain.Repository, stater *state.Stater, engine runtime.Engine, options Options) *Packer {
	if options.BaseFee == (consensus.Params{}) {
		options.BaseFee = consensus.DefaultParams()
	}
	return &Packer{
		repo:    repo,
		stater:  stater,
		engine:  engine,
		options: options,
	}
}

// SetGasLimit set the gas limit of blocks packed later. Zero follows the parent.
func (p *Packer) SetGasLimit(gasLimit uint64) {
	p.options.GasLimit = gasLimit
}

// Schedule opens a flow to pack a new block on parent.
// The block timestamp is at least one second after the parent's.
func (p *Packer) Schedule(parent *block.Header, timestamp uint64) (*Flow, error) {
	if timestamp <= parent.Timestamp() {
		timestamp = parent.Timestamp() + 1
	}
	gasLimit := p.options.GasLimit
	if gasLimit == 0 {
		gasLimit = parent.GasLimit()
	}

	st := p.stater.NewState(parent.StateRoot())
	blockCtx := &runtime.BlockContext{
		Number:      parent.Number() + 1,
		Time:        timestamp,
		Beneficiary: p.options.Beneficiary,
		GasLimit:    gasLimit,
		BaseFee:     consensus.CalcBaseFee(parent, p.options.BaseFee),
		ChainID:     p.options.ChainID,
		GetHash: func(num uint64) ganache.Bytes32 {
			hash, err := p.repo.GetBlockHash(num)
			if err != nil {
				return ganache.Bytes32{}
			}
			return hash
		},
	}
	logger.Trace("flow scheduled", "number", blockCtx.Number, "baseFee", blockCtx.BaseFee, "gasLimit", gasLimit)
	return newFlow(p, parent, st, blockCtx), nil
}
