// Package consensus holds the fee market rules blocks are produced under.
package consensus

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trufflesuite/ganache-sub010/block"
	"github.com/trufflesuite/ganache-sub010/ganache"
)

// Params of the base fee rule.
type Params struct {
	ElasticityMultiplier     uint64
	BaseFeeChangeDenominator uint64
	MinBaseFee               uint64
	InitialBaseFee           uint64
}

// DefaultParams returns the london rule, floored at the protocol minimum.
func DefaultParams() Params {
	return Params{
		ElasticityMultiplier:     ganache.ElasticityMultiplier,
		BaseFeeChangeDenominator: ganache.BaseFeeChangeDenominator,
		MinBaseFee:               ganache.MinBaseFee,
		InitialBaseFee:           ganache.InitialBaseFee,
	}
}

// withDivisors returns p with zero divisors replaced by the london values.
func (p Params) withDivisors() Params {
	if p.ElasticityMultiplier == 0 {
		p.ElasticityMultiplier = ganache.ElasticityMultiplier
	}
	if p.BaseFeeChangeDenominator == 0 {
		p.BaseFeeChangeDenominator = ganache.BaseFeeChangeDenominator
	}
	return p
}

// CalcBaseFee calculates the base fee of the next block with the given parent block header.
// A parent without base fee (a fork base taken from a pre-london block) yields the initial base fee.
// Zero divisors in params fall back to the london values.
func CalcBaseFee(parent *block.Header, params Params) *big.Int {
	params = params.withDivisors()
	parentBaseFee := parent.BaseFee()
	if parentBaseFee.Sign() == 0 {
		return new(big.Int).SetUint64(params.InitialBaseFee)
	}

	var (
		parentGasTarget          = parent.GasLimit() / params.ElasticityMultiplier
		parentGasTargetBig       = new(big.Int).SetUint64(parentGasTarget)
		baseFeeChangeDenominator = new(big.Int).SetUint64(params.BaseFeeChangeDenominator)
		minBaseFee               = new(big.Int).SetUint64(params.MinBaseFee)
		parentGasUsed            = parent.GasUsed()
	)

	// If the parent gasUsed is the same as the target, the baseFee remains unchanged.
	if parentGasUsed == parentGasTarget || parentGasTarget == 0 {
		return bigMax(parentBaseFee, minBaseFee)
	}
	if parentGasUsed > parentGasTarget {
		// newBaseFee := parentBaseFee + max(1, parentBaseFee * (parentGasUsed - parentGasTarget) / parentGasTarget / baseFeeChangeDenominator)
		gasUsedDelta := new(big.Int).SetUint64(parentGasUsed - parentGasTarget)
		x := new(big.Int).Mul(parentBaseFee, gasUsedDelta)
		y := x.Div(x, parentGasTargetBig)
		baseFeeDelta := bigMax(
			x.Div(y, baseFeeChangeDenominator),
			common.Big1,
		)
		return bigMax(x.Add(parentBaseFee, baseFeeDelta), minBaseFee)
	}

	// newBaseFee := max(MinBaseFee, parentBaseFee - parentBaseFee * (parentGasTarget - parentGasUsed) / parentGasTarget / baseFeeChangeDenominator)
	gasUsedDelta := new(big.Int).SetUint64(parentGasTarget - parentGasUsed)
	x := new(big.Int).Mul(parentBaseFee, gasUsedDelta)
	y := x.Div(x, parentGasTargetBig)
	baseFeeDelta := x.Div(y, baseFeeChangeDenominator)

	return bigMax(
		x.Sub(parentBaseFee, baseFeeDelta),
		minBaseFee,
	)
}

// bigMax returns the larger of x or y (go-ethereum's former math.BigMax).
func bigMax(x, y *big.Int) *big.Int {
	if x.Cmp(y) < 0 {
		return y
	}
	return x
}
