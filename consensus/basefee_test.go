package consensus

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trufflesuite/ganache-sub010/block"
	"github.com/trufflesuite/ganache-sub010/ganache"
)

func TestCalcBaseFee(t *testing.T) {
	startingBaseFee := int64(ganache.InitialBaseFee)
	tests := []struct {
		parentBaseFee   int64
		parentGasLimit  uint64
		parentGasUsed   uint64
		expectedBaseFee int64
	}{
		{startingBaseFee, 30_000_000, 15_000_000, startingBaseFee},         // usage == target
		{startingBaseFee, 30_000_000, 30_000_000, startingBaseFee * 9 / 8}, // usage == 2x target
		{startingBaseFee, 30_000_000, 20_000_000, 1_041_666_666},           // usage above target
		{startingBaseFee, 30_000_000, 10_000_000, 958_333_334},             // usage below target
		{startingBaseFee, 30_000_000, 0, startingBaseFee * 7 / 8},          // empty block
		{8, 30_000_000, 0, 7},                                              // floored
		{7, 30_000_000, 15_000_001, 8},                                     // increase of at least one
		{3, 30_000_000, 15_000_000, int64(ganache.MinBaseFee)},             // below the floor
	}
	for i, test := range tests {
		parent := new(block.Builder).
			Number(5).
			GasLimit(test.parentGasLimit).
			GasUsed(test.parentGasUsed).
			BaseFee(big.NewInt(test.parentBaseFee)).
			Build().Header()
		if have, want := CalcBaseFee(parent, DefaultParams()), big.NewInt(test.expectedBaseFee); have.Cmp(want) != 0 {
			t.Errorf("test %d: have %d  want %d, ", i, have, want)
		}
	}
}

func TestCalcBaseFeeWithoutParentBaseFee(t *testing.T) {
	parent := new(block.Builder).Number(100).GasLimit(30_000_000).Build().Header()
	assert.Equal(t, 0, CalcBaseFee(parent, DefaultParams()).Cmp(new(big.Int).SetUint64(ganache.InitialBaseFee)))
}

func TestCalcBaseFeeDoesNotAliasParent(t *testing.T) {
	parent := new(block.Builder).GasLimit(30_000_000).GasUsed(15_000_000).BaseFee(big.NewInt(1000)).Build().Header()
	fee := CalcBaseFee(parent, DefaultParams())
	fee.SetInt64(1)
	assert.Equal(t, int64(1000), parent.BaseFee().Int64())
}

func TestCalcBaseFeePartialParams(t *testing.T) {
	parent := new(block.Builder).
		GasLimit(30_000_000).
		GasUsed(30_000_000).
		BaseFee(new(big.Int).SetUint64(ganache.InitialBaseFee)).
		Build().Header()

	tests := []struct {
		params Params
		want   int64
	}{
		{Params{MinBaseFee: 1}, 1_125_000_000},
		{Params{ElasticityMultiplier: 4}, 1_375_000_000},
		{Params{BaseFeeChangeDenominator: 4}, 1_250_000_000},
	}
	for _, test := range tests {
		var have *big.Int
		assert.NotPanics(t, func() { have = CalcBaseFee(parent, test.params) }, "%+v", test.params)
		assert.Equal(t, test.want, have.Int64(), "%+v", test.params)
	}
}
