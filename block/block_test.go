// Copyright (c) 2018 The VeChainThor developers

package block_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trufflesuite/ganache-sub010/block"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/tx"
)

func TestBlock(t *testing.T) {
	key, _ := crypto.GenerateKey()
	to := ganache.BytesToAddress([]byte("to"))
	tx1 := tx.MustSign(tx.NewBuilder(tx.TypeDynamicFee).ChainID(1).To(&to).Gas(21000).MustBuild(), key)
	tx2 := tx.MustSign(tx.NewBuilder(tx.TypeLegacy).ChainID(1).Nonce(1).Gas(21000).MustBuild(), key)

	var (
		parent       = ganache.BytesToBytes32([]byte("parent"))
		stateRoot    = ganache.BytesToBytes32([]byte("state"))
		receiptsRoot = ganache.BytesToBytes32([]byte("receipts"))
		beneficiary  = ganache.BytesToAddress([]byte("beneficiary"))
	)

	blk := new(block.Builder).
		ParentHash(parent).
		Number(8).
		Timestamp(1_700_000_000).
		Beneficiary(beneficiary).
		GasLimit(30_000_000).
		GasUsed(42000).
		BaseFee(big.NewInt(875_000_000)).
		StateRoot(stateRoot).
		ReceiptsRoot(receiptsRoot).
		Transaction(tx1).
		Transaction(tx2).
		Build()

	h := blk.Header()
	assert.Equal(t, parent, h.ParentHash())
	assert.Equal(t, uint64(8), h.Number())
	assert.Equal(t, uint64(1_700_000_000), h.Timestamp())
	assert.Equal(t, beneficiary, h.Beneficiary())
	assert.Equal(t, uint64(30_000_000), h.GasLimit())
	assert.Equal(t, uint64(42000), h.GasUsed())
	assert.Equal(t, big.NewInt(875_000_000), h.BaseFee())
	assert.Equal(t, stateRoot, h.StateRoot())
	assert.Equal(t, receiptsRoot, h.ReceiptsRoot())
	assert.Equal(t, tx.Transactions{tx1, tx2}.RootHash(), h.TxsRoot())

	data, err := rlp.EncodeToBytes(blk)
	require.NoError(t, err)

	var decoded block.Block
	require.NoError(t, rlp.DecodeBytes(data, &decoded))
	assert.Equal(t, h.Hash(), decoded.Header().Hash())
	require.Len(t, decoded.Transactions(), 2)
	assert.Equal(t, tx1.Hash(), decoded.Transactions()[0].Hash())
	assert.Equal(t, tx2.Hash(), decoded.Transactions()[1].Hash())
}

func TestHeaderHashCoversFields(t *testing.T) {
	b1 := new(block.Builder).Number(1).Build()
	b2 := new(block.Builder).Number(2).Build()
	b3 := new(block.Builder).Number(1).BaseFee(big.NewInt(1)).Build()

	assert.NotEqual(t, b1.Header().Hash(), b2.Header().Hash())
	assert.NotEqual(t, b1.Header().Hash(), b3.Header().Hash())
	assert.Equal(t, b1.Header().Hash(), new(block.Builder).Number(1).Build().Header().Hash())
	assert.Equal(t, ganache.EmptyRoot, b1.Header().TxsRoot())
	assert.Equal(t, new(big.Int), b1.Header().BaseFee())
}
