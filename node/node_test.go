package node_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trufflesuite/ganache-sub010/fork"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/genesis"
	"github.com/trufflesuite/ganache-sub010/node"
	"github.com/trufflesuite/ganache-sub010/solo"
	"github.com/trufflesuite/ganache-sub010/tx"
)

const gwei = 1_000_000_000

var recipient = ganache.BytesToAddress([]byte("recipient"))

type fakeRemote struct {
	accounts map[ganache.Address]*fork.Account
	headers  map[uint64]*fork.Header
}

func (r *fakeRemote) Account(_ context.Context, addr ganache.Address, _ uint64) (*fork.Account, error) {
	if acc, ok := r.accounts[addr]; ok {
		return acc, nil
	}
	return &fork.Account{Balance: new(big.Int)}, nil
}

func (r *fakeRemote) Storage(context.Context, ganache.Address, ganache.Bytes32, uint64) (ganache.Bytes32, error) {
	return ganache.Bytes32{}, nil
}

func (r *fakeRemote) Code(_ context.Context, addr ganache.Address, _ uint64) ([]byte, error) {
	if acc, ok := r.accounts[addr]; ok {
		return acc.Code, nil
	}
	return nil, nil
}

func (r *fakeRemote) Header(_ context.Context, number uint64) (*fork.Header, error) {
	if h, ok := r.headers[number]; ok {
		return h, nil
	}
	return nil, errors.Errorf("header %d not found", number)
}

func newFakeRemote(height uint64) *fakeRemote {
	r := &fakeRemote{
		accounts: make(map[ganache.Address]*fork.Account),
		headers:  make(map[uint64]*fork.Header),
	}
	for i := uint64(0); i <= height; i++ {
		r.headers[i] = &fork.Header{
			Number:     i,
			Hash:       ganache.BytesToBytes32([]byte{byte(i + 1)}),
			ParentHash: ganache.BytesToBytes32([]byte{byte(i)}),
			Timestamp:  1_700_000_000 + i*12,
			GasLimit:   30_000_000,
			GasUsed:    15_000_000,
			BaseFee:    big.NewInt(gwei),
		}
	}
	return r
}

func newNode(t *testing.T, options node.Options) *node.Node {
	if options.Accounts == nil {
		options.Accounts = genesis.DevAccounts(2)
	}
	n, err := node.New(context.Background(), options)
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })
	return n
}

func transfer(t *testing.T, acc genesis.DevAccount, nonce uint64, value int64) *tx.Transaction {
	return tx.MustSign(tx.NewBuilder(tx.TypeDynamicFee).
		ChainID(ganache.DefaultChainID).
		Nonce(nonce).
		Gas(21000).
		To(&recipient).
		Value(big.NewInt(value)).
		MaxFeePerGas(big.NewInt(2*gwei)).
		MaxPriorityFeePerGas(big.NewInt(gwei)).
		MustBuild(), acc.PrivateKey)
}

func TestNodeManualMining(t *testing.T) {
	n := newNode(t, node.Options{Mode: solo.ModeManual})
	acc := genesis.DevAccounts(1)[0]
	ctx := context.Background()

	bal, err := n.Balance(acc.Address)
	require.NoError(t, err)
	assert.Equal(t, 0, genesis.DefaultDevBalance.Cmp(bal))

	trx := transfer(t, acc, 0, 1000)
	hash, err := n.SubmitTransaction(trx)
	require.NoError(t, err)
	assert.Equal(t, trx.Hash(), hash)

	// pending: visible, no receipt
	pending, meta, err := n.Transaction(hash)
	require.NoError(t, err)
	assert.NotNil(t, pending)
	assert.Nil(t, meta)
	receipt, _, err := n.Receipt(hash)
	require.NoError(t, err)
	assert.Nil(t, receipt)

	blk, err := n.RequestBlockProduction(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), blk.Number)
	assert.Equal(t, []ganache.Bytes32{hash}, blk.TxHashes)

	receipt, meta, err = n.Receipt(hash)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, blk.Hash, meta.BlockHash)
	assert.Equal(t, uint64(21000), receipt.GasUsed)

	nonce, err := n.Nonce(acc.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)
	got, err := n.Balance(recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Int64())

	byNum, err := n.BlockByNumber(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, blk.Hash, byNum.Hash)
	byHash, err := n.BlockByHash(blk.Hash)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), byHash.Number)

	missing, err := n.BlockByNumber(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestNodeSubmitRejects(t *testing.T) {
	n := newNode(t, node.Options{Mode: solo.ModeManual})
	acc := genesis.DevAccounts(1)[0]

	_, err := n.SubmitTransaction(transfer(t, acc, 0, 0))
	require.NoError(t, err)
	_, err = n.RequestBlockProduction(context.Background())
	require.NoError(t, err)

	// stale nonce
	_, err = n.SubmitTransaction(transfer(t, acc, 0, 1))
	assert.Error(t, err)
	assert.Equal(t, 0, n.TxPool().Len())
}

func TestNodeSnapshotRevert(t *testing.T) {
	n := newNode(t, node.Options{Mode: solo.ModeManual})
	acc := genesis.DevAccounts(1)[0]
	ctx := context.Background()

	id := n.Snapshot()
	assert.Equal(t, uint64(1), id)

	trx := transfer(t, acc, 0, 1000)
	_, err := n.SubmitTransaction(trx)
	require.NoError(t, err)
	blk, err := n.RequestBlockProduction(ctx)
	require.NoError(t, err)
	_, err = n.RequestBlockProduction(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n.Repository().BestBlockSummary().Header.Number())

	second := n.Snapshot()
	assert.Equal(t, uint64(2), second)

	require.NoError(t, n.Revert(id))
	assert.Equal(t, uint64(0), n.Repository().BestBlockSummary().Header.Number())

	bal, err := n.Balance(recipient)
	require.NoError(t, err)
	assert.Zero(t, bal.Sign())
	nonce, err := n.Nonce(acc.Address)
	require.NoError(t, err)
	assert.Zero(t, nonce)

	// rewound data is gone
	gone, err := n.BlockByHash(blk.Hash)
	require.NoError(t, err)
	assert.Nil(t, gone)
	receipt, _, err := n.Receipt(trx.Hash())
	require.NoError(t, err)
	assert.Nil(t, receipt)

	// consumed, along with later ones
	assert.Error(t, n.Revert(id))
	assert.Error(t, n.Revert(second))

	// the same tx can be mined again
	_, err = n.SubmitTransaction(trx)
	require.NoError(t, err)
	blk, err = n.RequestBlockProduction(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), blk.Number)
	assert.Len(t, blk.TxHashes, 1)
}

func TestNodeFork(t *testing.T) {
	rmt := newFakeRemote(100)
	whale := ganache.BytesToAddress([]byte("whale"))
	rmt.accounts[whale] = &fork.Account{Nonce: 7, Balance: big.NewInt(12345), Code: []byte{0x60, 0x00}}

	n := newNode(t, node.Options{
		Mode: solo.ModeManual,
		Fork: &node.ForkOptions{Remote: rmt, Height: 100},
	})
	ctx := context.Background()

	genesisHeader := n.Repository().GenesisBlock().Header()
	assert.Equal(t, uint64(100), genesisHeader.Number())
	assert.Equal(t, rmt.headers[100].ParentHash, genesisHeader.ParentHash())

	bal, err := n.Balance(whale)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), bal.Int64())
	nonce, err := n.Nonce(whale)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)
	code, err := n.Code(whale)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x00}, code)

	// dev accounts are funded locally
	acc := genesis.DevAccounts(1)[0]
	bal, err = n.Balance(acc.Address)
	require.NoError(t, err)
	assert.Equal(t, 0, genesis.DefaultDevBalance.Cmp(bal))

	remoteBlock, err := n.BlockByNumber(ctx, 42)
	require.NoError(t, err)
	assert.True(t, remoteBlock.Remote)
	assert.Equal(t, rmt.headers[42].Hash, remoteBlock.Hash)

	_, err = n.SubmitTransaction(transfer(t, acc, 0, 1))
	require.NoError(t, err)
	blk, err := n.RequestBlockProduction(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(101), blk.Number)
	assert.Equal(t, genesisHeader.Hash(), blk.ParentHash)

	// remote state is untouched by local blocks
	bal, err = n.Balance(whale)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), bal.Int64())
}

func TestNodeForkRequiresHeight(t *testing.T) {
	_, err := node.New(context.Background(), node.Options{
		Fork: &node.ForkOptions{Remote: newFakeRemote(1)},
	})
	assert.Error(t, err)
}

func TestNodePersist(t *testing.T) {
	dir := t.TempDir()
	acc := genesis.DevAccounts(1)[0]
	options := node.Options{Mode: solo.ModeManual, DataDir: dir, Accounts: []genesis.DevAccount{acc}}

	n, err := node.New(context.Background(), options)
	require.NoError(t, err)
	trx := transfer(t, acc, 0, 1000)
	_, err = n.SubmitTransaction(trx)
	require.NoError(t, err)
	blk, err := n.RequestBlockProduction(context.Background())
	require.NoError(t, err)
	require.NoError(t, n.Close())

	n, err = node.New(context.Background(), options)
	require.NoError(t, err)
	defer n.Close()

	best, err := n.BestBlock()
	require.NoError(t, err)
	assert.Equal(t, blk.Hash, best.Hash)
	receipt, _, err := n.Receipt(trx.Hash())
	require.NoError(t, err)
	assert.NotNil(t, receipt)
	bal, err := n.Balance(recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), bal.Int64())
}
