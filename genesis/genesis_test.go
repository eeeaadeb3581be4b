package genesis_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trufflesuite/ganache-sub010/fork"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/genesis"
	"github.com/trufflesuite/ganache-sub010/lvldb"
	"github.com/trufflesuite/ganache-sub010/state"
)

func newStater(t *testing.T) *state.Stater {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return state.NewStater(db, nil)
}

func TestDevGenesis(t *testing.T) {
	stater := newStater(t)
	accounts := genesis.DevAccounts(3)

	b0, err := new(genesis.Builder).
		Timestamp(1526400000).
		AllocDevAccounts(accounts, genesis.DefaultDevBalance).
		Build(stater)
	require.NoError(t, err)

	h := b0.Header()
	assert.Equal(t, uint64(0), h.Number())
	assert.Equal(t, ganache.InitialGasLimit, h.GasLimit())
	assert.Equal(t, 0, new(big.Int).SetUint64(ganache.InitialBaseFee).Cmp(h.BaseFee()))
	assert.Empty(t, b0.Transactions())

	st := stater.NewState(h.StateRoot())
	for _, acc := range accounts {
		bal, err := st.GetBalance(acc.Address)
		require.NoError(t, err)
		assert.Equal(t, 0, genesis.DefaultDevBalance.Cmp(bal))
	}

	// deterministic
	again, err := new(genesis.Builder).
		Timestamp(1526400000).
		AllocDevAccounts(accounts, genesis.DefaultDevBalance).
		Build(newStater(t))
	require.NoError(t, err)
	assert.Equal(t, h.Hash(), again.Header().Hash())
}

func TestDevAccounts(t *testing.T) {
	accs := genesis.DevAccounts(12)
	assert.Len(t, accs, 12)

	seen := make(map[ganache.Address]bool)
	for _, acc := range accs {
		assert.False(t, seen[acc.Address])
		seen[acc.Address] = true
	}
	// prefix stable
	assert.Equal(t, accs[:5], genesis.DevAccounts(5))
}

func TestForkGenesis(t *testing.T) {
	remote := &fork.Header{
		Number:     1000,
		Hash:       ganache.Bytes32{0xaa},
		ParentHash: ganache.Bytes32{0xbb},
		Timestamp:  1700000000,
		GasLimit:   30_000_000,
		GasUsed:    12_000_000,
		BaseFee:    big.NewInt(20_000_000_000),
		StateRoot:  ganache.Bytes32{0xcc},
	}
	b0, err := genesis.NewForkBuilder(remote).Build(newStater(t))
	require.NoError(t, err)

	h := b0.Header()
	assert.Equal(t, remote.Number, h.Number())
	assert.Equal(t, remote.ParentHash, h.ParentHash())
	assert.Equal(t, remote.Timestamp, h.Timestamp())
	assert.Equal(t, remote.GasLimit, h.GasLimit())
	assert.Equal(t, remote.GasUsed, h.GasUsed())
	assert.Equal(t, 0, remote.BaseFee.Cmp(h.BaseFee()))
	// local state, not the remote one
	assert.NotEqual(t, remote.StateRoot, h.StateRoot())
}
