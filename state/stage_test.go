package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trufflesuite/ganache-sub010/ganache"
)

func TestStage(t *testing.T) {
	st, stater := newTestState(t)

	addr := ganache.BytesToAddress([]byte("acc1"))

	balance := big.NewInt(10)
	code := []byte{1, 2, 3}

	storage := map[ganache.Bytes32]ganache.Bytes32{
		ganache.BytesToBytes32([]byte("s1")): ganache.BytesToBytes32([]byte("v1")),
		ganache.BytesToBytes32([]byte("s2")): ganache.BytesToBytes32([]byte("v2")),
		ganache.BytesToBytes32([]byte("s3")): ganache.BytesToBytes32([]byte("v3")),
	}

	require.NoError(t, st.SetBalance(addr, balance))
	require.NoError(t, st.SetCode(addr, code))
	for k, v := range storage {
		st.SetStorage(addr, k, v)
	}

	stage, err := st.Stage()
	require.NoError(t, err)

	hash := stage.Hash()
	root, err := stage.Commit()
	require.NoError(t, err)
	assert.Equal(t, hash, root)

	st = stater.NewState(root)

	assert.Equal(t, M(balance, nil), M(st.GetBalance(addr)))
	assert.Equal(t, M(code, nil), M(st.GetCode(addr)))
	assert.Equal(t, M(ganache.Keccak256(code), nil), M(st.GetCodeHash(addr)))
	for k, v := range storage {
		assert.Equal(t, M(v, nil), M(st.GetStorage(addr, k)))
	}
}

func TestStageEmptyState(t *testing.T) {
	st, _ := newTestState(t)
	stage, err := st.Stage()
	require.NoError(t, err)
	assert.Equal(t, ganache.EmptyRoot, stage.Hash())
}

func TestStageRootIsPure(t *testing.T) {
	type write struct {
		addr    ganache.Address
		balance int64
		key     ganache.Bytes32
		value   ganache.Bytes32
	}
	writes := []write{
		{ganache.Address{1}, 100, ganache.Bytes32{1}, ganache.Bytes32{0xa}},
		{ganache.Address{2}, 200, ganache.Bytes32{2}, ganache.Bytes32{0xb}},
		{ganache.Address{3}, 300, ganache.Bytes32{3}, ganache.Bytes32{0xc}},
	}

	apply := func(order []int) ganache.Bytes32 {
		st, _ := newTestState(t)
		for _, i := range order {
			w := writes[i]
			require.NoError(t, st.SetBalance(w.addr, big.NewInt(w.balance)))
			st.SetStorage(w.addr, w.key, w.value)
		}
		stage, err := st.Stage()
		require.NoError(t, err)
		return stage.Hash()
	}

	root := apply([]int{0, 1, 2})
	assert.Equal(t, root, apply([]int{2, 0, 1}))
	assert.Equal(t, root, apply([]int{1, 2, 0}))
	assert.NotEqual(t, ganache.EmptyRoot, root)
}

func TestStageWithOpenCheckpoints(t *testing.T) {
	st, stater := newTestState(t)
	addr := ganache.BytesToAddress([]byte("acc1"))

	require.NoError(t, st.SetBalance(addr, big.NewInt(1)))
	st.NewCheckpoint()
	require.NoError(t, st.SetBalance(addr, big.NewInt(2)))
	st.NewCheckpoint()
	st.SetStorage(addr, ganache.Bytes32{1}, ganache.Bytes32{2})

	stage, err := st.Stage()
	require.NoError(t, err)
	assert.Equal(t, 3, st.Depth(), "staging leaves checkpoints open")

	root, err := stage.Commit()
	require.NoError(t, err)

	reloaded := stater.NewState(root)
	assert.Equal(t, M(big.NewInt(2), nil), M(reloaded.GetBalance(addr)))
	assert.Equal(t, M(ganache.Bytes32{2}, nil), M(reloaded.GetStorage(addr, ganache.Bytes32{1})))
}

func TestStageDeletedStorage(t *testing.T) {
	st, stater := newTestState(t)
	addr := ganache.BytesToAddress([]byte("acc1"))
	key := ganache.Bytes32{1}

	require.NoError(t, st.SetBalance(addr, big.NewInt(1)))
	st.SetStorage(addr, key, ganache.Bytes32{9})
	stage, err := st.Stage()
	require.NoError(t, err)
	root, err := stage.Commit()
	require.NoError(t, err)

	st = stater.NewState(root)
	st.Delete(addr)
	require.NoError(t, st.SetBalance(addr, big.NewInt(5)))
	stage, err = st.Stage()
	require.NoError(t, err)
	root, err = stage.Commit()
	require.NoError(t, err)

	st = stater.NewState(root)
	assert.Equal(t, M(big.NewInt(5), nil), M(st.GetBalance(addr)))
	assert.Equal(t, M(ganache.Bytes32{}, nil), M(st.GetStorage(addr, key)))
	acc, err := st.GetAccount(addr)
	require.NoError(t, err)
	assert.Empty(t, acc.StorageRoot)
	assert.False(t, acc.Detached)
}
