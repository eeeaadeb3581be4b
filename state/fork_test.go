package state

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trufflesuite/ganache-sub010/fork"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/lvldb"
)

type storageSlot struct {
	addr ganache.Address
	key  ganache.Bytes32
}

// staticRemote serves fixed remote state.
type staticRemote struct {
	accounts map[ganache.Address]*fork.Account
	storage  map[storageSlot]ganache.Bytes32
	calls    atomic.Int32
}

func (r *staticRemote) Account(_ context.Context, addr ganache.Address, _ uint64) (*fork.Account, error) {
	r.calls.Add(1)
	if acc, ok := r.accounts[addr]; ok {
		cpy := *acc
		return &cpy, nil
	}
	return &fork.Account{Balance: new(big.Int)}, nil
}

func (r *staticRemote) Storage(_ context.Context, addr ganache.Address, key ganache.Bytes32, _ uint64) (ganache.Bytes32, error) {
	r.calls.Add(1)
	return r.storage[storageSlot{addr, key}], nil
}

func (r *staticRemote) Code(_ context.Context, addr ganache.Address, _ uint64) ([]byte, error) {
	r.calls.Add(1)
	if acc, ok := r.accounts[addr]; ok {
		return acc.Code, nil
	}
	return nil, nil
}

func (r *staticRemote) Header(context.Context, uint64) (*fork.Header, error) {
	return nil, errors.New("not served")
}

var (
	remoteAddr = ganache.BytesToAddress([]byte("remote"))
	remoteCode = []byte{0x60, 0x80, 0x60, 0x40}
	remoteSlot = ganache.Bytes32{1}
	richAddr   = ganache.BytesToAddress([]byte("rich"))
)

func newForkedStater(t *testing.T) (*Stater, *fork.Cache, *staticRemote) {
	remote := &staticRemote{
		accounts: map[ganache.Address]*fork.Account{
			remoteAddr: {Nonce: 7, Balance: big.NewInt(1000), Code: remoteCode},
			richAddr:   {Balance: big.NewInt(50)},
		},
		storage: map[storageSlot]ganache.Bytes32{
			{remoteAddr, remoteSlot}:         ganache.Bytes32{0xaa},
			{remoteAddr, ganache.Bytes32{2}}: ganache.Bytes32{0xbb},
		},
	}
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fc := fork.New(remote, 100, db, fork.DefaultOptions())
	t.Cleanup(fc.Close)
	return NewStater(db, fc), fc, remote
}

func TestForkedReads(t *testing.T) {
	stater, _, remote := newForkedStater(t)
	st := stater.NewState(ganache.Bytes32{})

	assert.True(t, st.Forked())
	assert.Equal(t, M(big.NewInt(1000), nil), M(st.GetBalance(remoteAddr)))
	assert.Equal(t, M(uint64(7), nil), M(st.GetNonce(remoteAddr)))
	assert.Equal(t, M(remoteCode, nil), M(st.GetCode(remoteAddr)))
	assert.Equal(t, M(ganache.Keccak256(remoteCode), nil), M(st.GetCodeHash(remoteAddr)))
	assert.Equal(t, M(ganache.Bytes32{0xaa}, nil), M(st.GetStorage(remoteAddr, remoteSlot)))
	assert.Equal(t, M(remoteCode, nil), M(st.GetCodeByHash(ganache.Keccak256(remoteCode))))

	calls := remote.calls.Load()
	// a fresh state over the same cache does not hit the remote again
	st = stater.NewState(ganache.Bytes32{})
	assert.Equal(t, M(big.NewInt(1000), nil), M(st.GetBalance(remoteAddr)))
	assert.Equal(t, M(ganache.Bytes32{0xaa}, nil), M(st.GetStorage(remoteAddr, remoteSlot)))
	assert.Equal(t, calls, remote.calls.Load())
}

func TestForkedLocalWritesShadowRemote(t *testing.T) {
	stater, fc, _ := newForkedStater(t)
	st := stater.NewState(ganache.Bytes32{})

	require.NoError(t, st.AddBalance(remoteAddr, big.NewInt(5)))
	st.SetStorage(remoteAddr, remoteSlot, ganache.Bytes32{})

	stage, err := st.Stage()
	require.NoError(t, err)
	root, err := stage.Commit()
	require.NoError(t, err)

	st = stater.NewState(root)
	assert.Equal(t, M(big.NewInt(1005), nil), M(st.GetBalance(remoteAddr)))
	assert.Equal(t, M(uint64(7), nil), M(st.GetNonce(remoteAddr)))
	assert.Equal(t, M(remoteCode, nil), M(st.GetCode(remoteAddr)))
	// the zeroed slot is kept locally and does not fall through
	assert.Equal(t, M(ganache.Bytes32{}, nil), M(st.GetStorage(remoteAddr, remoteSlot)))
	// untouched slots still do
	assert.Equal(t, M(ganache.Bytes32{0xbb}, nil), M(st.GetStorage(remoteAddr, ganache.Bytes32{2})))

	// the fork itself still reports the pinned values
	acc, err := fc.Account(context.Background(), remoteAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), acc.Balance)
	v, err := fc.Storage(context.Background(), remoteAddr, remoteSlot)
	require.NoError(t, err)
	assert.Equal(t, ganache.Bytes32{0xaa}, v)
}

func TestForkedEmptiedAccountStaysLocal(t *testing.T) {
	stater, _, _ := newForkedStater(t)

	st := stater.NewState(ganache.Bytes32{})
	require.NoError(t, st.SubBalance(richAddr, big.NewInt(50)))
	assert.Equal(t, M(false, nil), M(st.Exists(richAddr)))

	stage, err := st.Stage()
	require.NoError(t, err)
	root, err := stage.Commit()
	require.NoError(t, err)
	assert.NotEqual(t, ganache.EmptyRoot, root)

	// the emptied account is kept in the trie, the remote balance stays hidden
	st = stater.NewState(root)
	assert.Equal(t, M(big.NewInt(0), nil), M(st.GetBalance(richAddr)))
}

func TestForkedDeleteDetachesStorage(t *testing.T) {
	stater, _, _ := newForkedStater(t)

	st := stater.NewState(ganache.Bytes32{})
	st.Delete(remoteAddr)
	assert.Equal(t, M(ganache.Bytes32{}, nil), M(st.GetStorage(remoteAddr, ganache.Bytes32{2})))
	assert.Equal(t, M(big.NewInt(0), nil), M(st.GetBalance(remoteAddr)))

	require.NoError(t, st.SetBalance(remoteAddr, big.NewInt(3)))
	stage, err := st.Stage()
	require.NoError(t, err)
	root, err := stage.Commit()
	require.NoError(t, err)

	st = stater.NewState(root)
	acc, err := st.GetAccount(remoteAddr)
	require.NoError(t, err)
	assert.True(t, acc.Detached)
	assert.Equal(t, big.NewInt(3), acc.Balance)
	assert.Equal(t, M(ganache.Bytes32{}, nil), M(st.GetStorage(remoteAddr, remoteSlot)))
	assert.Equal(t, M(ganache.Bytes32{}, nil), M(st.GetStorage(remoteAddr, ganache.Bytes32{2})))
}

func TestForkedRevertRestoresRemoteView(t *testing.T) {
	stater, _, _ := newForkedStater(t)
	st := stater.NewState(ganache.Bytes32{})

	cp := st.NewCheckpoint()
	require.NoError(t, st.AddBalance(remoteAddr, big.NewInt(1)))
	st.SetStorage(remoteAddr, remoteSlot, ganache.Bytes32{0x01})
	st.RevertTo(cp)

	assert.Equal(t, M(big.NewInt(1000), nil), M(st.GetBalance(remoteAddr)))
	assert.Equal(t, M(ganache.Bytes32{0xaa}, nil), M(st.GetStorage(remoteAddr, remoteSlot)))
}

// brokenRemote rejects every lookup.
type brokenRemote struct{}

func (brokenRemote) Account(context.Context, ganache.Address, uint64) (*fork.Account, error) {
	return nil, errors.New("missing trie node")
}

func (brokenRemote) Storage(context.Context, ganache.Address, ganache.Bytes32, uint64) (ganache.Bytes32, error) {
	return ganache.Bytes32{}, errors.New("missing trie node")
}

func (brokenRemote) Code(context.Context, ganache.Address, uint64) ([]byte, error) {
	return nil, errors.New("missing trie node")
}

func (brokenRemote) Header(context.Context, uint64) (*fork.Header, error) {
	return nil, errors.New("missing trie node")
}

func TestSetCodeFailedAccountLoadWritesNothing(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	fc := fork.New(brokenRemote{}, 100, db, fork.DefaultOptions())
	t.Cleanup(fc.Close)

	st := NewStater(db, fc).NewState(ganache.Bytes32{})
	err = st.SetCode(remoteAddr, remoteCode)
	assert.Error(t, err)
	assert.IsType(t, &Error{}, err)
	assert.Equal(t, 0, st.sm.Len(), "no code entry is journaled")
}
