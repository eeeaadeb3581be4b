package fork

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/lvldb"
)

type fakeRemote struct {
	accounts map[ganache.Address]*Account
	storage  map[ganache.Bytes32]ganache.Bytes32
	headers  map[uint64]*Header

	gate      chan struct{} // blocks every request until closed, if set
	started   chan struct{} // signalled when a request starts, if set
	transient atomic.Int32  // number of transient failures to inject
	permanent error         // fails every request, if set
	calls     atomic.Int32
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		accounts: make(map[ganache.Address]*Account),
		storage:  make(map[ganache.Bytes32]ganache.Bytes32),
		headers:  make(map[uint64]*Header),
	}
}

func (r *fakeRemote) enter(ctx context.Context) error {
	r.calls.Add(1)
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.permanent != nil {
		return r.permanent
	}
	if r.transient.Add(-1) >= 0 {
		return Transient(errors.New("connection reset by peer"))
	}
	return nil
}

func (r *fakeRemote) Account(ctx context.Context, addr ganache.Address, height uint64) (*Account, error) {
	if err := r.enter(ctx); err != nil {
		return nil, err
	}
	if acc, ok := r.accounts[addr]; ok {
		cpy := *acc
		return &cpy, nil
	}
	return &Account{Balance: new(big.Int)}, nil
}

func (r *fakeRemote) Storage(ctx context.Context, addr ganache.Address, key ganache.Bytes32, height uint64) (ganache.Bytes32, error) {
	if err := r.enter(ctx); err != nil {
		return ganache.Bytes32{}, err
	}
	return r.storage[key], nil
}

func (r *fakeRemote) Code(ctx context.Context, addr ganache.Address, height uint64) ([]byte, error) {
	if err := r.enter(ctx); err != nil {
		return nil, err
	}
	if acc, ok := r.accounts[addr]; ok {
		return acc.Code, nil
	}
	return nil, nil
}

func (r *fakeRemote) Header(ctx context.Context, number uint64) (*Header, error) {
	if err := r.enter(ctx); err != nil {
		return nil, err
	}
	if h, ok := r.headers[number]; ok {
		return h, nil
	}
	return nil, errors.New("header not found")
}

func fastOptions() Options {
	return Options{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		RequestTimeout: time.Second,
	}
}

func newCache(t *testing.T, remote Remote) *Cache {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(remote, 100, store, fastOptions())
}

var (
	addr1 = ganache.BytesToAddress([]byte("addr1"))
	slot1 = ganache.BytesToBytes32([]byte("slot1"))
)

func TestNilCache(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	acc, err := c.Account(ctx, addr1)
	assert.NoError(t, err)
	assert.Nil(t, acc)

	val, err := c.Storage(ctx, addr1, slot1)
	assert.NoError(t, err)
	assert.True(t, val.IsZero())

	code, err := c.Code(ctx, addr1)
	assert.NoError(t, err)
	assert.Nil(t, code)

	h, err := c.Header(ctx, 1)
	assert.NoError(t, err)
	assert.Nil(t, h)

	v, err := c.Lookup(ctx, KindAccount, addr1.Bytes())
	assert.NoError(t, err)
	assert.Nil(t, v)

	assert.Equal(t, uint64(0), c.RemoteCalls())
	c.Close()
}

func TestAccountIsCachedPermanently(t *testing.T) {
	remote := newFakeRemote()
	remote.accounts[addr1] = &Account{Nonce: 7, Balance: big.NewInt(1000), Code: []byte{0x60, 0x00}}

	c := newCache(t, remote)
	defer c.Close()

	for range 3 {
		acc, err := c.Account(context.Background(), addr1)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), acc.Nonce)
		assert.Equal(t, big.NewInt(1000), acc.Balance)
		assert.Equal(t, []byte{0x60, 0x00}, acc.Code)
	}
	assert.Equal(t, int32(1), remote.calls.Load())

	// the account fetch indexed the code
	code, err := c.Code(context.Background(), addr1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x00}, code)

	byHash, ok := c.CodeByHash(ganache.Keccak256([]byte{0x60, 0x00}))
	assert.True(t, ok)
	assert.Equal(t, []byte{0x60, 0x00}, byHash)
	assert.Equal(t, int32(1), remote.calls.Load())
}

func TestEntriesPersistAcrossInstances(t *testing.T) {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	defer store.Close()

	remote := newFakeRemote()
	remote.storage[slot1] = ganache.BytesToBytes32([]byte{42})

	c := New(remote, 100, store, fastOptions())
	val, err := c.Storage(context.Background(), addr1, slot1)
	require.NoError(t, err)
	assert.Equal(t, ganache.BytesToBytes32([]byte{42}), val)
	c.Close()

	c2 := New(remote, 100, store, fastOptions())
	defer c2.Close()
	val, err = c2.Storage(context.Background(), addr1, slot1)
	require.NoError(t, err)
	assert.Equal(t, ganache.BytesToBytes32([]byte{42}), val)
	assert.Equal(t, int32(1), remote.calls.Load())

	// another height does not share entries
	c3 := New(remote, 101, store, fastOptions())
	defer c3.Close()
	_, err = c3.Storage(context.Background(), addr1, slot1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), remote.calls.Load())
}

func TestConcurrentLookupsCoalesce(t *testing.T) {
	remote := newFakeRemote()
	remote.storage[slot1] = ganache.BytesToBytes32([]byte{9})
	remote.gate = make(chan struct{})
	remote.started = make(chan struct{}, 16)

	c := newCache(t, remote)
	defer c.Close()

	const n = 16
	var (
		wg      sync.WaitGroup
		results = make([]ganache.Bytes32, n)
		errs    = make([]error, n)
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Storage(context.Background(), addr1, slot1)
		}()
	}

	<-remote.started
	// let the other callers pile up behind the in-flight request
	time.Sleep(50 * time.Millisecond)
	close(remote.gate)
	wg.Wait()

	for i := range n {
		assert.NoError(t, errs[i])
		assert.Equal(t, ganache.BytesToBytes32([]byte{9}), results[i])
	}
	assert.Equal(t, int32(1), remote.calls.Load())
	assert.Equal(t, uint64(1), c.RemoteCalls())
}

func TestCallerCancelDoesNotFailOthers(t *testing.T) {
	remote := newFakeRemote()
	remote.gate = make(chan struct{})
	remote.started = make(chan struct{}, 1)

	c := newCache(t, remote)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Account(ctx, addr1)
		firstErr <- err
	}()
	<-remote.started

	secondErr := make(chan error, 1)
	go func() {
		_, err := c.Account(context.Background(), addr1)
		secondErr <- err
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(remote.gate)
	assert.NoError(t, <-secondErr)
	assert.Equal(t, int32(1), remote.calls.Load())
}

func TestTransientFailuresAreRetried(t *testing.T) {
	remote := newFakeRemote()
	remote.transient.Store(2)

	c := newCache(t, remote)
	defer c.Close()

	_, err := c.Account(context.Background(), addr1)
	assert.NoError(t, err)
	assert.Equal(t, int32(3), remote.calls.Load())
}

func TestTransientFailuresExhausted(t *testing.T) {
	remote := newFakeRemote()
	remote.transient.Store(100)

	c := newCache(t, remote)
	defer c.Close()

	_, err := c.Account(context.Background(), addr1)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))

	var ferr *Error
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, 3, ferr.Attempts)
	assert.Equal(t, KindAccount, ferr.Kind)
	assert.Equal(t, int32(3), remote.calls.Load())

	// failures are not cached, and other keys are unaffected
	remote.transient.Store(0)
	_, err = c.Account(context.Background(), addr1)
	assert.NoError(t, err)
	_, err = c.Storage(context.Background(), addr1, slot1)
	assert.NoError(t, err)
}

func TestPermanentFailureNotRetried(t *testing.T) {
	remote := newFakeRemote()
	remote.permanent = errors.New("missing trie node")

	c := newCache(t, remote)
	defer c.Close()

	_, err := c.Storage(context.Background(), addr1, slot1)
	require.Error(t, err)
	assert.True(t, IsForkError(err))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), remote.calls.Load())

	// never cached: the next lookup asks again
	_, err = c.Storage(context.Background(), addr1, slot1)
	require.Error(t, err)
	assert.Equal(t, int32(2), remote.calls.Load())
}

func TestHeader(t *testing.T) {
	remote := newFakeRemote()
	remote.headers[100] = &Header{
		Number:    100,
		Hash:      ganache.Keccak256([]byte("100")),
		Timestamp: 12345,
		GasLimit:  30_000_000,
		BaseFee:   big.NewInt(7),
	}
	remote.headers[99] = &Header{Number: 99}

	c := newCache(t, remote)
	defer c.Close()

	h, err := c.Header(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, remote.headers[100], h)

	h, err = c.Header(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, h.BaseFee)

	_, err = c.Header(context.Background(), 101)
	assert.True(t, IsForkError(err))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(2), remote.calls.Load())
}

func TestLookup(t *testing.T) {
	remote := newFakeRemote()
	remote.accounts[addr1] = &Account{Nonce: 1, Balance: big.NewInt(5)}

	c := newCache(t, remote)
	defer c.Close()

	v, err := c.Lookup(context.Background(), KindAccount, addr1.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v.(*Account).Nonce)

	_, err = c.Lookup(context.Background(), KindStorage, addr1.Bytes())
	assert.True(t, IsForkError(err))
}
