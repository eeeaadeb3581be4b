package remote

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trufflesuite/ganache-sub010/fork"
	"github.com/trufflesuite/ganache-sub010/ganache"
)

var (
	testAddr = common.HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	testSlot = common.HexToHash("0x01")
)

// ethService serves the eth namespace at a single height.
type ethService struct {
	height uint64
}

func (s *ethService) checkHeight(h hexutil.Uint64) error {
	if uint64(h) != s.height {
		return errors.New("missing trie node")
	}
	return nil
}

func (s *ethService) ChainId() hexutil.Uint64 { return 5 } //nolint:revive

func (s *ethService) BlockNumber() hexutil.Uint64 { return hexutil.Uint64(s.height + 10) }

func (s *ethService) GetBalance(addr common.Address, h hexutil.Uint64) (*hexutil.Big, error) {
	if err := s.checkHeight(h); err != nil {
		return nil, err
	}
	if addr != testAddr {
		return (*hexutil.Big)(new(big.Int)), nil
	}
	return (*hexutil.Big)(big.NewInt(1_000_000)), nil
}

func (s *ethService) GetTransactionCount(addr common.Address, h hexutil.Uint64) (hexutil.Uint64, error) {
	if err := s.checkHeight(h); err != nil {
		return 0, err
	}
	if addr != testAddr {
		return 0, nil
	}
	return 3, nil
}

func (s *ethService) GetCode(addr common.Address, h hexutil.Uint64) (hexutil.Bytes, error) {
	if err := s.checkHeight(h); err != nil {
		return nil, err
	}
	if addr != testAddr {
		return hexutil.Bytes{}, nil
	}
	return hexutil.Bytes{0x60, 0x80}, nil
}

func (s *ethService) GetStorageAt(addr common.Address, key common.Hash, h hexutil.Uint64) (hexutil.Bytes, error) {
	if err := s.checkHeight(h); err != nil {
		return nil, err
	}
	if addr == testAddr && key == testSlot {
		return common.BigToHash(big.NewInt(42)).Bytes(), nil
	}
	return common.Hash{}.Bytes(), nil
}

func (s *ethService) GetBlockByNumber(number hexutil.Uint64, full bool) (map[string]any, error) {
	if uint64(number) > s.height+10 {
		return nil, nil
	}
	return map[string]any{
		"number":        number,
		"hash":          common.BigToHash(big.NewInt(int64(number))),
		"parentHash":    common.BigToHash(big.NewInt(int64(number) - 1)),
		"timestamp":     hexutil.Uint64(1_700_000_000),
		"gasLimit":      hexutil.Uint64(30_000_000),
		"gasUsed":       hexutil.Uint64(15_000_000),
		"baseFeePerGas": (*hexutil.Big)(big.NewInt(1_000_000_000)),
		"stateRoot":     common.HexToHash("0xabcd"),
		"miner":         testAddr,
	}, nil
}

func newTestClient(t *testing.T, height uint64) *Client {
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &ethService{height: height}))
	t.Cleanup(server.Stop)

	c := NewClient(rpc.DialInProc(server))
	t.Cleanup(c.Close)
	return c
}

func TestClientChain(t *testing.T) {
	c := newTestClient(t, 100)

	id, err := c.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), id)

	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(110), n)
}

func TestClientAccount(t *testing.T) {
	c := newTestClient(t, 100)

	acc, err := c.Account(context.Background(), ganache.Address(testAddr), 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), acc.Nonce)
	assert.Equal(t, big.NewInt(1_000_000), acc.Balance)
	assert.Equal(t, []byte{0x60, 0x80}, acc.Code)

	empty, err := c.Account(context.Background(), ganache.Address{1}, 100)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	// the node refuses other heights; that is final
	_, err = c.Account(context.Background(), ganache.Address(testAddr), 99)
	require.Error(t, err)
	assert.False(t, fork.IsTransient(err))
}

func TestClientStorageAndCode(t *testing.T) {
	c := newTestClient(t, 100)

	val, err := c.Storage(context.Background(), ganache.Address(testAddr), ganache.Bytes32(testSlot), 100)
	require.NoError(t, err)
	assert.Equal(t, ganache.BytesToBytes32([]byte{42}), val)

	code, err := c.Code(context.Background(), ganache.Address(testAddr), 100)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80}, code)
}

func TestClientHeader(t *testing.T) {
	c := newTestClient(t, 100)

	h, err := c.Header(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), h.Number)
	assert.Equal(t, ganache.Bytes32(common.BigToHash(big.NewInt(100))), h.Hash)
	assert.Equal(t, uint64(30_000_000), h.GasLimit)
	assert.Equal(t, big.NewInt(1_000_000_000), h.BaseFee)
	assert.Equal(t, ganache.Address(testAddr), h.Beneficiary)

	_, err = c.Header(context.Background(), 1000)
	require.Error(t, err)
	assert.False(t, fork.IsTransient(err))
}

func TestClassifyHTTPStatus(t *testing.T) {
	var status atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", int(status.Load()))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, srv.URL)
	require.NoError(t, err)
	defer c.Close()

	for _, tt := range []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadGateway, true},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
	} {
		status.Store(int32(tt.status))
		_, err := c.ChainID(ctx)
		require.Error(t, err)
		assert.Equal(t, tt.transient, fork.IsTransient(err), "status %d", tt.status)
	}
}

func TestClassifyConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := Dial(context.Background(), url) // http dial is lazy
	require.NoError(t, err)
	defer c.Close()

	_, err = c.BlockNumber(context.Background())
	require.Error(t, err)
	assert.True(t, fork.IsTransient(err))
}
