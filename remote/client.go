// Package remote queries historical state of a remote chain over JSON-RPC.
package remote

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/trufflesuite/ganache-sub010/fork"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/log"
)

var logger = log.WithContext("pkg", "remote")

var _ fork.Remote = (*Client)(nil)

// Client is a JSON-RPC client of a remote chain node.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the node at url (http, ws or ipc).
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "dial remote")
	}
	logger.Debug("remote connected", "url", url)
	return NewClient(c), nil
}

// NewClient wraps an existing rpc client.
func NewClient(c *rpc.Client) *Client {
	return &Client{rpc: c}
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// ChainID returns the remote chain id.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return 0, classify(err)
	}
	return uint64(id), nil
}

// BlockNumber returns the remote head number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &n, "eth_blockNumber"); err != nil {
		return 0, classify(err)
	}
	return uint64(n), nil
}

// Account fetches balance, nonce and code of addr at height in one batch.
func (c *Client) Account(ctx context.Context, addr ganache.Address, height uint64) (*fork.Account, error) {
	var (
		balance hexutil.Big
		nonce   hexutil.Uint64
		code    hexutil.Bytes
		at      = hexutil.EncodeUint64(height)
		a       = common.Address(addr)
	)
	batch := []rpc.BatchElem{
		{Method: "eth_getBalance", Args: []any{a, at}, Result: &balance},
		{Method: "eth_getTransactionCount", Args: []any{a, at}, Result: &nonce},
		{Method: "eth_getCode", Args: []any{a, at}, Result: &code},
	}
	if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
		return nil, classify(err)
	}
	for _, elem := range batch {
		if elem.Error != nil {
			return nil, classify(elem.Error)
		}
	}
	return &fork.Account{
		Nonce:   uint64(nonce),
		Balance: (*big.Int)(&balance),
		Code:    code,
	}, nil
}

// Storage fetches the storage slot of addr at height.
func (c *Client) Storage(ctx context.Context, addr ganache.Address, key ganache.Bytes32, height uint64) (ganache.Bytes32, error) {
	var val hexutil.Bytes
	if err := c.rpc.CallContext(ctx, &val, "eth_getStorageAt", common.Address(addr), common.Hash(key), hexutil.EncodeUint64(height)); err != nil {
		return ganache.Bytes32{}, classify(err)
	}
	if len(val) > 32 {
		return ganache.Bytes32{}, errors.Errorf("malformed storage value of %d bytes", len(val))
	}
	return ganache.BytesToBytes32(val), nil
}

// Code fetches the code of addr at height.
func (c *Client) Code(ctx context.Context, addr ganache.Address, height uint64) ([]byte, error) {
	var code hexutil.Bytes
	if err := c.rpc.CallContext(ctx, &code, "eth_getCode", common.Address(addr), hexutil.EncodeUint64(height)); err != nil {
		return nil, classify(err)
	}
	return code, nil
}

type rpcHeader struct {
	Number     *hexutil.Uint64 `json:"number"`
	Hash       common.Hash     `json:"hash"`
	ParentHash common.Hash     `json:"parentHash"`
	Timestamp  hexutil.Uint64  `json:"timestamp"`
	GasLimit   hexutil.Uint64  `json:"gasLimit"`
	GasUsed    hexutil.Uint64  `json:"gasUsed"`
	BaseFee    *hexutil.Big    `json:"baseFeePerGas"`
	StateRoot  common.Hash     `json:"stateRoot"`
	Miner      common.Address  `json:"miner"`
}

// Header fetches the header of the block with the given number.
func (c *Client) Header(ctx context.Context, number uint64) (*fork.Header, error) {
	var h *rpcHeader
	if err := c.rpc.CallContext(ctx, &h, "eth_getBlockByNumber", hexutil.EncodeUint64(number), false); err != nil {
		return nil, classify(err)
	}
	if h == nil {
		return nil, errors.Errorf("block %d not found", number)
	}
	if h.Number == nil {
		return nil, errors.New("malformed header: missing number")
	}
	return &fork.Header{
		Number:      uint64(*h.Number),
		Hash:        ganache.Bytes32(h.Hash),
		ParentHash:  ganache.Bytes32(h.ParentHash),
		Timestamp:   uint64(h.Timestamp),
		GasLimit:    uint64(h.GasLimit),
		GasUsed:     uint64(h.GasUsed),
		BaseFee:     (*big.Int)(h.BaseFee),
		StateRoot:   ganache.Bytes32(h.StateRoot),
		Beneficiary: ganache.Address(h.Miner),
	}, nil
}
