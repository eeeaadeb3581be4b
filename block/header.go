// Copyright (c) 2018 The VeChainThor developers

package block

import (
	"fmt"
	"io"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/trufflesuite/ganache-sub010/ganache"
)

// Header contains almost all information about a block, except block body.
// It's immutable.
type Header struct {
	body headerBody

	cache struct {
		hash atomic.Value
	}
}

// headerBody body of header
type headerBody struct {
	ParentHash  ganache.Bytes32
	Number      uint64
	Timestamp   uint64
	Beneficiary ganache.Address

	GasLimit uint64
	GasUsed  uint64
	BaseFee  *big.Int `rlp:"nil"`

	TxsRoot      ganache.Bytes32
	StateRoot    ganache.Bytes32
	ReceiptsRoot ganache.Bytes32
}

// ParentHash returns hash of parent block.
func (h *Header) ParentHash() ganache.Bytes32 {
	return h.body.ParentHash
}

// Number returns sequential number of this block.
func (h *Header) Number() uint64 {
	return h.body.Number
}

// Timestamp returns timestamp of this block.
func (h *Header) Timestamp() uint64 {
	return h.body.Timestamp
}

// Beneficiary returns reward recipient.
func (h *Header) Beneficiary() ganache.Address {
	return h.body.Beneficiary
}

// GasLimit returns gas limit of this block.
func (h *Header) GasLimit() uint64 {
	return h.body.GasLimit
}

// GasUsed returns gas used by txs.
func (h *Header) GasUsed() uint64 {
	return h.body.GasUsed
}

// BaseFee returns base fee per gas of this block.
func (h *Header) BaseFee() *big.Int {
	if h.body.BaseFee == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(h.body.BaseFee)
}

// TxsRoot returns merkle root of txs contained in this block.
func (h *Header) TxsRoot() ganache.Bytes32 {
	return h.body.TxsRoot
}

// StateRoot returns account state merkle root just after this block being applied.
func (h *Header) StateRoot() ganache.Bytes32 {
	return h.body.StateRoot
}

// ReceiptsRoot returns merkle root of tx receipts.
func (h *Header) ReceiptsRoot() ganache.Bytes32 {
	return h.body.ReceiptsRoot
}

// Hash computes hash of the header, keccak256 of its rlp encoding.
func (h *Header) Hash() (hash ganache.Bytes32) {
	if cached := h.cache.hash.Load(); cached != nil {
		return cached.(ganache.Bytes32)
	}
	defer func() { h.cache.hash.Store(hash) }()

	return ganache.Keccak256Fn(func(w io.Writer) {
		rlp.Encode(w, &h.body)
	})
}

// EncodeRLP implements rlp.Encoder
func (h *Header) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &h.body)
}

// DecodeRLP implements rlp.Decoder.
func (h *Header) DecodeRLP(s *rlp.Stream) error {
	var body headerBody
	if err := s.Decode(&body); err != nil {
		return err
	}
	*h = Header{body: body}
	return nil
}

func (h *Header) String() string {
	return fmt.Sprintf(`Header(%v):
	Number:         %v
	ParentHash:     %v
	Timestamp:      %v
	Beneficiary:    %v
	GasLimit:       %v
	GasUsed:        %v
	BaseFee:        %v
	TxsRoot:        %v
	StateRoot:      %v
	ReceiptsRoot:   %v`, h.Hash(), h.body.Number, h.body.ParentHash, h.body.Timestamp, h.body.Beneficiary,
		h.body.GasLimit, h.body.GasUsed, h.body.BaseFee, h.body.TxsRoot, h.body.StateRoot, h.body.ReceiptsRoot)
}
