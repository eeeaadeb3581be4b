package tx

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/trie"
)

// Receipt statuses.
const (
	ReceiptStatusFailed     = uint8(0)
	ReceiptStatusSuccessful = uint8(1)
)

// Receipt represents the results of a transaction.
type Receipt struct {
	// hash of the tx
	TxHash ganache.Bytes32
	// status of tx execution
	Status uint8
	// gas used by this tx
	GasUsed uint64
	// price per gas paid
	EffectiveGasPrice *big.Int
	// address of the created contract, if any
	ContractAddress *ganache.Address `rlp:"nil"`
	// return data, or revert reason
	Output []byte
	// logs produced
	Logs []*Log
}

// Reverted returns whether the execution was reverted.
func (r *Receipt) Reverted() bool {
	return r.Status != ReceiptStatusSuccessful
}

// Log represents a contract log event.
type Log struct {
	// address of the contract that generated the event
	Address ganache.Address
	// list of topics provided by the contract.
	Topics []ganache.Bytes32
	// supplied by the contract, usually ABI-encoded
	Data []byte
}

// Receipts slice of receipts.
type Receipts []*Receipt

// Len implements trie.DerivableList.
func (rs Receipts) Len() int {
	return len(rs)
}

// EncodeIndex implements trie.DerivableList.
func (rs Receipts) EncodeIndex(i int) []byte {
	data, err := rlp.EncodeToBytes(rs[i])
	if err != nil {
		panic(err)
	}
	return data
}

// RootHash computes merkle root hash of receipts.
func (rs Receipts) RootHash() ganache.Bytes32 {
	return trie.DeriveRoot(rs)
}
