package tx

import (
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/trie"
)

// Transactions a slice of transactions.
type Transactions []*Transaction

// Len implements trie.DerivableList.
func (txs Transactions) Len() int {
	return len(txs)
}

// EncodeIndex implements trie.DerivableList.
func (txs Transactions) EncodeIndex(i int) []byte {
	data, err := txs[i].MarshalBinary()
	if err != nil {
		panic(err)
	}
	return data
}

// RootHash computes merkle root hash of transactions.
func (txs Transactions) RootHash() ganache.Bytes32 {
	return trie.DeriveRoot(txs)
}
