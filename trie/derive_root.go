package trie

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/trufflesuite/ganache-sub010/ganache"
)

// see "github.com/ethereum/go-ethereum/core/types/hashing.go"

// DerivableList is the input to DeriveRoot.
type DerivableList interface {
	Len() int
	EncodeIndex(i int) []byte
}

// DeriveRoot computes the root of a trie mapping rlp(index) to the encoded list item.
func DeriveRoot(list DerivableList) ganache.Bytes32 {
	var (
		trie Trie
		key  []byte
	)
	for i := 0; i < list.Len(); i++ {
		key = rlp.AppendUint64(key[:0], uint64(i))
		_ = trie.Update(key, list.EncodeIndex(i))
	}
	return trie.Hash()
}
