package ganache

import (
	"hash"
	"io"
	"sync"

	"golang.org/x/crypto/sha3"
)

var (
	// EmptyRoot is the root hash of an empty trie, keccak256(rlp("")).
	EmptyRoot = MustParseBytes32("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")
	// EmptyCodeHash is keccak256 of empty bytes.
	EmptyCodeHash = Keccak256(nil)
)

type keccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

type keccak256 struct {
	state keccakState
	b32   Bytes32
}

var keccak256Pool = sync.Pool{
	New: func() any {
		return &keccak256{
			state: sha3.NewLegacyKeccak256().(keccakState),
		}
	},
}

// Keccak256 computes the keccak256 hash of the concatenated data.
func Keccak256(data ...[]byte) (h Bytes32) {
	hasher := keccak256Pool.Get().(*keccak256)

	for _, b := range data {
		hasher.state.Write(b)
	}
	hasher.state.Read(hasher.b32[:])
	h = hasher.b32

	hasher.state.Reset()
	keccak256Pool.Put(hasher)
	return
}

// Keccak256Fn computes the keccak256 hash of everything fn writes.
func Keccak256Fn(fn func(w io.Writer)) (h Bytes32) {
	hasher := keccak256Pool.Get().(*keccak256)

	fn(hasher.state)
	hasher.state.Read(hasher.b32[:])
	h = hasher.b32

	hasher.state.Reset()
	keccak256Pool.Put(hasher)
	return
}
