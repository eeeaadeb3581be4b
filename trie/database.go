package trie

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/trufflesuite/ganache-sub010/kv"
)

// NodeBucket is the kv bucket trie nodes are persisted in, keyed by node hash.
const NodeBucket = kv.Bucket("t")

const defaultNodeCacheSize = 16384

// Database is the node database shared by all tries of one store.
// Decoded nodes are immutable, so they are cached and shared among tries.
type Database struct {
	getter kv.Getter
	cache  *lru.ARCCache
}

// NewDatabase creates a node database over the given store.
// A nil store gives a database that only holds in-memory tries.
func NewDatabase(store kv.Getter) *Database {
	cache, _ := lru.NewARC(defaultNodeCacheSize)
	db := &Database{cache: cache}
	if store != nil {
		db.getter = NodeBucket.NewGetter(store)
	}
	return db
}

// NewPutter returns a putter that writes nodes into the node bucket of w.
func (db *Database) NewPutter(w kv.Putter) kv.Putter {
	return NodeBucket.NewPutter(w)
}

func (db *Database) node(hash hashNode, path []byte) (node, error) {
	if db == nil || db.getter == nil {
		return nil, &MissingNodeError{NodeHash: hash, Path: path}
	}
	if cached, ok := db.cache.Get(string(hash)); ok {
		return cached.(node), nil
	}

	blob, err := db.getter.Get(hash)
	if err != nil {
		if db.getter.IsNotFound(err) {
			return nil, &MissingNodeError{NodeHash: hash, Path: path}
		}
		return nil, &StorageError{NodeHash: hash, Err: err}
	}
	n, err := decodeNode(hash, blob)
	if err != nil {
		panic(fmt.Sprintf("node %x: %v", []byte(hash), err))
	}
	db.cache.Add(string(hash), n)
	return n, nil
}
