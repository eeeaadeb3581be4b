// Copyright (c) 2018 The VeChainThor developers

package state

import (
	"context"

	lru "github.com/hashicorp/golang-lru"

	"github.com/trufflesuite/ganache-sub010/fork"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/kv"
	"github.com/trufflesuite/ganache-sub010/trie"
)

var codeCache, _ = lru.NewARC(512)

// cachedObject to cache code and storage of an account.
type cachedObject struct {
	db       *trie.Database
	codes    kv.Getter
	fork     *fork.Cache
	addr     ganache.Address
	data     Account

	cache struct {
		code        []byte
		storageTrie *trie.Trie
		storage     map[ganache.Bytes32]ganache.Bytes32
	}
}

func (co *cachedObject) getOrCreateStorageTrie() *trie.Trie {
	if co.cache.storageTrie != nil {
		return co.cache.storageTrie
	}
	if len(co.data.StorageRoot) == 0 {
		return nil
	}
	tr := trie.New(ganache.BytesToBytes32(co.data.StorageRoot), co.db, 32)
	co.cache.storageTrie = tr
	return tr
}

// GetStorage returns storage value for given key.
func (co *cachedObject) GetStorage(key ganache.Bytes32) (ganache.Bytes32, error) {
	cache := &co.cache
	if cache.storage != nil {
		if v, ok := cache.storage[key]; ok {
			return v, nil
		}
	} else {
		cache.storage = make(map[ganache.Bytes32]ganache.Bytes32)
	}

	v, err := co.loadStorage(key)
	if err != nil {
		return ganache.Bytes32{}, err
	}
	cache.storage[key] = v
	return v, nil
}

func (co *cachedObject) loadStorage(key ganache.Bytes32) (ganache.Bytes32, error) {
	if tr := co.getOrCreateStorageTrie(); tr != nil {
		raw, err := loadStorage(tr, key)
		if err != nil {
			return ganache.Bytes32{}, err
		}
		if len(raw) > 0 {
			return decodeStorage(raw)
		}
	}
	if co.data.Detached || co.fork == nil {
		return ganache.Bytes32{}, nil
	}
	metricStorageReads().AddWithLabel(1, map[string]string{"source": "fork"})
	return co.fork.Storage(context.Background(), co.addr, key)
}

// GetCode returns the code of the account.
func (co *cachedObject) GetCode() ([]byte, error) {
	cache := &co.cache
	if len(cache.code) > 0 {
		return cache.code, nil
	}
	if len(co.data.CodeHash) == 0 {
		return nil, nil
	}

	hash := ganache.BytesToBytes32(co.data.CodeHash)
	code, err := loadCode(co.codes, co.fork, hash)
	if err != nil {
		return nil, err
	}
	// code of accounts copied from the fork may only be known remotely
	if code == nil && co.fork != nil {
		if code, err = co.fork.Code(context.Background(), co.addr); err != nil {
			return nil, err
		}
		codeCache.Add(hash, code)
	}
	cache.code = code
	return code, nil
}

// loadCode looks the code up by hash in the code cache, the local code
// store and codes already fetched from the fork, in that order.
// It returns nil if not found.
func loadCode(codes kv.Getter, fc *fork.Cache, hash ganache.Bytes32) ([]byte, error) {
	if code, ok := codeCache.Get(hash); ok {
		return code.([]byte), nil
	}
	code, err := codes.Get(hash[:])
	if err == nil {
		codeCache.Add(hash, code)
		return code, nil
	}
	if !codes.IsNotFound(err) {
		return nil, err
	}
	if code, ok := fc.CodeByHash(hash); ok {
		codeCache.Add(hash, code)
		return code, nil
	}
	return nil, nil
}
