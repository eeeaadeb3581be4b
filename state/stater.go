// Copyright (c) 2018 The VeChainThor developers

package state

import (
	"github.com/trufflesuite/ganache-sub010/fork"
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/kv"
	"github.com/trufflesuite/ganache-sub010/trie"
)

// Stater is the state creator.
type Stater struct {
	db    *trie.Database
	store kv.Store
	fork  *fork.Cache
}

// NewStater create a new stater. fc may be nil for a chain that is not forked.
func NewStater(store kv.Store, fc *fork.Cache) *Stater {
	return &Stater{trie.NewDatabase(store), store, fc}
}

// NewState create a new state object.
func (s *Stater) NewState(root ganache.Bytes32) *State {
	return New(s.db, s.store, root, s.fork)
}

// Fork returns the fork cache, nil if not forked.
func (s *Stater) Fork() *fork.Cache {
	return s.fork
}
