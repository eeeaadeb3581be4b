package state

import (
	"github.com/trufflesuite/ganache-sub010/ganache"
	"github.com/trufflesuite/ganache-sub010/kv"
	"github.com/trufflesuite/ganache-sub010/trie"
)

// Stage abstracts changes on the main accounts trie.
type Stage struct {
	root         ganache.Bytes32
	store        kv.Store
	accountTrie  *trie.Trie
	storageTries []*trie.Trie
	codes        map[ganache.Bytes32][]byte
}

// Hash returns the root hash of the staged accounts trie.
func (s *Stage) Hash() ganache.Bytes32 {
	return s.root
}

// Commit writes trie nodes and codes of the stage into the store.
func (s *Stage) Commit() (ganache.Bytes32, error) {
	bulk := s.store.Bulk()
	for _, st := range s.storageTries {
		if _, err := st.Commit(bulk); err != nil {
			return ganache.Bytes32{}, &Error{err}
		}
	}
	root, err := s.accountTrie.Commit(bulk)
	if err != nil {
		return ganache.Bytes32{}, &Error{err}
	}
	codes := CodeBucket.NewPutter(bulk)
	for hash, code := range s.codes {
		if err := codes.Put(hash[:], code); err != nil {
			return ganache.Bytes32{}, &Error{err}
		}
	}
	if err := bulk.Write(); err != nil {
		return ganache.Bytes32{}, &Error{err}
	}
	return root, nil
}

// Stage flattens all checkpoints into a stage object, to compute the hash
// of the resulting trie or commit all changes. The state is left untouched.
func (s *State) Stage() (*Stage, error) {
	type changed struct {
		data            Account
		storage         map[ganache.Bytes32]ganache.Bytes32
		baseStorageTrie *trie.Trie
	}

	var (
		changes = make(map[ganache.Address]*changed)
		codes   = make(map[ganache.Bytes32][]byte)
		forked  = s.fork != nil
	)

	// get or create changed account
	getChanged := func(addr ganache.Address) (*changed, error) {
		if c, ok := changes[addr]; ok {
			return c, nil
		}
		co, err := s.getCachedObject(addr)
		if err != nil {
			return nil, err
		}
		c := &changed{data: co.data, baseStorageTrie: co.cache.storageTrie}
		changes[addr] = c
		return c, nil
	}

	var jerr error
	// traverse journal to build changes
	s.sm.Journal(func(k, v any) bool {
		var c *changed
		switch key := k.(type) {
		case ganache.Address:
			if c, jerr = getChanged(key); jerr != nil {
				return false
			}
			c.data = *(v.(*Account))
		case codeKey:
			if code := v.([]byte); len(code) > 0 {
				codes[ganache.Keccak256(code)] = code
			}
		case storageKey:
			if c, jerr = getChanged(key.addr); jerr != nil {
				return false
			}
			if c.storage == nil {
				c.storage = make(map[ganache.Bytes32]ganache.Bytes32)
			}
			c.storage[key.key] = v.(ganache.Bytes32)
		case storageBarrierKey:
			if c, jerr = getChanged(ganache.Address(key)); jerr != nil {
				return false
			}
			// discard all storage updates and base storage trie when meet the barrier.
			c.storage = nil
			c.baseStorageTrie = nil
			c.data.StorageRoot = nil
		}
		return true
	})
	if jerr != nil {
		return nil, &Error{jerr}
	}

	accountTrie := s.trie.Snapshot()
	storageTries := make([]*trie.Trie, 0, len(changes))

	for addr, c := range changes {
		// skip storage changes if account is empty, unless forked
		if len(c.storage) > 0 && (forked || !c.data.IsEmpty()) {
			var st *trie.Trie
			if c.baseStorageTrie != nil {
				st = c.baseStorageTrie.Snapshot()
			} else {
				st = trie.New(ganache.BytesToBytes32(c.data.StorageRoot), s.db, 32)
			}
			for k, v := range c.storage {
				if err := saveStorage(st, k, encodeStorage(v, forked)); err != nil {
					return nil, &Error{err}
				}
			}
			if sRoot := st.Hash(); sRoot == ganache.EmptyRoot {
				c.data.StorageRoot = nil
			} else {
				c.data.StorageRoot = sRoot.Bytes()
			}
			storageTries = append(storageTries, st)
		}
		if err := saveAccount(accountTrie, addr, &c.data, forked); err != nil {
			return nil, &Error{err}
		}
	}

	return &Stage{
		root:         accountTrie.Hash(),
		store:        s.store,
		accountTrie:  accountTrie,
		storageTries: storageTries,
		codes:        codes,
	}, nil
}
